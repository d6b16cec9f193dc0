package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/assemblymk1/localgov/internal/events"
	"github.com/assemblymk1/localgov/internal/repo"
)

// memStore implements every repository interface the services declare.
type memStore struct {
	mu sync.Mutex

	residents   []repo.Resident
	properties  []repo.Property
	accounts    map[int64]repo.RatesAccount
	invoices    map[int64][]repo.RatesInvoice
	valuations  map[int64][]repo.Valuation
	concessions map[int64][]repo.Concession
	overlays    map[int64][]repo.PropertyOverlay
	waste       map[int64]repo.WasteEntitlement
	contacts    map[int64]repo.CouncilContact
	water       map[int64][]repo.WaterConsumption
	collections map[int64][]repo.WasteCollection
	animals     []repo.Animal
	apps        []repo.DevelopmentApplication
	processes   []repo.Process

	failOn     string
	calls      []string
	waterLimit int
}

func newMemStore() *memStore {
	return &memStore{
		accounts:    map[int64]repo.RatesAccount{},
		invoices:    map[int64][]repo.RatesInvoice{},
		valuations:  map[int64][]repo.Valuation{},
		concessions: map[int64][]repo.Concession{},
		overlays:    map[int64][]repo.PropertyOverlay{},
		waste:       map[int64]repo.WasteEntitlement{},
		contacts:    map[int64]repo.CouncilContact{},
		water:       map[int64][]repo.WaterConsumption{},
		collections: map[int64][]repo.WasteCollection{},
	}
}

var errStoreDown = errors.New("store unavailable")

func (m *memStore) enter(op string) error {
	m.calls = append(m.calls, op)
	if m.failOn == op {
		return errStoreDown
	}
	return nil
}

func (m *memStore) addResident(name, email, hash string, admin bool) repo.Resident {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := repo.Resident{ID: int64(len(m.residents) + 1), Name: name, Email: email, PasswordHash: hash, IsAdmin: admin, CreatedAt: time.Now()}
	m.residents = append(m.residents, r)
	return r
}

func (m *memStore) CreateResident(ctx context.Context, arg repo.CreateResidentParams) (repo.Resident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateResident"); err != nil {
		return repo.Resident{}, err
	}
	for _, r := range m.residents {
		if r.Email == arg.Email {
			return repo.Resident{}, repo.ErrConflict
		}
	}
	r := repo.Resident{ID: int64(len(m.residents) + 1), Name: arg.Name, Email: arg.Email, PasswordHash: arg.PasswordHash, CreatedAt: arg.CreatedAt}
	m.residents = append(m.residents, r)
	return r, nil
}

func (m *memStore) GetResidentByEmail(ctx context.Context, email string) (repo.Resident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetResidentByEmail"); err != nil {
		return repo.Resident{}, err
	}
	for _, r := range m.residents {
		if strings.EqualFold(r.Email, email) {
			return r, nil
		}
	}
	return repo.Resident{}, repo.ErrNotFound
}

func (m *memStore) GetResidentByID(ctx context.Context, id int64) (repo.Resident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetResidentByID"); err != nil {
		return repo.Resident{}, err
	}
	for _, r := range m.residents {
		if r.ID == id {
			return r, nil
		}
	}
	return repo.Resident{}, repo.ErrNotFound
}

func (m *memStore) ListPropertiesByResident(ctx context.Context, residentID int64) ([]repo.Property, error) {
	if err := m.enter("ListPropertiesByResident"); err != nil {
		return nil, err
	}
	out := []repo.Property{}
	for _, p := range m.properties {
		if p.ResidentID == residentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetRatesAccountByProperty(ctx context.Context, propertyID int64) (repo.RatesAccount, error) {
	if err := m.enter("GetRatesAccountByProperty"); err != nil {
		return repo.RatesAccount{}, err
	}
	a, ok := m.accounts[propertyID]
	if !ok {
		return repo.RatesAccount{}, repo.ErrNotFound
	}
	return a, nil
}

func (m *memStore) ListRatesInvoices(ctx context.Context, accountID int64, limit int) ([]repo.RatesInvoice, error) {
	if err := m.enter("ListRatesInvoices"); err != nil {
		return nil, err
	}
	out := append([]repo.RatesInvoice{}, m.invoices[accountID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].IssueDate.After(out[j].IssueDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListValuations(ctx context.Context, propertyID int64) ([]repo.Valuation, error) {
	if err := m.enter("ListValuations"); err != nil {
		return nil, err
	}
	out := append([]repo.Valuation{}, m.valuations[propertyID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out, nil
}

func (m *memStore) ListConcessions(ctx context.Context, propertyID int64) ([]repo.Concession, error) {
	if err := m.enter("ListConcessions"); err != nil {
		return nil, err
	}
	return append([]repo.Concession{}, m.concessions[propertyID]...), nil
}

func (m *memStore) ListOverlays(ctx context.Context, propertyID int64) ([]repo.PropertyOverlay, error) {
	if err := m.enter("ListOverlays"); err != nil {
		return nil, err
	}
	return append([]repo.PropertyOverlay{}, m.overlays[propertyID]...), nil
}

func (m *memStore) GetWasteEntitlement(ctx context.Context, propertyID int64) (repo.WasteEntitlement, error) {
	if err := m.enter("GetWasteEntitlement"); err != nil {
		return repo.WasteEntitlement{}, err
	}
	w, ok := m.waste[propertyID]
	if !ok {
		return repo.WasteEntitlement{}, repo.ErrNotFound
	}
	return w, nil
}

func (m *memStore) GetCouncilContact(ctx context.Context, councilID int64) (repo.CouncilContact, error) {
	if err := m.enter("GetCouncilContact"); err != nil {
		return repo.CouncilContact{}, err
	}
	c, ok := m.contacts[councilID]
	if !ok {
		return repo.CouncilContact{}, repo.ErrNotFound
	}
	return c, nil
}

func (m *memStore) ListWaterConsumptions(ctx context.Context, propertyID int64, limit int) ([]repo.WaterConsumption, error) {
	if err := m.enter("ListWaterConsumptions"); err != nil {
		return nil, err
	}
	m.waterLimit = limit
	out := append([]repo.WaterConsumption{}, m.water[propertyID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ReadingDate.After(out[j].ReadingDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListDevelopmentApplicationsByResident(ctx context.Context, residentID int64) ([]repo.DevelopmentApplication, error) {
	if err := m.enter("ListDevelopmentApplicationsByResident"); err != nil {
		return nil, err
	}
	out := []repo.DevelopmentApplication{}
	for _, a := range m.apps {
		if a.ResidentID == residentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListWasteCollectionsByCouncil(ctx context.Context, councilID int64) ([]repo.WasteCollection, error) {
	if err := m.enter("ListWasteCollectionsByCouncil"); err != nil {
		return nil, err
	}
	return append([]repo.WasteCollection{}, m.collections[councilID]...), nil
}

func (m *memStore) ListAnimalsByStatus(ctx context.Context, status string) ([]repo.Animal, error) {
	if err := m.enter("ListAnimalsByStatus"); err != nil {
		return nil, err
	}
	out := []repo.Animal{}
	for _, a := range m.animals {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListProcessesByCategory(ctx context.Context, residentID int64, category string) ([]repo.Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListProcessesByCategory"); err != nil {
		return nil, err
	}
	out := []repo.Process{}
	for _, p := range m.processes {
		if p.ResidentID == residentID && p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) CreateProcess(ctx context.Context, arg repo.CreateProcessParams) (repo.Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateProcess"); err != nil {
		return repo.Process{}, err
	}
	found := false
	for _, r := range m.residents {
		if r.ID == arg.ResidentID {
			found = true
		}
	}
	if !found {
		return repo.Process{}, repo.ErrNotFound
	}
	p := repo.Process{
		ID:          int64(len(m.processes) + 1),
		ResidentID:  arg.ResidentID,
		Category:    arg.Category,
		Title:       arg.Title,
		Description: arg.Description,
		FormData:    arg.FormData,
		Status:      arg.Status,
		SubmittedAt: arg.At,
		UpdatedAt:   arg.At,
	}
	m.processes = append(m.processes, p)
	return p, nil
}

func (m *memStore) findProcess(id int64) int {
	for i, p := range m.processes {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (m *memStore) GetProcess(ctx context.Context, id int64) (repo.Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.findProcess(id); i >= 0 {
		return m.processes[i], nil
	}
	return repo.Process{}, repo.ErrNotFound
}

func (m *memStore) GetProcessForResident(ctx context.Context, id, residentID int64) (repo.Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.findProcess(id); i >= 0 && m.processes[i].ResidentID == residentID {
		return m.processes[i], nil
	}
	return repo.Process{}, repo.ErrNotFound
}

func (m *memStore) ListProcessesByResident(ctx context.Context, residentID int64) ([]repo.Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []repo.Process{}
	for _, p := range m.processes {
		if p.ResidentID == residentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ListAllProcesses(ctx context.Context) ([]repo.Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repo.Process{}, m.processes...), nil
}

// bumpUpdatedAt mirrors the SQL GREATEST rule.
func bumpUpdatedAt(prev, at time.Time) time.Time {
	next := prev.Add(time.Microsecond)
	if at.After(next) {
		return at
	}
	return next
}

func (m *memStore) UpdateProcess(ctx context.Context, arg repo.UpdateProcessParams) (repo.Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.findProcess(arg.ID)
	if i < 0 || m.processes[i].ResidentID != arg.ResidentID {
		return repo.Process{}, repo.ErrNotFound
	}
	p := &m.processes[i]
	if arg.Title != nil {
		p.Title = *arg.Title
	}
	if arg.Description != nil {
		p.Description = arg.Description
	}
	if arg.Category != nil {
		p.Category = *arg.Category
	}
	if arg.Status != nil {
		p.Status = *arg.Status
	}
	if arg.FormData != nil {
		p.FormData = arg.FormData
	}
	p.UpdatedAt = bumpUpdatedAt(p.UpdatedAt, arg.At)
	return *p, nil
}

func (m *memStore) UpdateProcessStatus(ctx context.Context, id int64, status string, at time.Time) (repo.Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.findProcess(id)
	if i < 0 {
		return repo.Process{}, repo.ErrNotFound
	}
	m.processes[i].Status = status
	m.processes[i].UpdatedAt = bumpUpdatedAt(m.processes[i].UpdatedAt, at)
	return m.processes[i], nil
}

func (m *memStore) DeleteProcess(ctx context.Context, id, residentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.findProcess(id)
	if i < 0 || m.processes[i].ResidentID != residentID {
		return repo.ErrNotFound
	}
	m.processes = append(m.processes[:i], m.processes[i+1:]...)
	return nil
}

type stubRedis struct {
	store  map[string]string
	failed bool
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if s.failed {
		cmd.SetErr(errors.New("redis down"))
		return cmd
	}
	if s.store == nil {
		s.store = make(map[string]string)
	}
	s.store[key] = toString(value)
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if s.failed {
		cmd.SetErr(errors.New("redis down"))
		return cmd
	}
	val, ok := s.store[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := s.store[key]; ok {
			delete(s.store, key)
			removed++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(removed)
	return cmd
}

func (s *stubRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if s.failed {
		cmd.SetErr(errors.New("redis down"))
		return cmd
	}
	if s.store == nil {
		s.store = make(map[string]string)
	}
	n, _ := strconv.ParseInt(s.store[key], 10, 64)
	n++
	s.store[key] = strconv.FormatInt(n, 10)
	cmd.SetVal(n)
	return cmd
}

func toString(value any) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

type recordingPublisher struct {
	events []events.ProcessEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.ProcessEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }
