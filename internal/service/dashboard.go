package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/assemblymk1/localgov/internal/repo"
)

// Dashboard categories, in display order.
const (
	CategoryRates        = "Rates"
	CategoryWater        = "Water"
	CategoryDevelopment  = "Development"
	CategoryCommunity    = "Community"
	CategoryRoads        = "Roads"
	CategoryWaste        = "Waste"
	CategoryAnimals      = "Animals"
	CategoryPublicHealth = "Public Health"
	CategoryEnvironment  = "Environment"
)

const (
	dashboardCachePrefix  = "dashboard:"
	defaultDashboardTTL   = 60 * time.Second
	waterReadingsPerEntry = 12
)

// DashboardCategories lists every key a dashboard carries.
var DashboardCategories = []string{
	CategoryRates,
	CategoryWater,
	CategoryDevelopment,
	CategoryCommunity,
	CategoryRoads,
	CategoryWaste,
	CategoryAnimals,
	CategoryPublicHealth,
	CategoryEnvironment,
}

// Record type tags.
const (
	TypePropertyRates          = "property_rates"
	TypePropertyWater          = "property_water"
	TypeDevelopmentApplication = "development_application"
	TypeWasteCollection        = "waste_collection"
	TypeAnimal                 = "animal"
	TypeProcess                = "process"
)

// Dashboard maps category name to its records.
type Dashboard map[string][]any

// MarshalJSON writes categories in display order.
func (d Dashboard) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, category := range DashboardCategories {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(category)
		buf.Write(key)
		buf.WriteByte(':')

		records := d[category]
		if records == nil {
			records = []any{}
		}
		val, err := json.Marshal(records)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RatesRecord summarises the rates account of one property.
type RatesRecord struct {
	Type           string     `json:"type"`
	PropertyID     int64      `json:"property_id"`
	Address        string     `json:"address"`
	CouncilName    *string    `json:"council_name"`
	CouncilLogoURL *string    `json:"council_logo_url"`
	AccountNumber  *string    `json:"account_number"`
	BalanceCents   *int64     `json:"balance_cents"`
	NextDueDate    *time.Time `json:"next_due_date"`
}

// WaterRecord lists the latest meter readings of one property.
type WaterRecord struct {
	Type       string                  `json:"type"`
	PropertyID int64                   `json:"property_id"`
	Address    string                  `json:"address"`
	Readings   []repo.WaterConsumption `json:"readings"`
}

// DevelopmentRecord is a tagged development application.
type DevelopmentRecord struct {
	Type string `json:"type"`
	repo.DevelopmentApplication
}

// WasteRecord is a tagged waste collection schedule.
type WasteRecord struct {
	Type string `json:"type"`
	repo.WasteCollection
}

// AnimalRecord is a tagged adoptable animal.
type AnimalRecord struct {
	Type string `json:"type"`
	repo.Animal
}

// ProcessRecord is a tagged process.
type ProcessRecord struct {
	Type string `json:"type"`
	repo.Process
}

// Cache is the subset of the Redis client the dashboard uses.
type Cache interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

type dashboardRepository interface {
	GetResidentByID(ctx context.Context, id int64) (repo.Resident, error)
	ListPropertiesByResident(ctx context.Context, residentID int64) ([]repo.Property, error)
	GetRatesAccountByProperty(ctx context.Context, propertyID int64) (repo.RatesAccount, error)
	ListWaterConsumptions(ctx context.Context, propertyID int64, limit int) ([]repo.WaterConsumption, error)
	ListDevelopmentApplicationsByResident(ctx context.Context, residentID int64) ([]repo.DevelopmentApplication, error)
	ListWasteCollectionsByCouncil(ctx context.Context, councilID int64) ([]repo.WasteCollection, error)
	ListAnimalsByStatus(ctx context.Context, status string) ([]repo.Animal, error)
	ListProcessesByCategory(ctx context.Context, residentID int64, category string) ([]repo.Process, error)
}

// DashboardService aggregates the per-category view of a resident.
type DashboardService struct {
	repo  dashboardRepository
	cache Cache
	ttl   time.Duration
}

// NewDashboardService builds the aggregator. cache may be nil.
func NewDashboardService(r dashboardRepository, cache Cache, ttl time.Duration) *DashboardService {
	if ttl <= 0 {
		ttl = defaultDashboardTTL
	}
	return &DashboardService{repo: r, cache: cache, ttl: ttl}
}

// Cached dashboards are keyed by a per-resident generation. Invalidate bumps the
// generation, so a Get that aggregated before the bump writes to a key no reader uses.
func dashboardVersionKey(residentID int64) string {
	return fmt.Sprintf("%sver:%d", dashboardCachePrefix, residentID)
}

func dashboardKey(residentID, version int64) string {
	return fmt.Sprintf("%s%d:%d", dashboardCachePrefix, residentID, version)
}

// Get returns the dashboard of a resident. Any failing category fails the whole call.
func (s *DashboardService) Get(ctx context.Context, residentID int64) (Dashboard, error) {
	if _, err := s.repo.GetResidentByID(ctx, residentID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrResidentNotFound
		}
		return nil, fmt.Errorf("load resident: %w", err)
	}

	version, cacheable := s.version(ctx, residentID)
	if cacheable {
		if cached, ok := s.fromCache(ctx, dashboardKey(residentID, version)); ok {
			return cached, nil
		}
	}

	out := make(Dashboard, len(DashboardCategories))
	for _, category := range DashboardCategories {
		out[category] = []any{}
	}

	properties, err := s.repo.ListPropertiesByResident(ctx, residentID)
	if err != nil {
		return nil, fmt.Errorf("dashboard properties: %w", err)
	}

	for _, p := range properties {
		rates, err := s.ratesRecord(ctx, p)
		if err != nil {
			return nil, err
		}
		out[CategoryRates] = append(out[CategoryRates], rates)

		readings, err := s.repo.ListWaterConsumptions(ctx, p.ID, waterReadingsPerEntry)
		if err != nil {
			return nil, fmt.Errorf("dashboard water: %w", err)
		}
		out[CategoryWater] = append(out[CategoryWater], WaterRecord{
			Type:       TypePropertyWater,
			PropertyID: p.ID,
			Address:    p.Address,
			Readings:   readings,
		})
	}

	apps, err := s.repo.ListDevelopmentApplicationsByResident(ctx, residentID)
	if err != nil {
		return nil, fmt.Errorf("dashboard development: %w", err)
	}
	for _, a := range apps {
		out[CategoryDevelopment] = append(out[CategoryDevelopment], DevelopmentRecord{Type: TypeDevelopmentApplication, DevelopmentApplication: a})
	}

	// Waste follows the council of the resident's first property.
	if len(properties) > 0 {
		collections, err := s.repo.ListWasteCollectionsByCouncil(ctx, properties[0].CouncilID)
		if err != nil {
			return nil, fmt.Errorf("dashboard waste: %w", err)
		}
		for _, c := range collections {
			out[CategoryWaste] = append(out[CategoryWaste], WasteRecord{Type: TypeWasteCollection, WasteCollection: c})
		}
	}

	animals, err := s.repo.ListAnimalsByStatus(ctx, repo.AnimalAvailable)
	if err != nil {
		return nil, fmt.Errorf("dashboard animals: %w", err)
	}
	for _, a := range animals {
		out[CategoryAnimals] = append(out[CategoryAnimals], AnimalRecord{Type: TypeAnimal, Animal: a})
	}

	for _, category := range []string{CategoryCommunity, CategoryRoads, CategoryPublicHealth, CategoryEnvironment} {
		processes, err := s.repo.ListProcessesByCategory(ctx, residentID, category)
		if err != nil {
			return nil, fmt.Errorf("dashboard %s: %w", category, err)
		}
		for _, p := range processes {
			out[category] = append(out[category], ProcessRecord{Type: TypeProcess, Process: p})
		}
	}

	if cacheable {
		s.toCache(ctx, dashboardKey(residentID, version), out)
	}
	return out, nil
}

func (s *DashboardService) ratesRecord(ctx context.Context, p repo.Property) (RatesRecord, error) {
	rec := RatesRecord{
		Type:           TypePropertyRates,
		PropertyID:     p.ID,
		Address:        p.Address,
		CouncilName:    p.CouncilName,
		CouncilLogoURL: p.CouncilLogoURL,
	}

	acc, err := s.repo.GetRatesAccountByProperty(ctx, p.ID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return rec, nil
	case err != nil:
		return RatesRecord{}, fmt.Errorf("dashboard rates: %w", err)
	}

	rec.AccountNumber = &acc.AccountNumber
	rec.BalanceCents = &acc.BalanceCents
	rec.NextDueDate = acc.NextDueDate
	return rec, nil
}

// Invalidate moves the resident to a new cache generation and drops the previous entry.
func (s *DashboardService) Invalidate(ctx context.Context, residentID int64) {
	if s.cache == nil {
		return
	}
	version, err := s.cache.Incr(ctx, dashboardVersionKey(residentID)).Result()
	if err != nil {
		log.Warn().Err(err).Int64("resident_id", residentID).Msg("dashboard cache invalidate failed")
		return
	}
	if err := s.cache.Del(ctx, dashboardKey(residentID, version-1)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Int64("resident_id", residentID).Msg("dashboard cache delete failed")
	}
}

// version reports the current cache generation; false means the cache is off or unreachable.
func (s *DashboardService) version(ctx context.Context, residentID int64) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	version, err := s.cache.Get(ctx, dashboardVersionKey(residentID)).Int64()
	switch {
	case err == nil:
		return version, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		log.Warn().Err(err).Int64("resident_id", residentID).Msg("dashboard cache read failed")
		return 0, false
	}
}

func (s *DashboardService) fromCache(ctx context.Context, key string) (Dashboard, bool) {
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("dashboard cache read failed")
		}
		return nil, false
	}

	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("dashboard cache entry unreadable")
		return nil, false
	}

	out := make(Dashboard, len(DashboardCategories))
	for _, category := range DashboardCategories {
		records := make([]any, 0, len(raw[category]))
		for _, r := range raw[category] {
			records = append(records, r)
		}
		out[category] = records
	}
	return out, true
}

func (s *DashboardService) toCache(ctx context.Context, key string, d Dashboard) {
	payload, err := json.Marshal(d)
	if err != nil {
		log.Warn().Err(err).Msg("dashboard cache encode failed")
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("dashboard cache write failed")
	}
}
