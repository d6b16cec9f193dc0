package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/assemblymk1/localgov/internal/events"
	"github.com/assemblymk1/localgov/internal/repo"
	"github.com/assemblymk1/localgov/internal/util"
)

type processRepository interface {
	GetResidentByID(ctx context.Context, id int64) (repo.Resident, error)
	CreateProcess(ctx context.Context, arg repo.CreateProcessParams) (repo.Process, error)
	GetProcess(ctx context.Context, id int64) (repo.Process, error)
	GetProcessForResident(ctx context.Context, id, residentID int64) (repo.Process, error)
	ListProcessesByResident(ctx context.Context, residentID int64) ([]repo.Process, error)
	ListAllProcesses(ctx context.Context) ([]repo.Process, error)
	UpdateProcess(ctx context.Context, arg repo.UpdateProcessParams) (repo.Process, error)
	UpdateProcessStatus(ctx context.Context, id int64, status string, at time.Time) (repo.Process, error)
	DeleteProcess(ctx context.Context, id, residentID int64) error
}

type dashboardInvalidator interface {
	Invalidate(ctx context.Context, residentID int64)
}

// CreateProcessInput is a resident submission.
type CreateProcessInput struct {
	Title       string
	Category    string
	Description *string
	Status      string
	FormData    json.RawMessage
}

// UpdateProcessInput is a partial update; nil fields are left alone.
type UpdateProcessInput struct {
	Title       *string
	Description *string
	Category    *string
	Status      *string
	FormData    json.RawMessage
}

// ProcessService handles resident processes and the administrative mutator.
type ProcessService struct {
	repo      processRepository
	publisher events.Publisher
	dashboard dashboardInvalidator
	now       func() time.Time
}

// NewProcessService wires the service. publisher and dashboard may be nil.
func NewProcessService(r processRepository, publisher events.Publisher, dashboard dashboardInvalidator) *ProcessService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ProcessService{repo: r, publisher: publisher, dashboard: dashboard, now: util.Now}
}

// List returns the resident's processes.
func (s *ProcessService) List(ctx context.Context, residentID int64) ([]repo.Process, error) {
	if _, err := s.repo.GetResidentByID(ctx, residentID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrResidentNotFound
		}
		return nil, fmt.Errorf("load resident: %w", err)
	}
	return s.repo.ListProcessesByResident(ctx, residentID)
}

// Create stores a new process for the resident.
func (s *ProcessService) Create(ctx context.Context, residentID int64, in CreateProcessInput) (repo.Process, error) {
	title := strings.TrimSpace(in.Title)
	category := strings.TrimSpace(in.Category)
	if err := util.RequireString(title, "title"); err != nil {
		return repo.Process{}, invalid(err.Error())
	}
	if err := util.RequireString(category, "category"); err != nil {
		return repo.Process{}, invalid(err.Error())
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = repo.ProcessPending
	}

	p, err := s.repo.CreateProcess(ctx, repo.CreateProcessParams{
		ResidentID:  residentID,
		Category:    category,
		Title:       title,
		Description: in.Description,
		FormData:    normalizeFormData(in.FormData),
		Status:      status,
		At:          s.now(),
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return repo.Process{}, ErrResidentNotFound
		}
		return repo.Process{}, fmt.Errorf("create process: %w", err)
	}

	s.afterChange(ctx, events.ProcessCreated, p)
	return p, nil
}

// Get loads one of the resident's processes.
func (s *ProcessService) Get(ctx context.Context, residentID, id int64) (repo.Process, error) {
	p, err := s.repo.GetProcessForResident(ctx, id, residentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return repo.Process{}, ErrProcessNotFound
		}
		return repo.Process{}, err
	}
	return p, nil
}

// Update applies a partial update and refreshes updated_at.
func (s *ProcessService) Update(ctx context.Context, residentID, id int64, in UpdateProcessInput) (repo.Process, error) {
	arg := repo.UpdateProcessParams{
		ID:          id,
		ResidentID:  residentID,
		Description: in.Description,
		FormData:    normalizeFormData(in.FormData),
		At:          s.now(),
	}

	var err error
	if arg.Title, err = trimmedNonEmpty(in.Title, "title"); err != nil {
		return repo.Process{}, err
	}
	if arg.Category, err = trimmedNonEmpty(in.Category, "category"); err != nil {
		return repo.Process{}, err
	}
	if arg.Status, err = trimmedNonEmpty(in.Status, "status"); err != nil {
		return repo.Process{}, err
	}

	p, err := s.repo.UpdateProcess(ctx, arg)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return repo.Process{}, ErrProcessNotFound
		}
		return repo.Process{}, fmt.Errorf("update process: %w", err)
	}

	s.afterChange(ctx, events.ProcessUpdated, p)
	return p, nil
}

// Delete removes one of the resident's processes.
func (s *ProcessService) Delete(ctx context.Context, residentID, id int64) error {
	if err := s.repo.DeleteProcess(ctx, id, residentID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrProcessNotFound
		}
		return fmt.Errorf("delete process: %w", err)
	}

	s.afterChange(ctx, events.ProcessDeleted, repo.Process{ID: id, ResidentID: residentID})
	return nil
}

// AdminListAll returns every process regardless of owner.
func (s *ProcessService) AdminListAll(ctx context.Context) ([]repo.Process, error) {
	return s.repo.ListAllProcesses(ctx)
}

// AdminUpdateStatus overwrites the status of any process.
func (s *ProcessService) AdminUpdateStatus(ctx context.Context, id int64, status string) (repo.Process, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return repo.Process{}, invalid("status is required")
	}

	p, err := s.repo.UpdateProcessStatus(ctx, id, status, s.now())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return repo.Process{}, ErrProcessNotFound
		}
		return repo.Process{}, fmt.Errorf("update status: %w", err)
	}

	log.Info().Int64("process_id", p.ID).Str("status", p.Status).Msg("process status updated")
	s.afterChange(ctx, events.ProcessStatusChanged, p)
	return p, nil
}

func (s *ProcessService) afterChange(ctx context.Context, eventType string, p repo.Process) {
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx, p.ResidentID)
	}

	ev := events.NewProcessEvent(eventType, p.ID, p.ResidentID, p.Category, p.Status, s.now())
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("event", eventType).Int64("process_id", p.ID).Msg("publish process event failed")
	}
}

func trimmedNonEmpty(value *string, field string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil, invalid(field + " cannot be empty")
	}
	return &v, nil
}

// normalizeFormData treats an explicit JSON null like an absent payload.
func normalizeFormData(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return raw
}
