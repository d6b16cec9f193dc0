package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/assemblymk1/localgov/internal/events"
)

type fakeInvalidator struct {
	residents []int64
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, residentID int64) {
	f.residents = append(f.residents, residentID)
}

func newProcessFixture(t *testing.T) (*ProcessService, *memStore, *recordingPublisher, *fakeInvalidator, int64) {
	t.Helper()
	store := newMemStore()
	r := store.addResident("Ann", "a@b.com", "x", false)
	pub := &recordingPublisher{}
	inv := &fakeInvalidator{}
	svc := NewProcessService(store, pub, inv)
	return svc, store, pub, inv, r.ID
}

func TestProcessCreateDefaultsAndGet(t *testing.T) {
	svc, _, pub, inv, residentID := newProcessFixture(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, residentID, CreateProcessInput{
		Title:    "  Pothole on Main St ",
		Category: "Roads",
		FormData: json.RawMessage(`{"street":"Main"}`),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != "pending" {
		t.Fatalf("expected pending status, got %q", p.Status)
	}
	if p.Title != "Pothole on Main St" {
		t.Fatalf("title not trimmed: %q", p.Title)
	}
	if !p.SubmittedAt.Equal(p.UpdatedAt) {
		t.Fatal("submitted_at and updated_at should match on create")
	}

	got, err := svc.Get(ctx, residentID, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != p.Title || got.Category != "Roads" || string(got.FormData) != `{"street":"Main"}` {
		t.Fatalf("unexpected process %+v", got)
	}

	if len(pub.events) != 1 || pub.events[0].Type != events.ProcessCreated {
		t.Fatalf("expected created event, got %+v", pub.events)
	}
	if len(inv.residents) != 1 || inv.residents[0] != residentID {
		t.Fatalf("expected dashboard invalidation, got %v", inv.residents)
	}
}

func TestProcessCreateValidation(t *testing.T) {
	svc, _, _, _, residentID := newProcessFixture(t)
	for _, in := range []CreateProcessInput{
		{Category: "Roads"},
		{Title: "x"},
		{Title: "   ", Category: "Roads"},
	} {
		_, err := svc.Create(context.Background(), residentID, in)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("input %+v: expected validation error, got %v", in, err)
		}
	}
}

func TestProcessCreateUnknownResident(t *testing.T) {
	svc, _, _, _, _ := newProcessFixture(t)
	_, err := svc.Create(context.Background(), 404, CreateProcessInput{Title: "x", Category: "Roads"})
	if !errors.Is(err, ErrResidentNotFound) {
		t.Fatalf("expected ErrResidentNotFound, got %v", err)
	}
}

func TestProcessListUnknownResident(t *testing.T) {
	svc, store, _, _, residentID := newProcessFixture(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, residentID, CreateProcessInput{Title: "Mine", Category: "Roads"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	store.residents = nil

	if _, err := svc.List(ctx, residentID); !errors.Is(err, ErrResidentNotFound) {
		t.Fatalf("expected ErrResidentNotFound, got %v", err)
	}
}

func TestProcessScopedToOwner(t *testing.T) {
	svc, store, _, _, residentID := newProcessFixture(t)
	ctx := context.Background()
	other := store.addResident("Bob", "bob@b.com", "x", false)

	p, err := svc.Create(ctx, residentID, CreateProcessInput{Title: "Mine", Category: "Roads"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(ctx, other.ID, p.ID); !errors.Is(err, ErrProcessNotFound) {
		t.Fatalf("get by other: expected ErrProcessNotFound, got %v", err)
	}
	if _, err := svc.Update(ctx, other.ID, p.ID, UpdateProcessInput{Title: strPtr("Stolen")}); !errors.Is(err, ErrProcessNotFound) {
		t.Fatalf("update by other: expected ErrProcessNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, other.ID, p.ID); !errors.Is(err, ErrProcessNotFound) {
		t.Fatalf("delete by other: expected ErrProcessNotFound, got %v", err)
	}

	list, err := svc.List(ctx, other.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("other resident should see nothing, got %v", list)
	}
}

func TestProcessUpdatePartial(t *testing.T) {
	svc, _, pub, _, residentID := newProcessFixture(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, residentID, CreateProcessInput{Title: "Old", Category: "Roads", Description: strPtr("keep")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, residentID, p.ID, UpdateProcessInput{Title: strPtr("New")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "New" || updated.Category != "Roads" || updated.Description == nil || *updated.Description != "keep" {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if !updated.UpdatedAt.After(p.UpdatedAt) {
		t.Fatal("updated_at should move forward")
	}
	if pub.events[len(pub.events)-1].Type != events.ProcessUpdated {
		t.Fatalf("expected updated event, got %+v", pub.events)
	}

	if _, err := svc.Update(ctx, residentID, p.ID, UpdateProcessInput{Category: strPtr(" ")}); err == nil {
		t.Fatal("expected validation error for blank category")
	}
}

func TestProcessDelete(t *testing.T) {
	svc, _, pub, _, residentID := newProcessFixture(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, residentID, CreateProcessInput{Title: "Bye", Category: "Roads"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, residentID, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, residentID, p.ID); !errors.Is(err, ErrProcessNotFound) {
		t.Fatalf("expected ErrProcessNotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, residentID, p.ID); !errors.Is(err, ErrProcessNotFound) {
		t.Fatalf("second delete: expected ErrProcessNotFound, got %v", err)
	}
	if pub.events[len(pub.events)-1].Type != events.ProcessDeleted {
		t.Fatalf("expected deleted event, got %+v", pub.events)
	}
}

func TestAdminUpdateStatusRefreshesUpdatedAt(t *testing.T) {
	svc, store, pub, inv, residentID := newProcessFixture(t)
	ctx := context.Background()

	frozen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return frozen }

	p, err := svc.Create(ctx, residentID, CreateProcessInput{Title: "Pothole", Category: "Roads"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Same clock reading: updated_at must still be strictly later.
	updated, err := svc.AdminUpdateStatus(ctx, p.ID, "approved")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != "approved" {
		t.Fatalf("expected approved, got %q", updated.Status)
	}
	if !updated.UpdatedAt.After(p.UpdatedAt) {
		t.Fatalf("updated_at %v not after %v", updated.UpdatedAt, p.UpdatedAt)
	}

	stored, err := store.GetProcess(ctx, p.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != "approved" {
		t.Fatalf("status not persisted: %q", stored.Status)
	}

	last := pub.events[len(pub.events)-1]
	if last.Type != events.ProcessStatusChanged || last.Status != "approved" || last.ResidentID != residentID {
		t.Fatalf("unexpected event %+v", last)
	}
	if inv.residents[len(inv.residents)-1] != residentID {
		t.Fatal("owner dashboard should be invalidated")
	}
}

func TestAdminUpdateStatusErrors(t *testing.T) {
	svc, _, _, _, _ := newProcessFixture(t)
	ctx := context.Background()

	if _, err := svc.AdminUpdateStatus(ctx, 99, "approved"); !errors.Is(err, ErrProcessNotFound) {
		t.Fatalf("expected ErrProcessNotFound, got %v", err)
	}
	var verr *ValidationError
	if _, err := svc.AdminUpdateStatus(ctx, 1, "  "); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdminListAll(t *testing.T) {
	svc, store, _, _, residentID := newProcessFixture(t)
	ctx := context.Background()
	other := store.addResident("Bob", "bob@b.com", "x", false)

	for _, id := range []int64{residentID, other.ID} {
		if _, err := svc.Create(ctx, id, CreateProcessInput{Title: "t", Category: "Roads"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	all, err := svc.AdminListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 processes, got %d", len(all))
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	svc, _, pub, _, residentID := newProcessFixture(t)
	pub.err = errors.New("broker down")

	if _, err := svc.Create(context.Background(), residentID, CreateProcessInput{Title: "t", Category: "Roads"}); err != nil {
		t.Fatalf("create should succeed when publishing fails: %v", err)
	}
}
