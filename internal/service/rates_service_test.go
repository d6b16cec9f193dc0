package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/assemblymk1/localgov/internal/repo"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRatesListProperties(t *testing.T) {
	store := newMemStore()
	r := store.addResident("Ann", "a@b.com", "x", false)
	store.properties = []repo.Property{
		{ID: 5, ResidentID: r.ID, CouncilID: 10, Address: "5 Bare St"},
		{ID: 4, ResidentID: r.ID, CouncilID: 10, Address: "4 Full St", CouncilName: strPtr("City of Example")},
	}
	due := date(2025, 9, 30)
	store.accounts[4] = repo.RatesAccount{
		ID: 40, PropertyID: 4, AccountNumber: "RA-4", BalanceCents: 98765, NextDueDate: &due,
		InstalmentPlan:    []repo.Instalment{{Seq: 1, DueDate: "2025-09-30", AmountCents: 25000}},
		DirectDebitActive: true,
	}
	for i := 1; i <= 8; i++ {
		store.invoices[40] = append(store.invoices[40], repo.RatesInvoice{
			ID: int64(i), AccountID: 40, IssueDate: date(2024, time.Month(i), 1), AmountCents: int64(i) * 1000, Status: repo.InvoicePaid,
		})
	}
	store.valuations[4] = []repo.Valuation{{Year: 2022}, {Year: 2024}, {Year: 2023}}
	store.concessions[4] = []repo.Concession{{Type: "pensioner", Status: "eligible"}}
	store.overlays[4] = []repo.PropertyOverlay{{Kind: "flood"}}
	store.waste[4] = repo.WasteEntitlement{PropertyID: 4, ExtraBins: 1}
	store.contacts[10] = repo.CouncilContact{CouncilID: 10, QueryValuationURL: strPtr("https://example.gov/valuation")}

	svc := NewRatesService(store)
	props, err := svc.ListProperties(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(props) != 2 || props[0].ID != 4 || props[1].ID != 5 {
		t.Fatalf("expected properties ordered by id, got %+v", props)
	}

	full := props[0].Rates
	if full.BalanceCents == nil || *full.BalanceCents != 98765 {
		t.Fatalf("unexpected balance %v", full.BalanceCents)
	}
	if !full.DDActive || full.EbillActive {
		t.Fatalf("unexpected billing settings %+v", full)
	}
	if len(full.RecentInvoices) != 6 {
		t.Fatalf("expected 6 recent invoices, got %d", len(full.RecentInvoices))
	}
	if full.LastInvoice == nil || full.LastInvoice.ID != 8 {
		t.Fatalf("expected newest invoice as last, got %+v", full.LastInvoice)
	}
	if full.ValuationHistory[0].Year != 2024 || full.ValuationHistory[2].Year != 2022 {
		t.Fatalf("valuations not newest first: %+v", full.ValuationHistory)
	}
	if full.WasteEntitlements == nil || full.ContactLinks == nil {
		t.Fatal("expected waste entitlement and contact links")
	}

	bare := props[1].Rates
	if bare.BalanceCents != nil || bare.LastInvoice != nil || bare.WasteEntitlements != nil {
		t.Fatalf("bare property should have empty rates, got %+v", bare)
	}
	if bare.InstalmentSchedule == nil || bare.RecentInvoices == nil {
		t.Fatal("lists should be empty, not nil")
	}

	raw, err := json.Marshal(map[string]any{"properties": props})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"balance_cents":98765`, `"instalment_schedule":[]`, `"council_name":"City of Example"`, `"query_valuation":"https://example.gov/valuation"`} {
		if !strings.Contains(string(raw), key) {
			t.Fatalf("json missing %s: %s", key, raw)
		}
	}
}

func TestRatesUnknownResident(t *testing.T) {
	svc := NewRatesService(newMemStore())
	if _, err := svc.ListProperties(context.Background(), 7); !errors.Is(err, ErrResidentNotFound) {
		t.Fatalf("expected ErrResidentNotFound, got %v", err)
	}
}

func TestRatesStoreFailure(t *testing.T) {
	store := newMemStore()
	r := store.addResident("Ann", "a@b.com", "x", false)
	store.properties = []repo.Property{{ID: 1, ResidentID: r.ID, CouncilID: 1, Address: "1 St"}}
	store.failOn = "ListValuations"

	svc := NewRatesService(store)
	if _, err := svc.ListProperties(context.Background(), r.ID); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
}
