package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assemblymk1/localgov/internal/repo"
)

const recentInvoiceLimit = 6

type ratesRepository interface {
	GetResidentByID(ctx context.Context, id int64) (repo.Resident, error)
	ListPropertiesByResident(ctx context.Context, residentID int64) ([]repo.Property, error)
	GetRatesAccountByProperty(ctx context.Context, propertyID int64) (repo.RatesAccount, error)
	ListRatesInvoices(ctx context.Context, accountID int64, limit int) ([]repo.RatesInvoice, error)
	ListValuations(ctx context.Context, propertyID int64) ([]repo.Valuation, error)
	ListConcessions(ctx context.Context, propertyID int64) ([]repo.Concession, error)
	ListOverlays(ctx context.Context, propertyID int64) ([]repo.PropertyOverlay, error)
	GetWasteEntitlement(ctx context.Context, propertyID int64) (repo.WasteEntitlement, error)
	GetCouncilContact(ctx context.Context, councilID int64) (repo.CouncilContact, error)
}

// RatesProperty is a property with its rates block.
type RatesProperty struct {
	repo.Property
	Rates RatesSummary `json:"rates"`
}

// RatesSummary is everything the rates page shows for one property.
type RatesSummary struct {
	AccountNumber      *string                `json:"account_number"`
	BalanceCents       *int64                 `json:"balance_cents"`
	NextDueDate        *time.Time             `json:"next_due_date"`
	InstalmentSchedule []repo.Instalment      `json:"instalment_schedule"`
	DDActive           bool                   `json:"dd_active"`
	EbillActive        bool                   `json:"ebill_active"`
	Concessions        []repo.Concession      `json:"concessions"`
	ValuationHistory   []repo.Valuation       `json:"valuation_history"`
	WasteEntitlements  *repo.WasteEntitlement `json:"waste_entitlements"`
	Overlays           []repo.PropertyOverlay `json:"overlays"`
	ContactLinks       *repo.CouncilContact   `json:"contact_links"`
	LastInvoice        *repo.RatesInvoice     `json:"last_invoice"`
	RecentInvoices     []repo.RatesInvoice    `json:"recent_invoices"`
}

// RatesService builds the rates view of a resident's properties.
type RatesService struct {
	repo ratesRepository
}

// NewRatesService wires the service.
func NewRatesService(r ratesRepository) *RatesService {
	return &RatesService{repo: r}
}

// ListProperties returns the resident's properties, lowest id first, each with its rates block.
func (s *RatesService) ListProperties(ctx context.Context, residentID int64) ([]RatesProperty, error) {
	if _, err := s.repo.GetResidentByID(ctx, residentID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrResidentNotFound
		}
		return nil, fmt.Errorf("load resident: %w", err)
	}

	props, err := s.repo.ListPropertiesByResident(ctx, residentID)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}

	out := make([]RatesProperty, 0, len(props))
	for _, p := range props {
		summary, err := s.summary(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("rates for property %d: %w", p.ID, err)
		}
		out = append(out, RatesProperty{Property: p, Rates: summary})
	}
	return out, nil
}

func (s *RatesService) summary(ctx context.Context, p repo.Property) (RatesSummary, error) {
	sum := RatesSummary{
		InstalmentSchedule: []repo.Instalment{},
		RecentInvoices:     []repo.RatesInvoice{},
	}

	acc, err := s.repo.GetRatesAccountByProperty(ctx, p.ID)
	switch {
	case err == nil:
		sum.AccountNumber = &acc.AccountNumber
		sum.BalanceCents = &acc.BalanceCents
		sum.NextDueDate = acc.NextDueDate
		sum.DDActive = acc.DirectDebitActive
		sum.EbillActive = acc.EbillActive
		if acc.InstalmentPlan != nil {
			sum.InstalmentSchedule = acc.InstalmentPlan
		}

		invoices, err := s.repo.ListRatesInvoices(ctx, acc.ID, recentInvoiceLimit)
		if err != nil {
			return RatesSummary{}, err
		}
		sum.RecentInvoices = invoices
		if len(invoices) > 0 {
			last := invoices[0]
			sum.LastInvoice = &last
		}
	case !errors.Is(err, repo.ErrNotFound):
		return RatesSummary{}, err
	}

	if sum.Concessions, err = s.repo.ListConcessions(ctx, p.ID); err != nil {
		return RatesSummary{}, err
	}
	if sum.ValuationHistory, err = s.repo.ListValuations(ctx, p.ID); err != nil {
		return RatesSummary{}, err
	}
	if sum.Overlays, err = s.repo.ListOverlays(ctx, p.ID); err != nil {
		return RatesSummary{}, err
	}

	waste, err := s.repo.GetWasteEntitlement(ctx, p.ID)
	switch {
	case err == nil:
		sum.WasteEntitlements = &waste
	case !errors.Is(err, repo.ErrNotFound):
		return RatesSummary{}, err
	}

	contact, err := s.repo.GetCouncilContact(ctx, p.CouncilID)
	switch {
	case err == nil:
		sum.ContactLinks = &contact
	case !errors.Is(err, repo.ErrNotFound):
		return RatesSummary{}, err
	}

	return sum, nil
}
