package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// ListPropertiesByResident returns a resident's properties with council branding, lowest id first.
func (q *Queries) ListPropertiesByResident(ctx context.Context, residentID int64) ([]Property, error) {
	rows, err := q.db.Query(ctx, `
        SELECT p.id, p.resident_id, p.council_id, p.address, p.property_type, p.zone, p.land_size_sqm,
               p.land_value_cents, p.property_value_cents, p.gps_coordinates, p.shape_file_data,
               c.name, c.logo_url
        FROM properties p
        LEFT JOIN councils c ON c.id = p.council_id
        WHERE p.resident_id = $1
        ORDER BY p.id ASC`, residentID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (Property, error) {
		var p Property
		err := row.Scan(&p.ID, &p.ResidentID, &p.CouncilID, &p.Address, &p.PropertyType, &p.Zone, &p.LandSizeSqm,
			&p.LandValueCents, &p.PropertyValueCents, &p.GPSCoordinates, &p.ShapeFileData,
			&p.CouncilName, &p.CouncilLogoURL)
		return p, err
	})
}

// GetRatesAccountByProperty returns the property's rates account.
func (q *Queries) GetRatesAccountByProperty(ctx context.Context, propertyID int64) (RatesAccount, error) {
	var a RatesAccount
	err := q.db.QueryRow(ctx, `
        SELECT id, property_id, account_number, balance_cents, next_due_date, instalment_plan, direct_debit_active, ebill_active
        FROM rates_accounts
        WHERE property_id = $1`, propertyID).
		Scan(&a.ID, &a.PropertyID, &a.AccountNumber, &a.BalanceCents, &a.NextDueDate, &a.InstalmentPlan, &a.DirectDebitActive, &a.EbillActive)
	if err != nil {
		return RatesAccount{}, mapRowErr(err)
	}
	if a.InstalmentPlan == nil {
		a.InstalmentPlan = []Instalment{}
	}
	return a, nil
}

// ListRatesInvoices returns up to limit invoices of an account, newest first.
func (q *Queries) ListRatesInvoices(ctx context.Context, accountID int64, limit int) ([]RatesInvoice, error) {
	rows, err := q.db.Query(ctx, `
        SELECT id, account_id, issue_date, due_date, amount_cents, status, payment_method, pdf_url
        FROM rates_invoices
        WHERE account_id = $1
        ORDER BY issue_date DESC, id DESC
        LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (RatesInvoice, error) {
		var i RatesInvoice
		err := row.Scan(&i.ID, &i.AccountID, &i.IssueDate, &i.DueDate, &i.AmountCents, &i.Status, &i.PaymentMethod, &i.PDFURL)
		return i, err
	})
}

// ListValuations returns the valuation history of a property, newest year first.
func (q *Queries) ListValuations(ctx context.Context, propertyID int64) ([]Valuation, error) {
	rows, err := q.db.Query(ctx, `
        SELECT id, property_id, year, land_value_cents, capital_value_cents
        FROM valuations
        WHERE property_id = $1
        ORDER BY year DESC`, propertyID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (Valuation, error) {
		var v Valuation
		err := row.Scan(&v.ID, &v.PropertyID, &v.Year, &v.LandValueCents, &v.CapitalValueCents)
		return v, err
	})
}

// ListConcessions returns the concessions recorded for a property.
func (q *Queries) ListConcessions(ctx context.Context, propertyID int64) ([]Concession, error) {
	rows, err := q.db.Query(ctx, `
        SELECT id, property_id, type, status, link_apply
        FROM concessions
        WHERE property_id = $1
        ORDER BY id`, propertyID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (Concession, error) {
		var c Concession
		err := row.Scan(&c.ID, &c.PropertyID, &c.Type, &c.Status, &c.LinkApply)
		return c, err
	})
}

// ListOverlays returns the planning overlays of a property.
func (q *Queries) ListOverlays(ctx context.Context, propertyID int64) ([]PropertyOverlay, error) {
	rows, err := q.db.Query(ctx, `
        SELECT id, property_id, kind, source, note
        FROM property_overlays
        WHERE property_id = $1
        ORDER BY id`, propertyID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (PropertyOverlay, error) {
		var o PropertyOverlay
		err := row.Scan(&o.ID, &o.PropertyID, &o.Kind, &o.Source, &o.Note)
		return o, err
	})
}

// GetWasteEntitlement returns the bin service of a property.
func (q *Queries) GetWasteEntitlement(ctx context.Context, propertyID int64) (WasteEntitlement, error) {
	var w WasteEntitlement
	err := q.db.QueryRow(ctx, `
        SELECT id, property_id, bin_size_l, extra_bins, collection_day, service_notes
        FROM waste_entitlements
        WHERE property_id = $1`, propertyID).
		Scan(&w.ID, &w.PropertyID, &w.BinSizeL, &w.ExtraBins, &w.CollectionDay, &w.ServiceNotes)
	return w, mapRowErr(err)
}

// GetCouncilContact returns the self-service links of a council.
func (q *Queries) GetCouncilContact(ctx context.Context, councilID int64) (CouncilContact, error) {
	var c CouncilContact
	err := q.db.QueryRow(ctx, `
        SELECT council_id, query_valuation_url, apply_concession_url, change_address_url
        FROM council_contacts
        WHERE council_id = $1`, councilID).
		Scan(&c.CouncilID, &c.QueryValuationURL, &c.ApplyConcessionURL, &c.ChangeAddressURL)
	return c, mapRowErr(err)
}

// ListWaterConsumptions returns up to limit meter readings of a property, newest first.
func (q *Queries) ListWaterConsumptions(ctx context.Context, propertyID int64, limit int) ([]WaterConsumption, error) {
	rows, err := q.db.Query(ctx, `
        SELECT id, property_id, reading_date, usage_litres, amount_cents
        FROM water_consumptions
        WHERE property_id = $1
        ORDER BY reading_date DESC, id DESC
        LIMIT $2`, propertyID, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (WaterConsumption, error) {
		var w WaterConsumption
		err := row.Scan(&w.ID, &w.PropertyID, &w.ReadingDate, &w.UsageLitres, &w.AmountCents)
		return w, err
	})
}
