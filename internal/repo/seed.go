package repo

import (
	"context"
	"encoding/json"
	"errors"
)

// Seeding statements used by the operator CLI. Each one is safe to re-run:
// keyed rows are upserted, owned lists are replaced.

// UpsertCouncil inserts or refreshes a council by name and returns its id.
func (q *Queries) UpsertCouncil(ctx context.Context, c Council) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, `
        INSERT INTO councils (name, logo_url, population)
        VALUES ($1, $2, $3)
        ON CONFLICT (name) DO UPDATE SET logo_url = EXCLUDED.logo_url, population = EXCLUDED.population
        RETURNING id`, c.Name, c.LogoURL, c.Population).Scan(&id)
	return id, err
}

// UpsertCouncilContact sets the self-service links of a council.
func (q *Queries) UpsertCouncilContact(ctx context.Context, c CouncilContact) error {
	_, err := q.db.Exec(ctx, `
        INSERT INTO council_contacts (council_id, query_valuation_url, apply_concession_url, change_address_url)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (council_id) DO UPDATE SET
            query_valuation_url = EXCLUDED.query_valuation_url,
            apply_concession_url = EXCLUDED.apply_concession_url,
            change_address_url = EXCLUDED.change_address_url`,
		c.CouncilID, c.QueryValuationURL, c.ApplyConcessionURL, c.ChangeAddressURL)
	return mapWriteErr(err)
}

// UpsertResident creates a resident or refreshes name and password of an existing one.
func (q *Queries) UpsertResident(ctx context.Context, arg CreateResidentParams) (Resident, error) {
	row := q.db.QueryRow(ctx, `
        INSERT INTO residents (name, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, password_hash = EXCLUDED.password_hash
        RETURNING `+residentColumns,
		arg.Name, arg.Email, arg.PasswordHash, arg.CreatedAt)
	return scanResident(row)
}

// EnsureProperty returns the id of the resident's property at p.Address, inserting it if missing.
func (q *Queries) EnsureProperty(ctx context.Context, p Property) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, `SELECT id FROM properties WHERE resident_id = $1 AND address = $2`, p.ResidentID, p.Address).Scan(&id)
	if err == nil {
		_, err = q.db.Exec(ctx, `
            UPDATE properties
            SET council_id = $2, property_type = $3, zone = $4, land_size_sqm = $5,
                land_value_cents = $6, property_value_cents = $7, gps_coordinates = $8, shape_file_data = $9
            WHERE id = $1`,
			id, p.CouncilID, p.PropertyType, p.Zone, p.LandSizeSqm,
			p.LandValueCents, p.PropertyValueCents, jsonParam(p.GPSCoordinates), jsonParam(p.ShapeFileData))
		return id, mapWriteErr(err)
	}
	if !errors.Is(mapRowErr(err), ErrNotFound) {
		return 0, err
	}

	err = q.db.QueryRow(ctx, `
        INSERT INTO properties (resident_id, council_id, address, property_type, zone, land_size_sqm,
                                land_value_cents, property_value_cents, gps_coordinates, shape_file_data)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id`,
		p.ResidentID, p.CouncilID, p.Address, p.PropertyType, p.Zone, p.LandSizeSqm,
		p.LandValueCents, p.PropertyValueCents, jsonParam(p.GPSCoordinates), jsonParam(p.ShapeFileData)).Scan(&id)
	return id, mapWriteErr(err)
}

// UpsertRatesAccount writes the rates account of a property and returns its id.
func (q *Queries) UpsertRatesAccount(ctx context.Context, a RatesAccount) (int64, error) {
	plan := a.InstalmentPlan
	if plan == nil {
		plan = []Instalment{}
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return 0, err
	}

	var id int64
	err = q.db.QueryRow(ctx, `
        INSERT INTO rates_accounts (property_id, account_number, balance_cents, next_due_date, instalment_plan, direct_debit_active, ebill_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (property_id) DO UPDATE SET
            account_number = EXCLUDED.account_number,
            balance_cents = EXCLUDED.balance_cents,
            next_due_date = EXCLUDED.next_due_date,
            instalment_plan = EXCLUDED.instalment_plan,
            direct_debit_active = EXCLUDED.direct_debit_active,
            ebill_active = EXCLUDED.ebill_active
        RETURNING id`,
		a.PropertyID, a.AccountNumber, a.BalanceCents, a.NextDueDate, string(planJSON), a.DirectDebitActive, a.EbillActive).Scan(&id)
	return id, mapWriteErr(err)
}

// ReplaceRatesInvoices swaps the invoices of an account for the given list.
func (q *Queries) ReplaceRatesInvoices(ctx context.Context, accountID int64, invoices []RatesInvoice) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM rates_invoices WHERE account_id = $1`, accountID); err != nil {
		return err
	}
	for _, inv := range invoices {
		_, err := q.db.Exec(ctx, `
            INSERT INTO rates_invoices (account_id, issue_date, due_date, amount_cents, status, payment_method, pdf_url)
            VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			accountID, inv.IssueDate, inv.DueDate, inv.AmountCents, inv.Status, inv.PaymentMethod, inv.PDFURL)
		if err != nil {
			return mapWriteErr(err)
		}
	}
	return nil
}

// UpsertValuation writes the valuation of one year.
func (q *Queries) UpsertValuation(ctx context.Context, v Valuation) error {
	_, err := q.db.Exec(ctx, `
        INSERT INTO valuations (property_id, year, land_value_cents, capital_value_cents)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (property_id, year) DO UPDATE SET
            land_value_cents = EXCLUDED.land_value_cents,
            capital_value_cents = EXCLUDED.capital_value_cents`,
		v.PropertyID, v.Year, v.LandValueCents, v.CapitalValueCents)
	return mapWriteErr(err)
}

// ReplaceConcessions swaps the concessions of a property.
func (q *Queries) ReplaceConcessions(ctx context.Context, propertyID int64, items []Concession) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM concessions WHERE property_id = $1`, propertyID); err != nil {
		return err
	}
	for _, c := range items {
		_, err := q.db.Exec(ctx, `INSERT INTO concessions (property_id, type, status, link_apply) VALUES ($1, $2, $3, $4)`,
			propertyID, c.Type, c.Status, c.LinkApply)
		if err != nil {
			return mapWriteErr(err)
		}
	}
	return nil
}

// ReplaceOverlays swaps the planning overlays of a property.
func (q *Queries) ReplaceOverlays(ctx context.Context, propertyID int64, items []PropertyOverlay) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM property_overlays WHERE property_id = $1`, propertyID); err != nil {
		return err
	}
	for _, o := range items {
		_, err := q.db.Exec(ctx, `INSERT INTO property_overlays (property_id, kind, source, note) VALUES ($1, $2, $3, $4)`,
			propertyID, o.Kind, o.Source, o.Note)
		if err != nil {
			return mapWriteErr(err)
		}
	}
	return nil
}

// UpsertWasteEntitlement writes the bin service of a property.
func (q *Queries) UpsertWasteEntitlement(ctx context.Context, w WasteEntitlement) error {
	_, err := q.db.Exec(ctx, `
        INSERT INTO waste_entitlements (property_id, bin_size_l, extra_bins, collection_day, service_notes)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (property_id) DO UPDATE SET
            bin_size_l = EXCLUDED.bin_size_l,
            extra_bins = EXCLUDED.extra_bins,
            collection_day = EXCLUDED.collection_day,
            service_notes = EXCLUDED.service_notes`,
		w.PropertyID, w.BinSizeL, w.ExtraBins, w.CollectionDay, w.ServiceNotes)
	return mapWriteErr(err)
}

// ReplaceWaterConsumptions swaps the meter readings of a property.
func (q *Queries) ReplaceWaterConsumptions(ctx context.Context, propertyID int64, items []WaterConsumption) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM water_consumptions WHERE property_id = $1`, propertyID); err != nil {
		return err
	}
	for _, w := range items {
		_, err := q.db.Exec(ctx, `INSERT INTO water_consumptions (property_id, reading_date, usage_litres, amount_cents) VALUES ($1, $2, $3, $4)`,
			propertyID, w.ReadingDate, w.UsageLitres, w.AmountCents)
		if err != nil {
			return mapWriteErr(err)
		}
	}
	return nil
}

// ReplaceWasteCollections swaps the collection schedules of a council.
func (q *Queries) ReplaceWasteCollections(ctx context.Context, councilID int64, items []WasteCollection) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM waste_collections WHERE council_id = $1`, councilID); err != nil {
		return err
	}
	for _, w := range items {
		_, err := q.db.Exec(ctx, `
            INSERT INTO waste_collections (council_id, collection_type, collection_day, collection_frequency, next_collection_date)
            VALUES ($1, $2, $3, $4, $5)`,
			councilID, w.CollectionType, w.CollectionDay, w.CollectionFrequency, w.NextCollectionDate)
		if err != nil {
			return mapWriteErr(err)
		}
	}
	return nil
}

// ReplaceAnimals swaps the shelter animals of a council.
func (q *Queries) ReplaceAnimals(ctx context.Context, councilID int64, items []Animal) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM animals WHERE council_id = $1`, councilID); err != nil {
		return err
	}
	for _, a := range items {
		_, err := q.db.Exec(ctx, `
            INSERT INTO animals (council_id, name, species, breed, sex, age, temperament, main_photo_url, status)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			councilID, a.Name, a.Species, a.Breed, a.Sex, a.Age, a.Temperament, a.MainPhotoURL, a.Status)
		if err != nil {
			return mapWriteErr(err)
		}
	}
	return nil
}

// ReplaceDevelopmentApplications swaps the planning applications of a resident.
func (q *Queries) ReplaceDevelopmentApplications(ctx context.Context, residentID int64, items []DevelopmentApplication) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM development_applications WHERE resident_id = $1`, residentID); err != nil {
		return err
	}
	for _, d := range items {
		_, err := q.db.Exec(ctx, `
            INSERT INTO development_applications (resident_id, property_id, council_id, application_type, status,
                                                  submission_date, approval_date, estimated_cost_cents, description)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			residentID, d.PropertyID, d.CouncilID, d.ApplicationType, d.Status,
			d.SubmissionDate, d.ApprovalDate, d.EstimatedCostCents, d.Description)
		if err != nil {
			return mapWriteErr(err)
		}
	}
	return nil
}
