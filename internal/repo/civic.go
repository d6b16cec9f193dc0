package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// ListWasteCollectionsByCouncil returns a council's collection schedules.
func (q *Queries) ListWasteCollectionsByCouncil(ctx context.Context, councilID int64) ([]WasteCollection, error) {
	rows, err := q.db.Query(ctx, `
        SELECT id, council_id, collection_type, collection_day, collection_frequency, next_collection_date
        FROM waste_collections
        WHERE council_id = $1
        ORDER BY id`, councilID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (WasteCollection, error) {
		var w WasteCollection
		err := row.Scan(&w.ID, &w.CouncilID, &w.CollectionType, &w.CollectionDay, &w.CollectionFrequency, &w.NextCollectionDate)
		return w, err
	})
}

// ListAnimalsByStatus returns every animal with the given status, across councils.
func (q *Queries) ListAnimalsByStatus(ctx context.Context, status string) ([]Animal, error) {
	rows, err := q.db.Query(ctx, `
        SELECT id, council_id, name, species, breed, sex, age, temperament, main_photo_url, status
        FROM animals
        WHERE status = $1
        ORDER BY id`, status)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (Animal, error) {
		var a Animal
		err := row.Scan(&a.ID, &a.CouncilID, &a.Name, &a.Species, &a.Breed, &a.Sex, &a.Age, &a.Temperament, &a.MainPhotoURL, &a.Status)
		return a, err
	})
}

// ListDevelopmentApplicationsByResident returns a resident's planning applications.
func (q *Queries) ListDevelopmentApplicationsByResident(ctx context.Context, residentID int64) ([]DevelopmentApplication, error) {
	rows, err := q.db.Query(ctx, `
        SELECT d.id, d.resident_id, d.property_id, d.council_id, d.application_type, d.status,
               d.submission_date, d.approval_date, d.estimated_cost_cents, d.description,
               p.address, c.name, c.logo_url
        FROM development_applications d
        LEFT JOIN properties p ON p.id = d.property_id
        LEFT JOIN councils c ON c.id = d.council_id
        WHERE d.resident_id = $1
        ORDER BY d.submission_date DESC NULLS LAST, d.id DESC`, residentID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (DevelopmentApplication, error) {
		var d DevelopmentApplication
		err := row.Scan(&d.ID, &d.ResidentID, &d.PropertyID, &d.CouncilID, &d.ApplicationType, &d.Status,
			&d.SubmissionDate, &d.ApprovalDate, &d.EstimatedCostCents, &d.Description,
			&d.PropertyAddress, &d.CouncilName, &d.CouncilLogoURL)
		return d, err
	})
}
