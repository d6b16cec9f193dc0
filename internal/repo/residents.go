package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const residentColumns = `id, name, email, password_hash, is_admin, created_at`

// CreateResident inserts a resident; a duplicate email yields ErrConflict.
func (q *Queries) CreateResident(ctx context.Context, arg CreateResidentParams) (Resident, error) {
	row := q.db.QueryRow(ctx, `
        INSERT INTO residents (name, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING `+residentColumns,
		arg.Name, arg.Email, arg.PasswordHash, arg.CreatedAt)

	r, err := scanResident(row)
	if err != nil {
		return Resident{}, mapWriteErr(err)
	}
	return r, nil
}

// GetResidentByEmail looks a resident up by (normalised) email.
func (q *Queries) GetResidentByEmail(ctx context.Context, email string) (Resident, error) {
	row := q.db.QueryRow(ctx, `SELECT `+residentColumns+` FROM residents WHERE email = $1`, email)
	r, err := scanResident(row)
	return r, mapRowErr(err)
}

// GetResidentByID looks a resident up by id.
func (q *Queries) GetResidentByID(ctx context.Context, id int64) (Resident, error) {
	row := q.db.QueryRow(ctx, `SELECT `+residentColumns+` FROM residents WHERE id = $1`, id)
	r, err := scanResident(row)
	return r, mapRowErr(err)
}

// SetResidentAdmin grants or revokes the admin flag.
func (q *Queries) SetResidentAdmin(ctx context.Context, email string, admin bool) error {
	cmd, err := q.db.Exec(ctx, `UPDATE residents SET is_admin = $2 WHERE email = $1`, email, admin)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanResident(row pgx.Row) (Resident, error) {
	var r Resident
	err := row.Scan(&r.ID, &r.Name, &r.Email, &r.PasswordHash, &r.IsAdmin, &r.CreatedAt)
	return r, err
}
