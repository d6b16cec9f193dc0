package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const processColumns = `id, resident_id, category, title, description, form_data, status, submitted_at, updated_at`

// CreateProcess inserts a process submitted by a resident.
func (q *Queries) CreateProcess(ctx context.Context, arg CreateProcessParams) (Process, error) {
	row := q.db.QueryRow(ctx, `
        INSERT INTO processes (resident_id, category, title, description, form_data, status, submitted_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
        RETURNING `+processColumns,
		arg.ResidentID, arg.Category, arg.Title, arg.Description, jsonParam(arg.FormData), arg.Status, arg.At)
	p, err := scanProcess(row)
	if err != nil {
		return Process{}, mapWriteErr(err)
	}
	return p, nil
}

// GetProcess loads a process regardless of owner.
func (q *Queries) GetProcess(ctx context.Context, id int64) (Process, error) {
	row := q.db.QueryRow(ctx, `SELECT `+processColumns+` FROM processes WHERE id = $1`, id)
	p, err := scanProcess(row)
	return p, mapRowErr(err)
}

// GetProcessForResident loads a process owned by residentID.
func (q *Queries) GetProcessForResident(ctx context.Context, id, residentID int64) (Process, error) {
	row := q.db.QueryRow(ctx, `SELECT `+processColumns+` FROM processes WHERE id = $1 AND resident_id = $2`, id, residentID)
	p, err := scanProcess(row)
	return p, mapRowErr(err)
}

// ListProcessesByResident returns a resident's processes, newest first.
func (q *Queries) ListProcessesByResident(ctx context.Context, residentID int64) ([]Process, error) {
	rows, err := q.db.Query(ctx, `
        SELECT `+processColumns+`
        FROM processes
        WHERE resident_id = $1
        ORDER BY submitted_at DESC, id DESC`, residentID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanProcess)
}

// ListProcessesByCategory returns a resident's processes in one category.
func (q *Queries) ListProcessesByCategory(ctx context.Context, residentID int64, category string) ([]Process, error) {
	rows, err := q.db.Query(ctx, `
        SELECT `+processColumns+`
        FROM processes
        WHERE resident_id = $1 AND category = $2
        ORDER BY submitted_at DESC, id DESC`, residentID, category)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanProcess)
}

// ListAllProcesses returns every process in storage.
func (q *Queries) ListAllProcesses(ctx context.Context) ([]Process, error) {
	rows, err := q.db.Query(ctx, `SELECT `+processColumns+` FROM processes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanProcess)
}

// UpdateProcess applies a partial update to a process owned by arg.ResidentID.
// updated_at always moves forward, even when the clock does not.
func (q *Queries) UpdateProcess(ctx context.Context, arg UpdateProcessParams) (Process, error) {
	setParts := []string{}
	args := []any{}
	idx := 1

	add := func(column string, value any) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}

	if arg.Title != nil {
		add("title", *arg.Title)
	}
	if arg.Description != nil {
		add("description", *arg.Description)
	}
	if arg.Category != nil {
		add("category", *arg.Category)
	}
	if arg.Status != nil {
		add("status", *arg.Status)
	}
	if arg.FormData != nil {
		add("form_data", jsonParam(arg.FormData))
	}

	setParts = append(setParts, fmt.Sprintf("updated_at = GREATEST($%d, updated_at + interval '1 microsecond')", idx))
	args = append(args, arg.At, arg.ID, arg.ResidentID)

	query := fmt.Sprintf(`
        UPDATE processes
        SET %s
        WHERE id = $%d AND resident_id = $%d
        RETURNING `+processColumns, strings.Join(setParts, ", "), idx+1, idx+2)

	p, err := scanProcess(q.db.QueryRow(ctx, query, args...))
	return p, mapRowErr(err)
}

// UpdateProcessStatus overwrites the status of any process.
func (q *Queries) UpdateProcessStatus(ctx context.Context, id int64, status string, at time.Time) (Process, error) {
	row := q.db.QueryRow(ctx, `
        UPDATE processes
        SET status = $2, updated_at = GREATEST($3, updated_at + interval '1 microsecond')
        WHERE id = $1
        RETURNING `+processColumns, id, status, at)
	p, err := scanProcess(row)
	return p, mapRowErr(err)
}

// DeleteProcess removes a process owned by residentID.
func (q *Queries) DeleteProcess(ctx context.Context, id, residentID int64) error {
	cmd, err := q.db.Exec(ctx, `DELETE FROM processes WHERE id = $1 AND resident_id = $2`, id, residentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProcess(row pgx.Row) (Process, error) {
	var p Process
	err := row.Scan(&p.ID, &p.ResidentID, &p.Category, &p.Title, &p.Description, &p.FormData, &p.Status, &p.SubmittedAt, &p.UpdatedAt)
	return p, err
}

// jsonParam sends a raw JSON document, or NULL when empty.
func jsonParam(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
