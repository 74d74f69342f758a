package db

import (
	"context"
)

const createImportJob = `-- name: CreateImportJob :exec
insert into import_job (id, status, total, completed, failed, created_at, updated_at)
values (?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateImportJob(ctx context.Context, arg ImportJob) error {
	_, err := q.db.ExecContext(ctx, createImportJob,
		arg.ID,
		arg.Status,
		arg.Total,
		arg.Completed,
		arg.Failed,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getImportJob = `-- name: GetImportJob :one
select id, status, total, completed, failed, created_at, updated_at from import_job
where id = ?
`

func (q *Queries) GetImportJob(ctx context.Context, id string) (ImportJob, error) {
	row := q.db.QueryRowContext(ctx, getImportJob, id)
	var i ImportJob
	err := row.Scan(
		&i.ID,
		&i.Status,
		&i.Total,
		&i.Completed,
		&i.Failed,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const setImportJobStatus = `-- name: SetImportJobStatus :exec
update import_job set status = ?, updated_at = ?
where id = ?
`

type SetImportJobStatusParams struct {
	Status    string
	UpdatedAt int64
	ID        string
}

func (q *Queries) SetImportJobStatus(ctx context.Context, arg SetImportJobStatusParams) error {
	_, err := q.db.ExecContext(ctx, setImportJobStatus, arg.Status, arg.UpdatedAt, arg.ID)
	return err
}

const incrementImportJob = `-- name: IncrementImportJob :exec
update import_job set
    completed = completed + ?,
    failed = failed + ?,
    updated_at = ?
where id = ?
`

type IncrementImportJobParams struct {
	Completed int64
	Failed    int64
	UpdatedAt int64
	ID        string
}

func (q *Queries) IncrementImportJob(ctx context.Context, arg IncrementImportJobParams) error {
	_, err := q.db.ExecContext(ctx, incrementImportJob,
		arg.Completed,
		arg.Failed,
		arg.UpdatedAt,
		arg.ID,
	)
	return err
}

const createImportPin = `-- name: CreateImportPin :exec
insert into import_pin (job_id, pin, position, status, error, updated_at)
values (?, ?, ?, ?, ?, ?)
on conflict (job_id, pin) do nothing
`

func (q *Queries) CreateImportPin(ctx context.Context, arg ImportPin) error {
	_, err := q.db.ExecContext(ctx, createImportPin,
		arg.JobID,
		arg.Pin,
		arg.Position,
		arg.Status,
		arg.Error,
		arg.UpdatedAt,
	)
	return err
}

const setImportPinStatus = `-- name: SetImportPinStatus :exec
update import_pin set status = ?, error = ?, updated_at = ?
where job_id = ? and pin = ?
`

type SetImportPinStatusParams struct {
	Status    string
	Error     string
	UpdatedAt int64
	JobID     string
	Pin       string
}

func (q *Queries) SetImportPinStatus(ctx context.Context, arg SetImportPinStatusParams) error {
	_, err := q.db.ExecContext(ctx, setImportPinStatus,
		arg.Status,
		arg.Error,
		arg.UpdatedAt,
		arg.JobID,
		arg.Pin,
	)
	return err
}

const listImportPins = `-- name: ListImportPins :many
select job_id, pin, position, status, error, updated_at from import_pin
where job_id = ?
order by position asc
`

func (q *Queries) ListImportPins(ctx context.Context, jobID string) ([]ImportPin, error) {
	rows, err := q.db.QueryContext(ctx, listImportPins, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ImportPin
	for rows.Next() {
		var i ImportPin
		if err := rows.Scan(
			&i.JobID,
			&i.Pin,
			&i.Position,
			&i.Status,
			&i.Error,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
