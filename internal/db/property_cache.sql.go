package db

import (
	"context"
)

const getCacheEntry = `-- name: GetCacheEntry :one
select pin, source, payload, error, error_code, fetched_at from property_cache
where pin = ? and source = ?
`

type GetCacheEntryParams struct {
	Pin    string
	Source string
}

func (q *Queries) GetCacheEntry(ctx context.Context, arg GetCacheEntryParams) (PropertyCache, error) {
	row := q.db.QueryRowContext(ctx, getCacheEntry, arg.Pin, arg.Source)
	var i PropertyCache
	err := row.Scan(
		&i.Pin,
		&i.Source,
		&i.Payload,
		&i.Error,
		&i.ErrorCode,
		&i.FetchedAt,
	)
	return i, err
}

const upsertCacheEntry = `-- name: UpsertCacheEntry :exec
insert into property_cache (pin, source, payload, error, error_code, fetched_at)
values (?, ?, ?, ?, ?, ?)
on conflict (pin, source) do update set
    payload = excluded.payload,
    error = excluded.error,
    error_code = excluded.error_code,
    fetched_at = excluded.fetched_at
`

func (q *Queries) UpsertCacheEntry(ctx context.Context, arg PropertyCache) error {
	_, err := q.db.ExecContext(ctx, upsertCacheEntry,
		arg.Pin,
		arg.Source,
		arg.Payload,
		arg.Error,
		arg.ErrorCode,
		arg.FetchedAt,
	)
	return err
}

const deleteCacheEntriesForPin = `-- name: DeleteCacheEntriesForPin :execrows
delete from property_cache where pin = ?
`

func (q *Queries) DeleteCacheEntriesForPin(ctx context.Context, pin string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCacheEntriesForPin, pin)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAllCacheEntries = `-- name: DeleteAllCacheEntries :execrows
delete from property_cache
`

func (q *Queries) DeleteAllCacheEntries(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAllCacheEntries)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listStaleCacheEntries = `-- name: ListStaleCacheEntries :many
select pin, source, payload, error, error_code, fetched_at from property_cache
where fetched_at < ?
order by fetched_at asc
limit ?
`

type ListStaleCacheEntriesParams struct {
	Before int64
	Limit  int64
}

func (q *Queries) ListStaleCacheEntries(ctx context.Context, arg ListStaleCacheEntriesParams) ([]PropertyCache, error) {
	rows, err := q.db.QueryContext(ctx, listStaleCacheEntries, arg.Before, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PropertyCache
	for rows.Next() {
		var i PropertyCache
		if err := rows.Scan(
			&i.Pin,
			&i.Source,
			&i.Payload,
			&i.Error,
			&i.ErrorCode,
			&i.FetchedAt,
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

const countCacheEntries = `-- name: CountCacheEntries :one
select count(*) from property_cache
`

func (q *Queries) CountCacheEntries(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countCacheEntries)
	var count int64
	err := row.Scan(&count)
	return count, err
}
