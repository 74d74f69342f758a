package db

import (
	"context"
)

const getBid = `-- name: GetBid :one
select pin, bid, overbid, updated_at from bid_overbid
where pin = ?
`

func (q *Queries) GetBid(ctx context.Context, pin string) (BidOverbid, error) {
	row := q.db.QueryRowContext(ctx, getBid, pin)
	var i BidOverbid
	err := row.Scan(&i.Pin, &i.Bid, &i.Overbid, &i.UpdatedAt)
	return i, err
}

const upsertBid = `-- name: UpsertBid :exec
insert into bid_overbid (pin, bid, overbid, updated_at)
values (?, ?, ?, ?)
on conflict (pin) do update set
    bid = excluded.bid,
    overbid = excluded.overbid,
    updated_at = excluded.updated_at
`

func (q *Queries) UpsertBid(ctx context.Context, arg BidOverbid) error {
	_, err := q.db.ExecContext(ctx, upsertBid,
		arg.Pin,
		arg.Bid,
		arg.Overbid,
		arg.UpdatedAt,
	)
	return err
}

const listBids = `-- name: ListBids :many
select pin, bid, overbid, updated_at from bid_overbid
order by pin asc
`

func (q *Queries) ListBids(ctx context.Context) ([]BidOverbid, error) {
	rows, err := q.db.QueryContext(ctx, listBids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BidOverbid
	for rows.Next() {
		var i BidOverbid
		if err := rows.Scan(&i.Pin, &i.Bid, &i.Overbid, &i.UpdatedAt); err != nil {
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
