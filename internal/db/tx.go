package db

import (
	"context"
	"database/sql"
)

// MakeTx begins a transaction and returns queries bound to it.
type MakeTx = func(ctx context.Context) (tx *Queries, discard, commit func() error, err error)

func NewMakeTx(database *sql.DB) MakeTx {
	return func(ctx context.Context) (tx *Queries, discard, commit func() error, err error) {
		sqltx, err := database.BeginTx(ctx, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		return New(sqltx),
			func() error {
				return sqltx.Rollback()
			},
			func() error {
				return sqltx.Commit()
			},
			nil
	}
}
