// Package bids stores the bid and overbid amounts an investor records for a
// property.
package bids

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/assert"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/db"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
)

// ErrInvalidAmount is wrapped by every amount validation failure.
var ErrInvalidAmount = errors.New("invalid amount")

var amountRegex = regexp.MustCompile(`^\d+(\.\d+)?$`)

var amountReplacer = strings.NewReplacer("$", "", ",", "")

// ValidateAmount normalizes a user entered amount ("$1,250.50" becomes
// "1250.50"). An empty result means the amount was cleared.
func ValidateAmount(s string) (string, error) {
	normalized := amountReplacer.Replace(strings.TrimSpace(s))
	if normalized == "" {
		return "", nil
	}
	if !amountRegex.MatchString(normalized) {
		return "", fmt.Errorf("%w '%s'", ErrInvalidAmount, s)
	}
	return normalized, nil
}

// Bid is the bid and overbid of a property, either may be unset.
type Bid struct {
	PIN       string     `json:"pin"`
	Bid       *string    `json:"bid"`
	Overbid   *string    `json:"overbid"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type Store struct {
	qry  *db.Queries
	time chrono.TimeAPI
}

func NewStore(database *sql.DB, time chrono.TimeAPI) Store {
	assert.NotNil(database, "database")
	assert.NotNil(time, "time")
	return Store{qry: db.New(database), time: time}
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func toBid(row db.BidOverbid) Bid {
	updatedAt := time.UnixMilli(row.UpdatedAt).In(chrono.Chicago())
	return Bid{
		PIN:       row.Pin,
		Bid:       nullable(row.Bid),
		Overbid:   nullable(row.Overbid),
		UpdatedAt: &updatedAt,
	}
}

func unavailable(op string, err error) error {
	return property.NewError(property.CodeBackendUnavailable, "", fmt.Errorf("%s: %w", op, err))
}

// Get returns the bid of the PIN in pinStr, a PIN without a stored bid has
// both amounts unset.
func (s Store) Get(ctx context.Context, pinStr string) (Bid, error) {
	p, err := pin.Parse(pinStr)
	if err != nil {
		return Bid{}, err
	}
	row, err := s.qry.GetBid(ctx, p.String())
	if errors.Is(err, sql.ErrNoRows) {
		return Bid{PIN: p.String()}, nil
	}
	if err != nil {
		return Bid{}, unavailable("get bid", err)
	}
	return toBid(row), nil
}

func validated(amount *string) (sql.NullString, error) {
	if amount == nil {
		return sql.NullString{}, nil
	}
	normalized, err := ValidateAmount(*amount)
	if err != nil {
		return sql.NullString{}, err
	}
	if normalized == "" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: normalized, Valid: true}, nil
}

// Upsert replaces both amounts of a PIN, nil or blank amounts are stored as
// unset.
func (s Store) Upsert(ctx context.Context, pinStr string, bid, overbid *string) (Bid, error) {
	p, err := pin.Parse(pinStr)
	if err != nil {
		return Bid{}, err
	}
	bidValue, err := validated(bid)
	if err != nil {
		return Bid{}, fmt.Errorf("bid: %w", err)
	}
	overbidValue, err := validated(overbid)
	if err != nil {
		return Bid{}, fmt.Errorf("overbid: %w", err)
	}

	row := db.BidOverbid{
		Pin:       p.String(),
		Bid:       bidValue,
		Overbid:   overbidValue,
		UpdatedAt: s.time.Now().UnixMilli(),
	}
	err = s.qry.UpsertBid(ctx, row)
	if err != nil {
		return Bid{}, unavailable("upsert bid", err)
	}
	return toBid(row), nil
}

// List returns every stored bid ordered by PIN.
func (s Store) List(ctx context.Context) ([]Bid, error) {
	rows, err := s.qry.ListBids(ctx)
	if err != nil {
		return nil, unavailable("list bids", err)
	}
	out := make([]Bid, len(rows))
	for i, row := range rows {
		out[i] = toBid(row)
	}
	return out, nil
}
