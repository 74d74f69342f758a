package db

import "database/sql"

type PropertyCache struct {
	Pin       string
	Source    string
	Payload   sql.NullString
	Error     string
	ErrorCode string
	FetchedAt int64
}

type BidOverbid struct {
	Pin       string
	Bid       sql.NullString
	Overbid   sql.NullString
	UpdatedAt int64
}

type ImportJob struct {
	ID        string
	Status    string
	Total     int64
	Completed int64
	Failed    int64
	CreatedAt int64
	UpdatedAt int64
}

type ImportPin struct {
	JobID     string
	Pin       string
	Position  int64
	Status    string
	Error     string
	UpdatedAt int64
}
