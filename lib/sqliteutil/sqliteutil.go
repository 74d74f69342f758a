// Package sqliteutil opens the property database, either a local sqlite file
// or a remote libsql server.
package sqliteutil

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type config struct {
	busyTimeout int
	synchronous string
	schemas     []string
}

type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithSynchronous sets PRAGMA synchronous. Default: "NORMAL".
func WithSynchronous(mode string) Option { return func(c *config) { c.synchronous = mode } }

// WithSchema queues SQL to execute once the database is open.
func WithSchema(s string) Option { return func(c *config) { c.schemas = append(c.schemas, s) } }

// IsRemote reports whether dsn points at a libsql server rather than a file.
func IsRemote(dsn string) bool {
	for _, prefix := range []string{"libsql://", "http://", "https://", "ws://", "wss://"} {
		if strings.HasPrefix(dsn, prefix) {
			return true
		}
	}
	return false
}

// Open opens dsn, creating the file and its directory when it is local.
func Open(dsn string, opts ...Option) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("a database was not specified")
	}
	cfg := config{busyTimeout: 10_000, synchronous: "NORMAL"}
	for _, o := range opts {
		o(&cfg)
	}

	var db *sql.DB
	var err error
	if IsRemote(dsn) {
		db, err = sql.Open("libsql", dsn)
		if err != nil {
			return nil, err
		}
	} else {
		db, err = openLocal(dsn, cfg)
		if err != nil {
			return nil, err
		}
	}

	for _, s := range cfg.schemas {
		_, err = db.Exec(s)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("exec schema: %w", err)
		}
	}
	return db, nil
}

func openLocal(path string, cfg config) (*sql.DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0755)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer, and every connection to :memory: is a
	// separate database
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		fmt.Sprintf("PRAGMA synchronous = %s", cfg.synchronous),
	}
	for _, p := range pragmas {
		_, err = db.Exec(p)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return db, nil
}

// OpenMemory opens an in-memory database that is closed when the test ends.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("open memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
