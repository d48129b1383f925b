// Package cache persists parse results in SQLite, keyed by language,
// content hash, and resolution depth, so repeated runs over unchanged
// files skip parsing entirely. Sessions themselves are never persisted;
// the cache stores only their output.
package cache

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/jward/limn/wire"
)

// schemaVersion invalidates stored payloads when the encoding changes.
const schemaVersion = 1

// Cache is the SQLite data access layer for cached parse results.
type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path with WAL mode
// enabled.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("cache: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: ping database: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Migrate creates the results table. Idempotent.
func (c *Cache) Migrate() error {
	_, err := c.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("cache: migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS results (
  language  TEXT NOT NULL,
  hash      TEXT NOT NULL,
  depth     INTEGER NOT NULL,
  schema    INTEGER NOT NULL,
  payload   BLOB NOT NULL,
  PRIMARY KEY (language, hash, depth)
);
`

// Get returns the cached result for (language, hash, depth), or ok=false
// on a miss. Payloads written under a different schema version count as
// misses.
func (c *Cache) Get(language, hash string, depth int) (*wire.ParseResult, bool, error) {
	var schema int
	var payload []byte
	err := c.db.QueryRow(
		`SELECT schema, payload FROM results WHERE language = ? AND hash = ? AND depth = ?`,
		language, hash, depth,
	).Scan(&schema, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get: %w", err)
	}
	if schema != schemaVersion {
		return nil, false, nil
	}

	var res wire.ParseResult
	if err := msgpack.Unmarshal(payload, &res); err != nil {
		return nil, false, fmt.Errorf("cache: decode payload: %w", err)
	}
	return &res, true, nil
}

// Put stores res under (language, hash, depth), replacing any previous
// entry.
func (c *Cache) Put(language, hash string, depth int, res *wire.ParseResult) error {
	payload, err := msgpack.Marshal(res)
	if err != nil {
		return fmt.Errorf("cache: encode payload: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO results (language, hash, depth, schema, payload) VALUES (?, ?, ?, ?, ?)`,
		language, hash, depth, schemaVersion, payload,
	)
	if err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}
	return nil
}
