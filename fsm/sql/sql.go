// Package sql provides a persistent fsm.Storage backend over
// database/sql, supporting Postgres (github.com/lib/pq) and SQLite
// (modernc.org/sqlite) as peer drivers, mirroring the project convention
// of a single storage table with a driver-selected dialect.
package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/hrygo/maxbot/chats"
	"github.com/hrygo/maxbot/fsm"
)

// Driver selects the SQL dialect used for the upsert statement.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS fsm_state (
	storage_key TEXT PRIMARY KEY,
	state       TEXT NOT NULL DEFAULT '',
	data        TEXT NOT NULL DEFAULT '{}'
)`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS fsm_state (
	storage_key TEXT PRIMARY KEY,
	state       TEXT NOT NULL DEFAULT '',
	data        TEXT NOT NULL DEFAULT '{}'
)`

// Storage is a database/sql-backed fsm.Storage. Open with New, passing the
// Driver matching the driver name ("postgres" or "sqlite") sql.Open was
// called with.
type Storage struct {
	db     *sql.DB
	driver Driver
}

// New opens the backing table (creating it if absent) and returns a
// Storage. db must already be connected; New does not call db.Ping.
func New(ctx context.Context, db *sql.DB, driver Driver) (*Storage, error) {
	schema := schemaPostgres
	if driver == DriverSQLite {
		schema = schemaSQLite
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, errors.Wrap(err, "fsm/sql: create schema")
	}
	return &Storage{db: db, driver: driver}, nil
}

func (s *Storage) GetState(ctx context.Context, key chats.StorageKey) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT state FROM fsm_state WHERE storage_key = `+s.placeholder(1), key.String())
	var state string
	if err := row.Scan(&state); err == sql.ErrNoRows {
		return "", nil
	} else if err != nil {
		return "", errors.Wrap(err, "fsm/sql: get state")
	}
	return state, nil
}

func (s *Storage) SetState(ctx context.Context, key chats.StorageKey, state string) error {
	return s.upsert(ctx, key, &state, nil)
}

func (s *Storage) GetData(ctx context.Context, key chats.StorageKey) (map[string]any, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM fsm_state WHERE storage_key = `+s.placeholder(1), key.String())
	var raw string
	if err := row.Scan(&raw); err == sql.ErrNoRows {
		return map[string]any{}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "fsm/sql: get data")
	}
	if raw == "" {
		return map[string]any{}, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, errors.Wrap(err, "fsm/sql: decode data")
	}
	return data, nil
}

func (s *Storage) SetData(ctx context.Context, key chats.StorageKey, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "fsm/sql: encode data")
	}
	rawStr := string(raw)
	return s.upsert(ctx, key, nil, &rawStr)
}

// UpdateData serializes concurrent callers for the same key behind a
// transaction. Postgres uses SELECT ... FOR UPDATE to take a row lock;
// SQLite (single-writer by nature) relies on database/sql serializing
// writes against the file and a plain SELECT within the transaction.
func (s *Storage) UpdateData(ctx context.Context, key chats.StorageKey, fn func(map[string]any) map[string]any) (map[string]any, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "fsm/sql: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	selectStmt := `SELECT data FROM fsm_state WHERE storage_key = ` + s.placeholder(1)
	if s.driver == DriverPostgres {
		selectStmt += ` FOR UPDATE`
	}
	row := tx.QueryRowContext(ctx, selectStmt, key.String())
	var raw string
	switch err := row.Scan(&raw); {
	case err == sql.ErrNoRows:
		raw = "{}"
	case err != nil:
		return nil, errors.Wrap(err, "fsm/sql: lock row")
	}

	var current map[string]any
	if raw == "" {
		current = map[string]any{}
	} else if err := json.Unmarshal([]byte(raw), &current); err != nil {
		return nil, errors.Wrap(err, "fsm/sql: decode data")
	}

	updated := fn(current)
	encoded, err := json.Marshal(updated)
	if err != nil {
		return nil, errors.Wrap(err, "fsm/sql: encode update")
	}

	upsertStmt := s.upsertStatement("data")
	if _, err := tx.ExecContext(ctx, upsertStmt, key.String(), "", string(encoded)); err != nil {
		return nil, errors.Wrap(err, "fsm/sql: write update")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "fsm/sql: commit")
	}
	return updated, nil
}

func (s *Storage) Clear(ctx context.Context, key chats.StorageKey) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM fsm_state WHERE storage_key = `+s.placeholder(1), key.String())
	if err != nil {
		return errors.Wrap(err, "fsm/sql: clear")
	}
	return nil
}

// Close closes the underlying *sql.DB.
func (s *Storage) Close() error {
	return s.db.Close()
}

// upsert writes state and/or data for key, preserving whichever of the
// two is nil by re-reading the current row first. Called outside a
// transaction: SetState/SetData are whole-field overwrites, not
// read-modify-write, so no atomicity guarantee beyond the single
// statement is required here (see UpdateData for the atomic path).
func (s *Storage) upsert(ctx context.Context, key chats.StorageKey, state, data *string) error {
	curState, curData := "", "{}"
	row := s.db.QueryRowContext(ctx, `SELECT state, data FROM fsm_state WHERE storage_key = `+s.placeholder(1), key.String())
	if err := row.Scan(&curState, &curData); err != nil && err != sql.ErrNoRows {
		return errors.Wrap(err, "fsm/sql: read before upsert")
	}
	if state != nil {
		curState = *state
	}
	if data != nil {
		curData = *data
	}

	stmt := s.upsertStatement("state, data")
	_, err := s.db.ExecContext(ctx, stmt, key.String(), curState, curData)
	if err != nil {
		return errors.Wrap(err, "fsm/sql: upsert")
	}
	return nil
}

// upsertStatement builds an INSERT .. ON CONFLICT for the given column
// list, which must be either "state, data" (full write) or "data" (used
// only by UpdateData, which always passes both placeholders but ignores
// the state one via the column list below).
func (s *Storage) upsertStatement(columns string) string {
	switch columns {
	case "data":
		if s.driver == DriverPostgres {
			return `INSERT INTO fsm_state (storage_key, state, data) VALUES ($1, $2, $3)
				ON CONFLICT (storage_key) DO UPDATE SET data = EXCLUDED.data`
		}
		return `INSERT INTO fsm_state (storage_key, state, data) VALUES (?, ?, ?)
			ON CONFLICT (storage_key) DO UPDATE SET data = excluded.data`
	default:
		if s.driver == DriverPostgres {
			return `INSERT INTO fsm_state (storage_key, state, data) VALUES ($1, $2, $3)
				ON CONFLICT (storage_key) DO UPDATE SET state = EXCLUDED.state, data = EXCLUDED.data`
		}
		return `INSERT INTO fsm_state (storage_key, state, data) VALUES (?, ?, ?)
			ON CONFLICT (storage_key) DO UPDATE SET state = excluded.state, data = excluded.data`
	}
}

func (s *Storage) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

var _ fsm.Storage = (*Storage)(nil)
