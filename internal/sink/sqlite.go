package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/dominspect/dbopen"
	"github.com/hazyhaar/dominspect/idgen"
	"github.com/hazyhaar/dominspect/inspect"
)

// eventSchema is the DDL for the event log table. Applied on open; safe to
// re-apply.
const eventSchema = `
CREATE TABLE IF NOT EXISTS inspector_events (
    event_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    new_value TEXT,
    old_value TEXT,
    timestamp INTEGER NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_inspector_events_name_time
    ON inspector_events(name, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_inspector_events_created
    ON inspector_events(created_at DESC);
`

// SQLite is a sink that appends every event to a local SQLite log, so an
// inspection session can be replayed or queried after the browser is gone.
type SQLite struct {
	db    *sql.DB
	newID idgen.Generator
}

// SQLiteOption configures a SQLite sink.
type SQLiteOption func(*SQLite)

// WithEventIDGenerator sets a custom generator for event row IDs.
func WithEventIDGenerator(gen idgen.Generator) SQLiteOption {
	return func(s *SQLite) { s.newID = gen }
}

// NewSQLite wraps an existing database handle. The event schema is assumed
// to be applied already (OpenSQLite does this).
func NewSQLite(db *sql.DB, opts ...SQLiteOption) *SQLite {
	s := &SQLite{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OpenSQLite opens (or creates) an event log database at path.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLite, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(eventSchema))
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return NewSQLite(db, opts...), nil
}

// Send appends one event row.
func (s *SQLite) Send(ctx context.Context, ev inspect.Event) error {
	newVal, err := json.Marshal(ev.New)
	if err != nil {
		return fmt.Errorf("marshal new value: %w", err)
	}
	oldVal, err := json.Marshal(ev.Old)
	if err != nil {
		return fmt.Errorf("marshal old value: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inspector_events (event_id, name, new_value, old_value, timestamp)
		VALUES (?,?,?,?,?)`,
		s.newID(), ev.Name, string(newVal), string(oldVal), ev.Timestamp)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Prune deletes events older than the retention window. Zero or negative
// days means keep everything.
func (s *SQLite) Prune(ctx context.Context, days int) error {
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().Unix() - int64(days)*86400
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM inspector_events WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("prune events: %w", err)
	}
	return nil
}

// Count returns the number of stored events, optionally filtered by name.
// Empty name counts everything.
func (s *SQLite) Count(ctx context.Context, name string) (int, error) {
	var n int
	var err error
	if name == "" {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM inspector_events`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM inspector_events WHERE name = ?`, name).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
