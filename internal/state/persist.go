package state

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/hazyhaar/dominspect/dbopen"
	"github.com/hazyhaar/dominspect/inspect"
)

// PersistKey is the storage key inspector state is saved under. Kept
// byte-compatible with earlier releases so existing databases restore.
const PersistKey = "devpages_dom_inspector_state"

// Persister loads and saves the serialised inspector state. Load returns
// (nil, nil) when nothing has been persisted yet.
type Persister interface {
	Load() (*inspect.State, error)
	Save(inspect.State) error
}

const kvSchema = `
CREATE TABLE IF NOT EXISTS inspector_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);`

// SQLitePersister stores state as JSON in a single-row key/value table.
type SQLitePersister struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the state database at path.
func OpenSQLite(path string) (*SQLitePersister, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(kvSchema))
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	return &SQLitePersister{db: db}, nil
}

// NewSQLitePersister wraps an already-open database, applying the schema.
func NewSQLitePersister(db *sql.DB) (*SQLitePersister, error) {
	if _, err := db.Exec(kvSchema); err != nil {
		return nil, fmt.Errorf("state: apply schema: %w", err)
	}
	return &SQLitePersister{db: db}, nil
}

func (p *SQLitePersister) Load() (*inspect.State, error) {
	var raw string
	err := p.db.QueryRow(`SELECT value FROM inspector_kv WHERE key = ?`, PersistKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: load: %w", err)
	}
	s, err := inspect.UnmarshalState([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("state: decode persisted state: %w", err)
	}
	return s, nil
}

func (p *SQLitePersister) Save(s inspect.State) error {
	raw, err := inspect.MarshalState(&s)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	_, err = p.db.Exec(`
		INSERT INTO inspector_kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
		PersistKey, string(raw))
	if err != nil {
		return fmt.Errorf("state: save: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (p *SQLitePersister) Close() error { return p.db.Close() }

// MemoryPersister keeps state in memory only. Used when no database path is
// configured and in tests.
type MemoryPersister struct {
	mu    sync.Mutex
	state *inspect.State
	Saves int
}

func (p *MemoryPersister) Load() (*inspect.State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return nil, nil
	}
	c := p.state.Clone()
	return &c, nil
}

func (p *MemoryPersister) Save(s inspect.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := s.Clone()
	p.state = &c
	p.Saves++
	return nil
}
