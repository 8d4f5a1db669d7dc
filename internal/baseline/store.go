package baseline

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store keeps labeled baseline artifacts in a local SQLite database for
// callers that track many revisions. Single-artifact callers can use the
// plain JSON file path instead.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewStore initializes the SQLite database at the given path.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initialize creates the required table.
func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS baselines (
		label TEXT PRIMARY KEY,
		schema_version INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		payload TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create baselines table: %w", err)
	}
	return nil
}

// Save upserts an artifact under a label.
func (s *Store) Save(label string, a *Artifact) error {
	if label == "" {
		return fmt.Errorf("baseline label required")
	}
	data, err := a.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode baseline: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT INTO baselines (label, schema_version, created_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(label) DO UPDATE SET
			schema_version = excluded.schema_version,
			created_at = excluded.created_at,
			payload = excluded.payload`,
		label, a.SchemaVersion, a.CreatedAt.Format(time.RFC3339Nano), string(data))
	if err != nil {
		return fmt.Errorf("failed to save baseline %q: %w", label, err)
	}
	return nil
}

// Load fetches and schema-checks the artifact stored under a label.
// The stored schema version is checked before the payload is decoded so an
// incompatible artifact fails fast with ErrSchemaMismatch.
func (s *Store) Load(label string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var version int
	var payload string
	err := s.db.QueryRow(
		`SELECT schema_version, payload FROM baselines WHERE label = ?`, label,
	).Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no baseline stored under label %q", label)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline %q: %w", label, err)
	}
	if version != SchemaVersion {
		return nil, fmt.Errorf("%w: stored baseline %q has version %d, engine expects %d",
			ErrSchemaMismatch, label, version, SchemaVersion)
	}
	return Decode([]byte(payload))
}

// Labels returns all stored labels in insertion-independent sorted order.
func (s *Store) Labels() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT label FROM baselines ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to list baselines: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// Delete removes a stored baseline.
func (s *Store) Delete(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM baselines WHERE label = ?`, label)
	if err != nil {
		return fmt.Errorf("failed to delete baseline %q: %w", label, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
