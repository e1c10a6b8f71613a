package covenant

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested artifact is not in the store.
var ErrNotFound = errors.New("artifact not found")

var log = commonlog.GetLogger("mil.covenant")

// Store is a content-addressed artifact store backed by SQLite. Artifacts
// are keyed by their bytecode hash, so storing the same covenant twice is a
// no-op.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenStore opens (creating if needed) a store at the given path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS artifacts (
		hash TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		data BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores an artifact, keyed by its content hash.
func (s *Store) Put(a *Artifact) error {
	if err := a.Verify(); err != nil {
		return err
	}
	data, err := Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(
		"INSERT OR REPLACE INTO artifacts (hash, name, data) VALUES (?, ?, ?)",
		a.HexHash(), a.Name, data,
	); err != nil {
		return fmt.Errorf("saving artifact: %w", err)
	}
	log.Infof("stored covenant %s (%s, %d bytes)", a.HexHash(), a.Name, len(a.Bytecode))
	return nil
}

// Get retrieves an artifact by its hex hash.
func (s *Store) Get(hexHash string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.QueryRow("SELECT data FROM artifacts WHERE hash = ?", hexHash).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading artifact: %w", err)
	}
	return Unmarshal(data)
}

// ListEntry is one row of a store listing.
type ListEntry struct {
	HexHash string
	Name    string
}

// List returns the hashes and names of all stored artifacts, ordered by name.
func (s *Store) List() ([]ListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT hash, name FROM artifacts ORDER BY name, hash")
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	var entries []ListEntry
	for rows.Next() {
		var e ListEntry
		if err := rows.Scan(&e.HexHash, &e.Name); err != nil {
			return nil, fmt.Errorf("scanning artifact row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes an artifact by its hex hash.
func (s *Store) Delete(hexHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM artifacts WHERE hash = ?", hexHash)
	if err != nil {
		return fmt.Errorf("deleting artifact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting artifact: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
