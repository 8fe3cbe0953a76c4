// Package store caches woven method sets in SQLite, keyed by the weave
// input digest.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	bc "github.com/chazu/aspectweave/pkg/bytecode"
)

var log = commonlog.GetLogger("aspectweave.store")

// ErrNotFound indicates no entry exists for a key.
var ErrNotFound = errors.New("store: entry not found")

// Entry is a cached weave result.
type Entry struct {
	ID      string
	Key     bc.Digest
	Output  bc.Digest
	Methods []*bc.Method
	Members *bc.Members
	Created time.Time
}

// Store is a weave cache backed by a SQLite database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS woven (
		key TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		output TEXT NOT NULL,
		methods BLOB NOT NULL,
		members BLOB,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened cache %s", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores methods and the advice members they need under key,
// replacing any previous entry, and returns the new entry. members may be
// nil.
func (s *Store) Put(key bc.Digest, methods []*bc.Method, members *bc.Members) (*Entry, error) {
	data, err := bc.MarshalMethods(methods)
	if err != nil {
		return nil, fmt.Errorf("encoding methods: %w", err)
	}
	var memberData []byte
	if members.Len() > 0 {
		if memberData, err = bc.MarshalMembers(members); err != nil {
			return nil, fmt.Errorf("encoding members: %w", err)
		}
	}
	out, err := bc.MethodsDigest(methods)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		ID:      uuid.New().String(),
		Key:     key,
		Output:  out,
		Methods: methods,
		Members: members,
		Created: time.Now().UTC().Truncate(time.Second),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO woven (key, id, output, methods, members, created) VALUES (?, ?, ?, ?, ?, ?)",
		key.String(), e.ID, out.String(), data, memberData, e.Created.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("saving entry: %w", err)
	}
	log.Debugf("cached %d method(s), %d member(s) under %s", len(methods), members.Len(), key)
	return e, nil
}

// Get loads the entry stored under key. It returns ErrNotFound on a miss.
func (s *Store) Get(key bc.Digest) (*Entry, error) {
	var (
		id, out    string
		data, mdat []byte
		created    int64
	)
	err := s.db.QueryRow(
		"SELECT id, output, methods, members, created FROM woven WHERE key = ?", key.String(),
	).Scan(&id, &out, &data, &mdat, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying entry: %w", err)
	}

	methods, err := bc.UnmarshalMethods(data)
	if err != nil {
		return nil, fmt.Errorf("decoding entry %s: %w", id, err)
	}
	var members *bc.Members
	if len(mdat) > 0 {
		if members, err = bc.UnmarshalMembers(mdat); err != nil {
			return nil, fmt.Errorf("decoding entry %s: %w", id, err)
		}
	}
	output, err := bc.ParseDigest(out)
	if err != nil {
		return nil, err
	}
	return &Entry{
		ID:      id,
		Key:     key,
		Output:  output,
		Methods: methods,
		Members: members,
		Created: time.Unix(created, 0).UTC(),
	}, nil
}

// Delete removes the entry under key. Deleting a missing key is not an error.
func (s *Store) Delete(key bc.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM woven WHERE key = ?", key.String()); err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM woven").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}
