// Package cache holds the SQLite stores backing the engine: user profiles
// and computed match history.
package cache

import (
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/segmentio/encoding/json"
	_ "modernc.org/sqlite"

	"github.com/personamatch/engine/internal/personality"
)

// ErrProfileNotFound is returned by Get when no profile is stored for a user.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is a stored personality vector.
type Profile struct {
	UserID    string
	Vector    personality.Vector
	UpdatedAt time.Time
}

// ProfileStore is a SQLite-backed store of personality vectors keyed by user.
type ProfileStore struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path in WAL mode.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "open sqlite", goerr.V("path", path))
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "set WAL mode")
	}
	return db, nil
}

// NewProfileStore creates the profiles table if it doesn't exist.
func NewProfileStore(db *sql.DB) (*ProfileStore, error) {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			user_id    TEXT PRIMARY KEY,
			traits     TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`); err != nil {
		return nil, goerr.Wrap(err, "create profiles table")
	}
	return &ProfileStore{db: db}, nil
}

// Put inserts or replaces the vector for userID.
func (s *ProfileStore) Put(userID string, v personality.Vector) error {
	raw, err := json.Marshal(v.Records())
	if err != nil {
		return goerr.Wrap(err, "marshal traits", goerr.V("user_id", userID))
	}

	_, err = s.db.Exec(
		`INSERT INTO profiles (user_id, traits, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET traits=excluded.traits, updated_at=excluded.updated_at`,
		userID, string(raw), time.Now().UnixNano(),
	)
	if err != nil {
		return goerr.Wrap(err, "put profile", goerr.V("user_id", userID))
	}
	return nil
}

// Get returns the profile for userID, or ErrProfileNotFound.
func (s *ProfileStore) Get(userID string) (*Profile, error) {
	row := s.db.QueryRow(`SELECT traits, updated_at FROM profiles WHERE user_id = ?`, userID)

	var raw string
	var updated int64
	if err := row.Scan(&raw, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, goerr.Wrap(err, "get profile", goerr.V("user_id", userID))
	}
	return decodeProfile(userID, raw, updated)
}

// List returns every stored profile except excludeID, ordered by user ID.
func (s *ProfileStore) List(excludeID string) ([]Profile, error) {
	rows, err := s.db.Query(
		`SELECT user_id, traits, updated_at FROM profiles WHERE user_id <> ? ORDER BY user_id`,
		excludeID,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "list profiles")
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		var id, raw string
		var updated int64
		if err := rows.Scan(&id, &raw, &updated); err != nil {
			return nil, goerr.Wrap(err, "scan profile")
		}
		p, err := decodeProfile(id, raw, updated)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "list profiles rows")
	}
	return out, nil
}

// Delete removes the profile for userID. Deleting a missing profile is not an
// error.
func (s *ProfileStore) Delete(userID string) error {
	if _, err := s.db.Exec(`DELETE FROM profiles WHERE user_id = ?`, userID); err != nil {
		return goerr.Wrap(err, "delete profile", goerr.V("user_id", userID))
	}
	return nil
}

func decodeProfile(userID, raw string, updated int64) (*Profile, error) {
	var records []personality.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, goerr.Wrap(err, "unmarshal traits", goerr.V("user_id", userID))
	}
	return &Profile{
		UserID:    userID,
		Vector:    personality.ParseVector(records),
		UpdatedAt: time.Unix(0, updated),
	}, nil
}
