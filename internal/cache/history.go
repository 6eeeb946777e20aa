package cache

import (
	"database/sql"
	"math"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"
)

// Match kinds recorded in history.
const (
	KindMatchingScore = "matching_score"
	KindCompatibility = "compatibility"
)

// HistoryStore is a SQLite-backed store of computed match scores.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates the match_history table and index if they don't
// exist, then returns a HistoryStore backed by db.
func NewHistoryStore(db *sql.DB) (*HistoryStore, error) {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS match_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT    NOT NULL,
			user_id    TEXT    NOT NULL,
			other_id   TEXT    NOT NULL,
			kind       TEXT    NOT NULL,
			score      REAL    NOT NULL,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		return nil, goerr.Wrap(err, "create match_history table")
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_match_history_user_ts
		ON match_history (user_id, created_at)
	`); err != nil {
		return nil, goerr.Wrap(err, "create match_history index")
	}

	return &HistoryStore{db: db}, nil
}

// Record stores score from userID's point of view. Scores are symmetric, so
// callers record once per side they want to query later.
func (h *HistoryStore) Record(requestID, userID, otherID, kind string, score float64) error {
	_, err := h.db.Exec(
		`INSERT INTO match_history (request_id, user_id, other_id, kind, score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		requestID, userID, otherID, kind, score, time.Now().UnixNano(),
	)
	if err != nil {
		return goerr.Wrap(err, "record match history", goerr.V("user_id", userID), goerr.V("other_id", otherID))
	}
	return nil
}

// QueryWindow returns the last windowSize scores for userID, most recent
// first.
func (h *HistoryStore) QueryWindow(userID string, windowSize int) ([]float64, error) {
	rows, err := h.db.Query(
		`SELECT score FROM match_history
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID, windowSize,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "query window", goerr.V("user_id", userID))
	}
	defer rows.Close()

	scores := []float64{}
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, goerr.Wrap(err, "scan score")
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "query window rows")
	}
	return scores, nil
}

// Stats returns the mean, population standard deviation and count of
// scores. Zero values are returned for an empty slice.
func Stats(scores []float64) (mean, stddev float64, count int) {
	count = len(scores)
	if count == 0 {
		return 0, 0, 0
	}
	for _, s := range scores {
		mean += s
	}
	mean /= float64(count)

	var sumSqDiff float64
	for _, s := range scores {
		diff := s - mean
		sumSqDiff += diff * diff
	}
	return mean, math.Sqrt(sumSqDiff / float64(count)), count
}
