package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteHistory persists finished session aggregates to SQLite so
// cache performance survives process restarts.
type SQLiteHistory struct {
	db *sql.DB
}

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS session_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at DATETIME NOT NULL,
	ended_at DATETIME NOT NULL,
	total_queries INTEGER NOT NULL,
	cache_hits INTEGER NOT NULL,
	cache_misses INTEGER NOT NULL,
	api_errors INTEGER NOT NULL,
	hit_rate REAL NOT NULL,
	cost_saved REAL NOT NULL,
	detail TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_history_started ON session_history(started_at);
`

// NewSQLiteHistory opens (and migrates) the history database.
func NewSQLiteHistory(dbPath string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if _, err := db.Exec(createSessionsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}

	return &SQLiteHistory{db: db}, nil
}

// SaveSession stores one session row; the full aggregate is kept as
// JSON in the detail column.
func (h *SQLiteHistory) SaveSession(ctx context.Context, agg Aggregates) error {
	detail, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	_, err = h.db.ExecContext(ctx,
		`INSERT INTO session_history
		 (started_at, ended_at, total_queries, cache_hits, cache_misses, api_errors, hit_rate, cost_saved, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agg.StartTime, agg.EndTime, agg.TotalQueries, agg.CacheHits, agg.CacheMisses,
		agg.APIErrors, agg.HitRate, agg.CostSaved, string(detail),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SessionSummary is one stored session row.
type SessionSummary struct {
	StartedAt    time.Time
	EndedAt      time.Time
	TotalQueries int
	CacheHits    int
	CacheMisses  int
	APIErrors    int
	HitRate      float64
	CostSaved    float64
}

// ListSessions returns stored sessions, most recent first.
func (h *SQLiteHistory) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT started_at, ended_at, total_queries, cache_hits, cache_misses, api_errors, hit_rate, cost_saved
		 FROM session_history ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.StartedAt, &s.EndedAt, &s.TotalQueries, &s.CacheHits,
			&s.CacheMisses, &s.APIErrors, &s.HitRate, &s.CostSaved); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Close releases the database handle.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}
