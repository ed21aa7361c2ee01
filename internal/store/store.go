// Package store persists lookup statistics in PostgreSQL. Nothing about a resolution itself is stored.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"rep-lookup/internal/logger"
)

type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Open connects with the lib/pq driver and sizes the pool.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Lookup is one finished resolution. State is empty when the lookup failed before a state was known.
type Lookup struct {
	State      string
	Failed     bool
	NewVisitor bool
}

// RecordLookup bumps the total, daily and per-state counters in one transaction.
func (s *Store) RecordLookup(ctx context.Context, l Lookup) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stats tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	failures, visitors := 0, 0
	if l.Failed {
		failures = 1
	}
	if l.NewVisitor {
		visitors = 1
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE _lookup_stats_total SET total_lookups=total_lookups+1, total_failures=total_failures+$1,
		 total_visitors=total_visitors+$2 WHERE id=1`, failures, visitors); err != nil {
		return fmt.Errorf("update totals: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO _lookup_stats_daily(day, lookups, failures, visitors) VALUES(current_date, 1, $1, $2)
		 ON CONFLICT (day) DO UPDATE SET lookups=_lookup_stats_daily.lookups+1,
		 failures=_lookup_stats_daily.failures+$1, visitors=_lookup_stats_daily.visitors+$2`,
		failures, visitors); err != nil {
		return fmt.Errorf("update daily: %w", err)
	}
	if l.State != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO _lookup_stats_state(state, lookups) VALUES($1, 1)
			 ON CONFLICT (state) DO UPDATE SET lookups=_lookup_stats_state.lookups+1`, l.State); err != nil {
			return fmt.Errorf("update state: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stats: %w", err)
	}
	logger.L().Debug("stats_incr", "state", l.State, "failed", l.Failed, "new_visitor", l.NewVisitor)
	return nil
}

type Totals struct {
	Total         int64            `json:"total"`
	Failures      int64            `json:"failures"`
	Visitors      int64            `json:"visitors"`
	Today         int64            `json:"today"`
	TodayVisitors int64            `json:"todayVisitors"`
	ByState       map[string]int64 `json:"byState"`
}

// GetTotals reads the counters. A day without lookups reads as zero.
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	t := Totals{ByState: map[string]int64{}}
	row := s.db.QueryRowContext(ctx, `SELECT total_lookups, total_failures, total_visitors FROM _lookup_stats_total WHERE id=1`)
	if err := row.Scan(&t.Total, &t.Failures, &t.Visitors); err != nil {
		return nil, fmt.Errorf("read totals: %w", err)
	}
	row = s.db.QueryRowContext(ctx, `SELECT lookups, visitors FROM _lookup_stats_daily WHERE day=current_date`)
	if err := row.Scan(&t.Today, &t.TodayVisitors); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("read daily: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT state, lookups FROM _lookup_stats_state`)
	if err != nil {
		return nil, fmt.Errorf("read states: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st string
		var n int64
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		t.ByState[st] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}
