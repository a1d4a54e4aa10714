// Package postgres implements the persistence contracts on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/streakrun/internal/persistence"
	"github.com/sawpanic/streakrun/internal/streak"
)

const schema = `
CREATE TABLE IF NOT EXISTS recovery_events (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT        NOT NULL,
	system      TEXT        NOT NULL,
	team        TEXT        NOT NULL,
	year        INTEGER     NOT NULL,
	start_date  DATE        NOT NULL,
	end_date    DATE        NOT NULL,
	recovered   BOOLEAN     NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS recovery_events_system_team ON recovery_events (system, team, year);`

const insertEvent = `
		INSERT INTO recovery_events (run_id, system, team, year, start_date, end_date, recovered)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

type eventsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewEventsRepo creates a PostgreSQL events repository.
func NewEventsRepo(db *sqlx.DB, timeout time.Duration) persistence.EventsRepo {
	return &eventsRepo{db: db, timeout: timeout}
}

func (r *eventsRepo) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (r *eventsRepo) InsertBatch(ctx context.Context, runID string, events []streak.Event) error {
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(events)/100+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertEvent)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, runID, ev.System, ev.Team, ev.Year,
			ev.StartDate, ev.EndDate, ev.Recovered); err != nil {
			return fmt.Errorf("failed to insert event %s/%s: %w", ev.System, ev.Team, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

func (r *eventsRepo) List(ctx context.Context, filter persistence.EventFilter) ([]persistence.EventRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.RunID != "" {
		add("run_id = $%d", filter.RunID)
	}
	if filter.System != "" {
		add("system = $%d", filter.System)
	}
	if filter.Team != "" {
		add("team = $%d", filter.Team)
	}
	if filter.Year != 0 {
		add("year = $%d", filter.Year)
	}

	query := `
		SELECT id, run_id, system, team, year, start_date, end_date, recovered, created_at
		FROM recovery_events`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY created_at DESC, system, team, start_date"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf("\n\t\tLIMIT $%d", len(args))
	}

	var records []persistence.EventRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return records, nil
}

func (r *eventsRepo) DeleteRun(ctx context.Context, runID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM recovery_events WHERE run_id = $1`, runID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	return res.RowsAffected()
}
