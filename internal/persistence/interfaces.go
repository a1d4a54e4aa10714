// Package persistence defines storage contracts for recovery events.
package persistence

import (
	"context"
	"time"

	"github.com/sawpanic/streakrun/internal/streak"
)

// EventRecord is a stored recovery event.
type EventRecord struct {
	ID        int64     `json:"id" db:"id"`
	RunID     string    `json:"run_id" db:"run_id"`
	System    string    `json:"system" db:"system"`
	Team      string    `json:"team" db:"team"`
	Year      int       `json:"year" db:"year"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	Recovered bool      `json:"recovered" db:"recovered"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Event converts the record back into a domain event.
func (r EventRecord) Event() streak.Event {
	return streak.Event{
		System:    r.System,
		Team:      r.Team,
		Year:      r.Year,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Recovered: r.Recovered,
	}
}

// EventFilter narrows a listing. Zero values match everything.
type EventFilter struct {
	RunID  string
	System string
	Team   string
	Year   int
	Limit  int
}

// EventsRepo stores recovery events per run.
type EventsRepo interface {
	// EnsureSchema creates the events table if missing.
	EnsureSchema(ctx context.Context) error

	// InsertBatch stores all events of a run in one transaction.
	InsertBatch(ctx context.Context, runID string, events []streak.Event) error

	// List returns events matching filter, newest run first.
	List(ctx context.Context, filter EventFilter) ([]EventRecord, error)

	// DeleteRun removes a run's events and returns how many were deleted.
	DeleteRun(ctx context.Context, runID string) (int64, error)
}

// Repository aggregates the repositories.
type Repository struct {
	Events EventsRepo
}

// HealthCheck describes database health.
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool,omitempty"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}
