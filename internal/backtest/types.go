package backtest

import (
	"time"

	"github.com/sawpanic/streakrun/internal/aggregate"
	"github.com/sawpanic/streakrun/internal/data/ingest"
	"github.com/sawpanic/streakrun/internal/data/pivot"
	"github.com/sawpanic/streakrun/internal/domain/ou"
	"github.com/sawpanic/streakrun/internal/streak"
	"github.com/sawpanic/streakrun/internal/systems"
	"github.com/sawpanic/streakrun/internal/trends"
)

// Run is the complete result of one backtest. The JSON form is the run
// artifact served by the HTTP surface.
type Run struct {
	RunID         string                `json:"run_id"`
	StartedAt     time.Time             `json:"started_at"`
	FinishedAt    time.Time             `json:"finished_at"`
	Input         string                `json:"input"`
	Ingest        ingest.Stats          `json:"ingest"`
	Systems       []systems.Spec        `json:"systems"`
	Teams         []string              `json:"teams"`
	FirstDate     time.Time             `json:"first_date"`
	LastDate      time.Time             `json:"last_date"`
	Events        []streak.Event        `json:"events"`
	Summaries     []aggregate.Summary   `json:"summaries"`
	Totals        []aggregate.Summary   `json:"totals"`
	ActiveStreaks []streak.ActiveStreak `json:"active_streaks"`
	OpenWindows   []streak.OpenWindow   `json:"open_windows"`
	Trends        []trends.Trend        `json:"trends,omitempty"`

	// Grid data for the workbook; not part of the artifact.
	Table   *pivot.Table    `json:"-"`
	Results []*SystemResult `json:"-"`
}

// SystemResult holds one system's per-team rows.
type SystemResult struct {
	Name  string
	Kind  systems.Kind
	Teams map[string]*TeamSeries
}

// TeamSeries is aligned with Table.Dates.
type TeamSeries struct {
	Base            []ou.Recommendation // Tails Prior input of a composed system
	Recommendations []ou.Recommendation
	Markers         []streak.Marker
}

// Result looks up a system by name.
func (r *Run) Result(name string) *SystemResult {
	for _, res := range r.Results {
		if res.Name == name {
			return res
		}
	}
	return nil
}
