// Package backtest runs every configured system over a game file.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/streakrun/internal/aggregate"
	"github.com/sawpanic/streakrun/internal/data/ingest"
	"github.com/sawpanic/streakrun/internal/data/pivot"
	"github.com/sawpanic/streakrun/internal/domain/ou"
	"github.com/sawpanic/streakrun/internal/metrics"
	"github.com/sawpanic/streakrun/internal/streak"
	"github.com/sawpanic/streakrun/internal/systems"
	"github.com/sawpanic/streakrun/internal/trends"
)

// Config parameterises a run.
type Config struct {
	Systems      []systems.Spec
	Period       ou.Period // recommendation reset
	Streak       streak.Config
	ActiveStreak int
	Ingest       ingest.Options
	Trends       *trends.Config // nil disables trends
}

// DefaultConfig returns the classic systems with monthly resets, 8/2
// recovery thresholds and a 7-loss active streak report.
func DefaultConfig() Config {
	return Config{
		Systems:      systems.DefaultSpecs(),
		Period:       ou.Monthly,
		Streak:       streak.DefaultConfig(),
		ActiveStreak: 7,
	}
}

// Clock interface for time operations (injectable for testing)
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using real time
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// Runner executes backtests.
type Runner struct {
	config  Config
	metrics *metrics.Registry
	clock   Clock
	newID   func() string
}

// NewRunner creates a runner. A nil registry gets a private one.
func NewRunner(config Config, m *metrics.Registry) *Runner {
	if m == nil {
		m = metrics.NewRegistry("")
	}
	return &Runner{
		config:  config,
		metrics: m,
		clock:   RealClock{},
		newID:   func() string { return uuid.New().String() },
	}
}

// SetClock sets the clock implementation (for testing)
func (r *Runner) SetClock(clock Clock) { r.clock = clock }

// SetIDFunc replaces the run id generator (for testing)
func (r *Runner) SetIDFunc(f func() string) { r.newID = f }

// Metrics returns the registry the runner records into.
func (r *Runner) Metrics() *metrics.Registry { return r.metrics }

// RunFile loads path and runs it.
func (r *Runner) RunFile(ctx context.Context, path string) (*Run, error) {
	timer := r.metrics.StartStepTimer(metrics.StepIngest)
	games, stats, err := ingest.NewReader(r.config.Ingest).LoadFile(path)
	if err != nil {
		timer.Stop(metrics.ResultError)
		return nil, err
	}
	timer.Stop(metrics.ResultSuccess)

	r.metrics.RowsIngested.Add(float64(stats.Loaded))
	r.metrics.RowsDropped.WithLabelValues("date").Add(float64(stats.DroppedDates))
	r.metrics.RowsDropped.WithLabelValues("team").Add(float64(stats.DroppedTeams))

	log.Info().
		Str("input", path).
		Int("rows", stats.Rows).
		Int("loaded", stats.Loaded).
		Int("dropped_dates", stats.DroppedDates).
		Int("dropped_teams", stats.DroppedTeams).
		Msg("Input loaded")

	return r.Run(ctx, path, games, stats)
}

// Run executes the pipeline over already loaded games. Events and active
// streaks come out in system order, then team order, then date.
func (r *Runner) Run(ctx context.Context, input string, games []ingest.Game, stats ingest.Stats) (*Run, error) {
	run := &Run{
		RunID:     r.newID(),
		StartedAt: r.clock.Now(),
		Input:     input,
		Ingest:    stats,
		Systems:   r.config.Systems,
	}

	timer := r.metrics.StartStepTimer(metrics.StepSystems)
	built, err := systems.Build(r.config.Systems, r.config.Period)
	if err != nil {
		timer.Stop(metrics.ResultError)
		return nil, fmt.Errorf("failed to build systems: %w", err)
	}
	timer.Stop(metrics.ResultSuccess)

	timer = r.metrics.StartStepTimer(metrics.StepPivot)
	table := pivot.Build(games)
	timer.Stop(metrics.ResultSuccess)
	run.Table = table
	run.Teams = table.Teams
	if n := len(table.Dates); n > 0 {
		run.FirstDate, run.LastDate = table.Dates[0], table.Dates[n-1]
	}

	base := make(map[string][]ou.Recommendation, len(table.Teams))
	baseFor := func(tp *systems.TailsPrior, team string) []ou.Recommendation {
		recs, ok := base[team]
		if !ok {
			recs = tp.Generate(table.Dates, table.Series(team))
			base[team] = recs
		}
		return recs
	}

	tracker := streak.NewTracker(r.config.Streak)
	timer = r.metrics.StartStepTimer(metrics.StepStreaks)
	for _, sys := range built {
		if err := ctx.Err(); err != nil {
			timer.Stop(metrics.ResultError)
			return nil, err
		}
		res := &SystemResult{
			Name:  sys.Name(),
			Kind:  sys.Kind(),
			Teams: make(map[string]*TeamSeries, len(table.Teams)),
		}
		labels := make(map[ou.Recommendation]int)

		for _, team := range table.Teams {
			outcomes := table.Series(team)
			ts := &TeamSeries{}
			switch s := sys.(type) {
			case *systems.TailsPrior:
				ts.Recommendations = baseFor(s, team)
			case *systems.PriorPattern:
				ts.Base = baseFor(s.Base(), team)
				ts.Recommendations = s.Compose(table.Dates, ts.Base)
			default:
				ts.Recommendations = sys.Generate(table.Dates, outcomes)
			}
			for _, rec := range ts.Recommendations {
				labels[rec]++
			}

			key := streak.Key{System: sys.Name(), Team: team}
			ts.Markers = make([]streak.Marker, len(table.Dates))
			for i, date := range table.Dates {
				ts.Markers[i] = tracker.Step(key, date, ts.Recommendations[i], outcomes[i])
			}
			if a, ok := streak.Active(sys.Name(), team, r.config.ActiveStreak, table.Dates, ts.Recommendations, outcomes); ok {
				run.ActiveStreaks = append(run.ActiveStreaks, a)
			}
			res.Teams[team] = ts
		}

		for rec, n := range labels {
			r.metrics.Recommendations.WithLabelValues(sys.Name(), rec.String()).Add(float64(n))
		}
		run.Results = append(run.Results, res)
	}
	timer.Stop(metrics.ResultSuccess)
	run.Events = tracker.Events()
	run.OpenWindows = tracker.Open()

	for _, ev := range run.Events {
		r.metrics.RecordRecovery(ev.System, ev.Recovered)
	}

	timer = r.metrics.StartStepTimer(metrics.StepAggregate)
	run.Summaries = aggregate.Summarize(run.Events)
	run.Totals = aggregate.Totals(run.Summaries)
	timer.Stop(metrics.ResultSuccess)

	if r.config.Trends != nil {
		timer = r.metrics.StartStepTimer(metrics.StepTrends)
		run.Trends = trends.Analyze(games, *r.config.Trends)
		timer.Stop(metrics.ResultSuccess)
	}

	r.metrics.ActiveStreaks.Set(float64(len(run.ActiveStreaks)))
	r.metrics.OpenWindows.Set(float64(len(run.OpenWindows)))
	run.FinishedAt = r.clock.Now()
	r.metrics.LastRun.Set(float64(run.FinishedAt.Unix()))

	log.Info().
		Str("run_id", run.RunID).
		Int("systems", len(run.Results)).
		Int("teams", len(run.Teams)).
		Int("events", len(run.Events)).
		Int("active_streaks", len(run.ActiveStreaks)).
		Int("open_windows", len(run.OpenWindows)).
		Msg("Backtest completed")

	return run, nil
}
