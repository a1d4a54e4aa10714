// Package application wires configuration, the backtest runner, the report
// writers and the optional sinks into one run.
package application

import (
	"context"
	"fmt"
	"io"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/streakrun/internal/backtest"
	"github.com/sawpanic/streakrun/internal/config"
	"github.com/sawpanic/streakrun/internal/infrastructure/db"
	"github.com/sawpanic/streakrun/internal/interfaces/alerts"
	"github.com/sawpanic/streakrun/internal/metrics"
	"github.com/sawpanic/streakrun/internal/persistence"
	"github.com/sawpanic/streakrun/internal/report"
	"github.com/sawpanic/streakrun/internal/trends"
)

// Pipeline runs one configured analysis.
type Pipeline struct {
	cfg     *config.Config
	runner  *backtest.Runner
	metrics *metrics.Registry
}

// NewPipeline builds the runner from cfg.
func NewPipeline(cfg *config.Config) *Pipeline {
	m := metrics.NewRegistry(cfg.Metrics.Namespace)
	return &Pipeline{
		cfg:     cfg,
		runner:  backtest.NewRunner(RunnerConfig(cfg), m),
		metrics: m,
	}
}

// RunnerConfig maps the file configuration onto the runner.
func RunnerConfig(cfg *config.Config) backtest.Config {
	rc := backtest.Config{
		Systems:      cfg.Systems,
		Period:       cfg.RecommendationPeriod(),
		Streak:       cfg.StreakConfig(),
		ActiveStreak: cfg.Thresholds.ActiveStreak,
		Ingest:       cfg.IngestOptions(),
	}
	if cfg.Output.Trends {
		rc.Trends = &trends.Config{
			MinLength: cfg.Thresholds.TrendMin,
			Lookback:  cfg.Thresholds.TrendLookback,
		}
	}
	return rc
}

// Runner exposes the backtest runner (for testing)
func (p *Pipeline) Runner() *backtest.Runner { return p.runner }

// Metrics returns the run's registry.
func (p *Pipeline) Metrics() *metrics.Registry { return p.metrics }

// Analyze runs the input file named by the configuration.
func (p *Pipeline) Analyze(ctx context.Context) (*backtest.Run, error) {
	if p.cfg.Input.Path == "" {
		return nil, fmt.Errorf("no input file configured")
	}
	return p.runner.RunFile(ctx, p.cfg.Input.Path)
}

// WriteOutputs writes the workbook and JSON artifact named in the output
// section, then prints the console report to w.
func (p *Pipeline) WriteOutputs(run *backtest.Run, w io.Writer) error {
	timer := p.metrics.StartStepTimer(metrics.StepReport)
	out := p.cfg.Output

	if out.Workbook != "" {
		if err := report.WriteWorkbook(out.Workbook, run); err != nil {
			timer.Stop(metrics.ResultError)
			return err
		}
	}
	if out.JSON != "" {
		if err := report.WriteArtifact(out.JSON, run); err != nil {
			timer.Stop(metrics.ResultError)
			return err
		}
	}

	report.PrintActiveStreaks(w, run.ActiveStreaks, p.cfg.Thresholds.ActiveStreak)
	if len(run.Trends) > 0 {
		report.PrintTrends(w, run)
	}
	report.PrintSummary(w, run, out.Workbook)

	timer.Stop(metrics.ResultSuccess)
	return nil
}

// Sinks are the optional destinations of a finished run. Nil fields are
// skipped.
type Sinks struct {
	Events persistence.EventsRepo
	Alerts *alerts.Dispatcher
	closers []func() error
}

// Close releases connections opened by OpenSinks.
func (s *Sinks) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("Failed to close sink")
		}
	}
	s.closers = nil
}

// OpenSinks connects the sinks enabled in the configuration. A sink that
// cannot be opened is logged and left out.
func (p *Pipeline) OpenSinks(ctx context.Context) *Sinks {
	sinks := &Sinks{}

	if p.cfg.Database.Enabled {
		mgr, err := db.NewManager(ctx, p.cfg.Database)
		if err != nil {
			log.Error().Err(err).Msg("Event store unavailable, skipping persistence")
		} else {
			sinks.Events = mgr.Repository().Events
			sinks.closers = append(sinks.closers, mgr.Close)
		}
	}

	if p.cfg.Alerts.Enabled {
		var cooldown alerts.Cooldown
		if p.cfg.Redis.Enabled {
			client := redis.NewClient(&redis.Options{
				Addr:     p.cfg.Redis.Addr,
				Password: p.cfg.Redis.Password,
				DB:       p.cfg.Redis.DB,
			})
			cooldown = alerts.NewRedisCooldown(client)
			sinks.closers = append(sinks.closers, client.Close)
		}
		a := p.cfg.Alerts
		notifier := alerts.NewWebhookNotifier(alerts.WebhookConfig{
			URL:             a.WebhookURL,
			Timeout:         a.Timeout,
			RatePerSecond:   a.RatePerSecond,
			Burst:           a.Burst,
			BreakerFailures: a.BreakerFailures,
			BreakerOpen:     a.BreakerOpen,
			MaxRetries:      a.Retries,
		})
		sinks.Alerts = alerts.NewDispatcher(notifier, cooldown, a.Cooldown, p.metrics)
	}

	return sinks
}

// Publish hands run to every sink and writes the metrics textfile. Sink
// failures are logged; only a cancelled context is returned.
func (p *Pipeline) Publish(ctx context.Context, run *backtest.Run, sinks *Sinks) error {
	timer := p.metrics.StartStepTimer(metrics.StepSinks)
	result := metrics.ResultSuccess

	if sinks.Events != nil {
		if err := persistEvents(ctx, sinks.Events, run); err != nil {
			log.Error().Err(err).Str("run_id", run.RunID).Msg("Failed to persist recovery events")
			result = metrics.ResultError
		}
	}

	if sinks.Alerts != nil {
		rep, err := sinks.Alerts.Dispatch(ctx, run.RunID, run.ActiveStreaks)
		if err != nil {
			timer.Stop(metrics.ResultError)
			return err
		}
		if rep.Failed > 0 {
			result = metrics.ResultError
		}
	}

	// Stop before export so the sinks step is part of the textfile.
	timer.Stop(result)

	if path := p.cfg.Metrics.Textfile; path != "" {
		if err := p.metrics.WriteTextfile(path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to write metrics textfile")
		}
	}

	return ctx.Err()
}

// SkipSinks records that the sinks step was not run.
func (p *Pipeline) SkipSinks() {
	p.metrics.StartStepTimer(metrics.StepSinks).Stop(metrics.ResultSkipped)
}

func persistEvents(ctx context.Context, repo persistence.EventsRepo, run *backtest.Run) error {
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := repo.InsertBatch(ctx, run.RunID, run.Events); err != nil {
		return err
	}
	log.Info().Str("run_id", run.RunID).Int("events", len(run.Events)).Msg("Recovery events persisted")
	return nil
}
