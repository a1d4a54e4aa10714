package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/streakrun/internal/metrics"
	"github.com/sawpanic/streakrun/internal/streak"
)

// Report counts the outcome of one dispatch.
type Report struct {
	Sent       int `json:"sent"`
	Suppressed int `json:"suppressed"`
	Failed     int `json:"failed"`
}

// Dispatcher sends at most one alert per (system, team, length) within the
// cooldown.
type Dispatcher struct {
	sender   Sender
	cooldown Cooldown
	ttl      time.Duration
	metrics  *metrics.Registry
}

// NewDispatcher wires a sender to a cooldown store. m may be nil.
func NewDispatcher(sender Sender, cooldown Cooldown, ttl time.Duration, m *metrics.Registry) *Dispatcher {
	if cooldown == nil {
		cooldown = NewMemoryCooldown(nil)
	}
	return &Dispatcher{sender: sender, cooldown: cooldown, ttl: ttl, metrics: m}
}

// Message renders the console sentence for a streak.
func Message(s streak.ActiveStreak) string {
	return fmt.Sprintf("%s is currently on a %d-game loss streak in the %s system", s.Team, s.Losses, s.System)
}

// Dispatch alerts every streak. Failures are counted and logged, never
// returned, except cancellation of ctx. An open breaker skips the rest.
func (d *Dispatcher) Dispatch(ctx context.Context, runID string, streaks []streak.ActiveStreak) (Report, error) {
	var rep Report
	for i, s := range streaks {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		key := CooldownKey(s.System, s.Team, s.Losses)
		free, err := d.cooldown.Acquire(ctx, key, runID, d.ttl)
		if err != nil {
			// cooldown store down: alert anyway
			log.Warn().Err(err).Str("key", key).Msg("Cooldown check failed")
			free = true
		}
		if !free {
			rep.Suppressed++
			d.count("suppressed")
			continue
		}

		alert := Alert{
			RunID:    runID,
			System:   s.System,
			Team:     s.Team,
			Losses:   s.Losses,
			LastDate: s.LastDate,
			Message:  Message(s),
		}
		if err := d.sender.Send(ctx, alert); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return rep, err
			}
			if rerr := d.cooldown.Release(ctx, key); rerr != nil {
				log.Warn().Err(rerr).Str("key", key).Msg("Cooldown release failed")
			}
			rep.Failed++
			d.count("failed")
			log.Error().Err(err).Str("system", s.System).Str("team", s.Team).Msg("Alert delivery failed")
			if errors.Is(err, ErrBreakerOpen) {
				rest := len(streaks) - i - 1
				rep.Failed += rest
				d.countN("failed", rest)
				break
			}
			continue
		}
		rep.Sent++
		d.count("sent")
	}

	log.Info().
		Int("sent", rep.Sent).
		Int("suppressed", rep.Suppressed).
		Int("failed", rep.Failed).
		Msg("Alerts dispatched")
	return rep, nil
}

func (d *Dispatcher) count(result string) { d.countN(result, 1) }

func (d *Dispatcher) countN(result string, n int) {
	if d.metrics == nil || n == 0 {
		return
	}
	d.metrics.AlertsSent.WithLabelValues(result).Add(float64(n))
}
