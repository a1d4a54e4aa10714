// Package systems generates per-team betting recommendations. A system reads
// one team's chronological outcomes and emits one recommendation per date.
package systems

import (
	"time"

	"github.com/sawpanic/streakrun/internal/domain/ou"
)

// Kind identifies a family of recommendation generators.
type Kind string

const (
	KindTailsPrior   Kind = "tails_prior"
	KindPattern      Kind = "pattern"
	KindPriorPattern Kind = "prior_pattern"
)

// System produces a recommendation sequence parallel to outcomes.
type System interface {
	Name() string
	Kind() Kind
	Generate(dates []time.Time, outcomes []ou.Outcome) []ou.Recommendation
}

// TailsName is the name of the history-driven system every composed system
// builds on.
const TailsName = "Tails Prior"

// TailsPrior reacts to the previous directional result inside the current
// period. The first directional game of every period has nothing to react
// to and is skipped.
type TailsPrior struct {
	period ou.Period
}

// NewTailsPrior creates the generator with the given reset period.
func NewTailsPrior(period ou.Period) *TailsPrior {
	return &TailsPrior{period: period}
}

func (s *TailsPrior) Name() string { return TailsName }
func (s *TailsPrior) Kind() Kind   { return KindTailsPrior }

func (s *TailsPrior) Generate(dates []time.Time, outcomes []ou.Outcome) []ou.Recommendation {
	recs := make([]ou.Recommendation, len(outcomes))
	var (
		last      = ou.Skip
		periodKey = -1
	)
	for i, out := range outcomes {
		if k := s.period.Key(dates[i]); k != periodKey {
			periodKey = k
			last = ou.Skip
		}
		switch {
		case out == ou.Skip:
			recs[i] = ou.RecSkip
		case out == ou.Push:
			recs[i] = ou.RecPush
		default:
			recs[i] = ou.FromPrior(last)
			last = out
		}
	}
	return recs
}

// Pattern ignores history and cycles a fixed list of recommendations. The
// cursor moves only on directional games and rewinds at each period.
type Pattern struct {
	name   string
	steps  []ou.Recommendation
	period ou.Period
}

// NewPattern creates a fixed-pattern system. steps must be non-empty.
func NewPattern(name string, steps []ou.Recommendation, period ou.Period) *Pattern {
	return &Pattern{name: name, steps: append([]ou.Recommendation(nil), steps...), period: period}
}

func (s *Pattern) Name() string { return s.name }
func (s *Pattern) Kind() Kind   { return KindPattern }

func (s *Pattern) Generate(dates []time.Time, outcomes []ou.Outcome) []ou.Recommendation {
	recs := make([]ou.Recommendation, len(outcomes))
	c := cursor{period: s.period, size: len(s.steps)}
	for i, out := range outcomes {
		c.observe(dates[i])
		switch {
		case out == ou.Skip:
			recs[i] = ou.RecSkip
		case out == ou.Push:
			recs[i] = ou.RecPush
		default:
			recs[i] = s.steps[c.next()]
		}
	}
	return recs
}

// PriorPattern layers a Tail/Fade action cycle over the Tails Prior output.
type PriorPattern struct {
	name    string
	actions []ou.Action
	period  ou.Period
	base    *TailsPrior
}

// NewPriorPattern creates a composed system over base.
func NewPriorPattern(name string, actions []ou.Action, period ou.Period, base *TailsPrior) *PriorPattern {
	return &PriorPattern{
		name:    name,
		actions: append([]ou.Action(nil), actions...),
		period:  period,
		base:    base,
	}
}

func (s *PriorPattern) Name() string { return s.name }
func (s *PriorPattern) Kind() Kind   { return KindPriorPattern }

// Base returns the system whose output is composed.
func (s *PriorPattern) Base() *TailsPrior { return s.base }

func (s *PriorPattern) Generate(dates []time.Time, outcomes []ou.Outcome) []ou.Recommendation {
	return s.Compose(dates, s.base.Generate(dates, outcomes))
}

// Compose applies the action cycle to an already generated base sequence.
func (s *PriorPattern) Compose(dates []time.Time, base []ou.Recommendation) []ou.Recommendation {
	recs := make([]ou.Recommendation, len(base))
	c := cursor{period: s.period, size: len(s.actions)}
	for i, b := range base {
		c.observe(dates[i])
		switch {
		case b == ou.RecPush:
			recs[i] = ou.RecPush
		case !b.Actionable():
			recs[i] = ou.RecSkip
		default:
			recs[i] = ou.Compose(b, s.actions[c.next()])
		}
	}
	return recs
}

// cursor walks a cyclic pattern and rewinds on period change.
type cursor struct {
	period ou.Period
	size   int
	key    int
	idx    int
	primed bool
}

func (c *cursor) observe(t time.Time) {
	if k := c.period.Key(t); !c.primed || k != c.key {
		c.key = k
		c.idx = 0
		c.primed = true
	}
}

func (c *cursor) next() int {
	i := c.idx % c.size
	c.idx++
	return i
}
