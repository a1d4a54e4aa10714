// Package trends describes each team's current ATS and O/U runs against the
// runs seen in its recent history.
package trends

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sawpanic/streakrun/internal/data/ingest"
)

// Kind names the run being described.
type Kind string

const (
	KindOver    Kind = "Over"
	KindUnder   Kind = "Under"
	KindCover   Kind = "Cover"
	KindNoCover Kind = "NoCover"
)

// Config bounds the analysis.
type Config struct {
	MinLength int // shortest current run reported
	Lookback  int // games examined after the current run
}

// DefaultConfig reports runs of four or more against the prior 100 games.
func DefaultConfig() Config {
	return Config{MinLength: 4, Lookback: 100}
}

// Trend is one reported run.
type Trend struct {
	Team     string `json:"team"`
	Kind     Kind   `json:"kind"`
	Current  int    `json:"current_length"`
	Previous int    `json:"previous_streaks"`
	EndedAt  int    `json:"ended_at"`
	Extended []int  `json:"extended_lengths,omitempty"`
	Summary  string `json:"summary"`
}

type label uint8

const (
	labelNone label = iota
	labelPos        // Yes / Over
	labelNeg        // No / Under
	labelPush
)

func labelOf(margin float64) label {
	switch {
	case margin > 0:
		return labelPos
	case margin < 0:
		return labelNeg
	default:
		return labelPush
	}
}

type dated struct {
	date time.Time
	l    label
}

// Analyze returns the reportable runs of every team, ATS before O/U, teams
// in name order. Games without a margin are left out of that series.
func Analyze(games []ingest.Game, cfg Config) []Trend {
	ats := make(map[string][]dated)
	ous := make(map[string][]dated)
	teams := make(map[string]bool)
	for _, g := range games {
		teams[g.Team] = true
		if g.HasATS {
			ats[g.Team] = append(ats[g.Team], dated{g.Date, labelOf(g.ATSMargin)})
		}
		if g.HasOU {
			ous[g.Team] = append(ous[g.Team], dated{g.Date, labelOf(g.OUMargin)})
		}
	}

	names := make([]string, 0, len(teams))
	for t := range teams {
		names = append(names, t)
	}
	sort.Strings(names)

	var out []Trend
	for _, team := range names {
		if tr, ok := describe(team, newestFirst(ats[team]), cfg, KindCover, KindNoCover); ok {
			out = append(out, tr)
		}
		if tr, ok := describe(team, newestFirst(ous[team]), cfg, KindOver, KindUnder); ok {
			out = append(out, tr)
		}
	}
	return out
}

func newestFirst(rows []dated) []label {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.After(rows[j].date) })
	labels := make([]label, len(rows))
	for i, r := range rows {
		labels[i] = r.l
	}
	return labels
}

func describe(team string, series []label, cfg Config, pos, neg Kind) (Trend, bool) {
	if len(series) == 0 {
		return Trend{}, false
	}
	current := series[0]
	n := 1
	for n < len(series) && series[n] == current {
		n++
	}
	if n < cfg.MinLength || current == labelPush {
		return Trend{}, false
	}

	end := n + cfg.Lookback
	if end > len(series) {
		end = len(series)
	}
	runs := pastRuns(series[n:end], current, n)

	kind := pos
	if current == labelNeg {
		kind = neg
	}
	tr := Trend{Team: team, Kind: kind, Current: n, Previous: len(runs)}
	for _, r := range runs {
		if r == n {
			tr.EndedAt++
		} else {
			tr.Extended = append(tr.Extended, r)
		}
	}
	tr.Summary = summarize(tr, cfg.Lookback)
	return tr, true
}

// pastRuns returns the lengths of runs of want that reach at least min.
func pastRuns(series []label, want label, min int) []int {
	var runs []int
	run := 0
	for _, l := range series {
		if l == want {
			run++
			continue
		}
		if run >= min {
			runs = append(runs, run)
		}
		run = 0
	}
	if run >= min {
		runs = append(runs, run)
	}
	return runs
}

func summarize(tr Trend, lookback int) string {
	var b strings.Builder
	switch tr.Kind {
	case KindOver, KindUnder:
		fmt.Fprintf(&b, "%s has gone %s for the last %d straight games.", tr.Team, tr.Kind, tr.Current)
	case KindCover:
		fmt.Fprintf(&b, "%s has covered the spread for the last %d straight games.", tr.Team, tr.Current)
	case KindNoCover:
		fmt.Fprintf(&b, "%s has failed to cover the spread for the last %d straight games.", tr.Team, tr.Current)
	}

	if tr.Previous == 0 {
		fmt.Fprintf(&b, " No other streak(s) of at least %d games %s in last %d games.",
			tr.Current, strings.ToLower(string(tr.Kind)), lookback)
		return b.String()
	}

	lengths := make([]int, 0, tr.Previous)
	for i := 0; i < tr.EndedAt; i++ {
		lengths = append(lengths, tr.Current)
	}
	lengths = append(lengths, tr.Extended...)
	sort.Ints(lengths)
	parts := make([]string, len(lengths))
	for i, l := range lengths {
		parts[i] = fmt.Sprint(l)
	}
	fmt.Fprintf(&b, " %d other similar streak(s) in the last %d games (%s).",
		tr.Previous, lookback, strings.Join(parts, ", "))
	return b.String()
}
