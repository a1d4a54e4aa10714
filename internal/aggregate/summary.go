// Package aggregate rolls recovery events up per system, team and year.
package aggregate

import (
	"math"
	"sort"

	"github.com/sawpanic/streakrun/internal/streak"
)

// Summary is the recovery record of one (system, team, year) group.
type Summary struct {
	System    string `json:"system"`
	Team      string `json:"team"`
	Year      int    `json:"year"`
	Total     int    `json:"total_sequences"`
	Recovered int    `json:"sequences_recovered"`
	// Percentage is nil when there are no sequences.
	Percentage *float64 `json:"recovery_percentage,omitempty"`
}

type groupKey struct {
	system string
	team   string
	year   int
}

// Summarize groups events and computes recovered percentages rounded to two
// decimals. Output is sorted by system, team and year.
func Summarize(events []streak.Event) []Summary {
	groups := make(map[groupKey]*Summary)
	for _, ev := range events {
		k := groupKey{ev.System, ev.Team, ev.Year}
		s, ok := groups[k]
		if !ok {
			s = &Summary{System: ev.System, Team: ev.Team, Year: ev.Year}
			groups[k] = s
		}
		s.Total++
		if ev.Recovered {
			s.Recovered++
		}
	}

	out := make([]Summary, 0, len(groups))
	for _, s := range groups {
		s.Percentage = Percentage(s.Recovered, s.Total)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.System != b.System {
			return a.System < b.System
		}
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		return a.Year < b.Year
	})
	return out
}

// Percentage returns part/total*100 rounded half to even at two decimals,
// or nil when total is zero.
func Percentage(part, total int) *float64 {
	if total == 0 {
		return nil
	}
	p := math.RoundToEven(float64(part)/float64(total)*100*100) / 100
	return &p
}

// Totals collapses summaries to one row per system.
func Totals(summaries []Summary) []Summary {
	bySystem := make(map[string]*Summary)
	var order []string
	for _, s := range summaries {
		t, ok := bySystem[s.System]
		if !ok {
			t = &Summary{System: s.System}
			bySystem[s.System] = t
			order = append(order, s.System)
		}
		t.Total += s.Total
		t.Recovered += s.Recovered
	}
	sort.Strings(order)

	out := make([]Summary, 0, len(order))
	for _, name := range order {
		t := bySystem[name]
		t.Percentage = Percentage(t.Recovered, t.Total)
		out = append(out, *t)
	}
	return out
}
