// Package pivot lays ingested games out as a Date x Team grid of outcomes.
package pivot

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/streakrun/internal/data/ingest"
	"github.com/sawpanic/streakrun/internal/domain/ou"
)

// Table is the pivoted grid. Every team has one outcome per date; a team
// without a game on a date holds ou.Skip.
type Table struct {
	Dates      []time.Time
	Teams      []string
	Outcomes   map[string][]ou.Outcome
	Duplicates int
}

// Build pivots games on date and team. When a team appears twice on the same
// date the later row wins.
func Build(games []ingest.Game) *Table {
	dateSet := make(map[time.Time]struct{})
	teamSet := make(map[string]struct{})
	for _, g := range games {
		dateSet[g.Date] = struct{}{}
		teamSet[g.Team] = struct{}{}
	}

	t := &Table{
		Dates:    make([]time.Time, 0, len(dateSet)),
		Teams:    make([]string, 0, len(teamSet)),
		Outcomes: make(map[string][]ou.Outcome, len(teamSet)),
	}
	for d := range dateSet {
		t.Dates = append(t.Dates, d)
	}
	sort.Slice(t.Dates, func(i, j int) bool { return t.Dates[i].Before(t.Dates[j]) })
	for team := range teamSet {
		t.Teams = append(t.Teams, team)
	}
	sort.Strings(t.Teams)

	row := make(map[time.Time]int, len(t.Dates))
	for i, d := range t.Dates {
		row[d] = i
	}
	seen := make(map[string]map[int]bool, len(t.Teams))
	for _, team := range t.Teams {
		t.Outcomes[team] = make([]ou.Outcome, len(t.Dates))
		seen[team] = make(map[int]bool)
	}

	for _, g := range games {
		i := row[g.Date]
		if seen[g.Team][i] {
			t.Duplicates++
			log.Warn().
				Str("team", g.Team).
				Str("date", g.Date.Format("2006-01-02")).
				Msg("Duplicate game for team and date, keeping the later row")
		}
		seen[g.Team][i] = true
		t.Outcomes[g.Team][i] = ou.FromMargin(g.OUMargin, g.HasOU)
	}

	return t
}

// Series returns one team's outcomes aligned with t.Dates.
func (t *Table) Series(team string) []ou.Outcome {
	return t.Outcomes[team]
}
