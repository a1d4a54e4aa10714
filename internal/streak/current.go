package streak

import (
	"time"

	"github.com/sawpanic/streakrun/internal/domain/ou"
)

// ActiveStreak is a loss run still alive at the end of the data.
type ActiveStreak struct {
	System   string    `json:"system"`
	Team     string    `json:"team"`
	Losses   int       `json:"losses"`
	LastDate time.Time `json:"last_date"`
}

// CurrentLosses walks the history backwards from the latest row and counts
// consecutive losses. Rows without a bet, and pushes, are skipped; the first
// graded non-loss ends the count. It keeps no state and ignores period
// resets. lastDate is the most recent counted loss.
func CurrentLosses(dates []time.Time, recs []ou.Recommendation, outcomes []ou.Outcome) (losses int, lastDate time.Time) {
	for i := len(dates) - 1; i >= 0; i-- {
		if !recs[i].Actionable() || outcomes[i] == ou.Skip || outcomes[i] == ou.Push {
			continue
		}
		if !ou.IsLoss(recs[i], outcomes[i]) {
			break
		}
		if losses == 0 {
			lastDate = dates[i]
		}
		losses++
	}
	return losses, lastDate
}

// Active returns the streak for (system, team) when it has at least min
// losses.
func Active(system, team string, min int, dates []time.Time, recs []ou.Recommendation, outcomes []ou.Outcome) (ActiveStreak, bool) {
	losses, last := CurrentLosses(dates, recs, outcomes)
	if losses < min || losses == 0 {
		return ActiveStreak{}, false
	}
	return ActiveStreak{System: system, Team: team, Losses: losses, LastDate: last}, true
}
