package streak

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/streakrun/internal/domain/ou"
)

type scanResult struct {
	Markers []Marker
	Events  []Event
	Open    *OpenWindow
}

// analyze steps one chronological history through a tracker.
func analyze(cfg Config, system, team string, dates []time.Time, recs []ou.Recommendation, outcomes []ou.Outcome) scanResult {
	tr := NewTracker(cfg)
	key := Key{System: system, Team: team}
	res := scanResult{Markers: make([]Marker, len(dates))}
	for i, date := range dates {
		res.Markers[i] = tr.Step(key, date, recs[i], outcomes[i])
	}
	res.Events = tr.Events()
	if open := tr.Open(); len(open) > 0 {
		res.Open = &open[0]
	}
	return res
}

type history struct {
	dates    []time.Time
	recs     []ou.Recommendation
	outcomes []ou.Outcome
}

func (h *history) add(date time.Time, rec ou.Recommendation, out ou.Outcome) {
	h.dates = append(h.dates, date)
	h.recs = append(h.recs, rec)
	h.outcomes = append(h.outcomes, out)
}

// addDaily appends rows on consecutive days after the last row.
func (h *history) addDaily(start time.Time, rows ...[2]uint8) {
	for i, r := range rows {
		h.add(start.AddDate(0, 0, i), ou.Recommendation(r[0]), ou.Outcome(r[1]))
	}
}

var (
	loss = [2]uint8{uint8(ou.TailOver), uint8(ou.Under)}
	win  = [2]uint8{uint8(ou.TailOver), uint8(ou.Over)}
	push = [2]uint8{uint8(ou.TailOver), uint8(ou.Push)}
	skip = [2]uint8{uint8(ou.RecSkip), uint8(ou.Over)}
)

func repeat(row [2]uint8, n int) [][2]uint8 {
	rows := make([][2]uint8, n)
	for i := range rows {
		rows[i] = row
	}
	return rows
}

func april(d int) time.Time {
	return time.Date(2024, 4, d, 0, 0, 0, 0, time.UTC)
}

func TestEightLossesThenRecoveryWin(t *testing.T) {
	var h history
	rows := append(repeat(loss, 8), win, loss)
	h.addDaily(april(1), rows...)

	res := analyze(DefaultConfig(), "Tails Prior", "Boston", h.dates, h.recs, h.outcomes)

	assert.Equal(t, EighthLoss, res.Markers[7])
	assert.Equal(t, RecoveryWin, res.Markers[8])
	assert.Equal(t, NoMarker, res.Markers[9])
	require.Len(t, res.Events, 1)
	assert.Equal(t, Event{
		System:    "Tails Prior",
		Team:      "Boston",
		Year:      2024,
		StartDate: april(1),
		EndDate:   april(10),
		Recovered: true,
	}, res.Events[0])
	assert.Nil(t, res.Open)
}

func TestRecoveryWinOnSecondGame(t *testing.T) {
	var h history
	h.addDaily(april(1), append(repeat(loss, 8), loss, win)...)

	res := analyze(DefaultConfig(), "S", "T", h.dates, h.recs, h.outcomes)
	assert.Equal(t, NoMarker, res.Markers[8])
	assert.Equal(t, RecoveryWin, res.Markers[9])
	require.Len(t, res.Events, 1)
	assert.True(t, res.Events[0].Recovered)
}

func TestRecoveryExhausted(t *testing.T) {
	var h history
	h.addDaily(april(1), repeat(loss, 10)...)

	res := analyze(DefaultConfig(), "S", "T", h.dates, h.recs, h.outcomes)
	assert.Equal(t, EighthLoss, res.Markers[7])
	assert.Equal(t, NoMarker, res.Markers[8])
	assert.Equal(t, RecoveryExhausted, res.Markers[9])
	require.Len(t, res.Events, 1)
	assert.False(t, res.Events[0].Recovered)
	assert.Equal(t, april(10), res.Events[0].EndDate)
}

func TestPushDoesNotConsumeRecoverySlot(t *testing.T) {
	var h history
	h.addDaily(april(1), append(repeat(loss, 8), push, skip, loss, win)...)

	res := analyze(DefaultConfig(), "S", "T", h.dates, h.recs, h.outcomes)
	require.Len(t, res.Events, 1)
	assert.Equal(t, april(12), res.Events[0].EndDate)
	assert.Equal(t, RecoveryWin, res.Markers[11])
}

func TestWindowStaysOpenWhenDataEnds(t *testing.T) {
	var h history
	h.addDaily(april(1), append(repeat(loss, 8), loss)...)

	res := analyze(DefaultConfig(), "S", "T", h.dates, h.recs, h.outcomes)
	assert.Empty(t, res.Events)
	require.NotNil(t, res.Open)
	assert.Equal(t, 1, res.Open.GamesSeen)
	assert.Equal(t, 0, res.Open.Wins)
	assert.Equal(t, april(1), res.Open.StartDate)
}

func TestWinClearsStreak(t *testing.T) {
	var h history
	rows := append(repeat(loss, 7), win)
	rows = append(rows, repeat(loss, 7)...)
	h.addDaily(april(1), rows...)

	res := analyze(DefaultConfig(), "S", "T", h.dates, h.recs, h.outcomes)
	assert.NotContains(t, res.Markers, EighthLoss)
	assert.Empty(t, res.Events)
}

func TestPushAndSkipDoNotBreakStreak(t *testing.T) {
	var h history
	rows := append(repeat(loss, 4), push, skip, [2]uint8{uint8(ou.TailOver), uint8(ou.Skip)})
	rows = append(rows, repeat(loss, 4)...)
	h.addDaily(april(1), rows...)

	res := analyze(DefaultConfig(), "S", "T", h.dates, h.recs, h.outcomes)
	assert.Equal(t, EighthLoss, res.Markers[len(rows)-1])
}

func TestStreakStartIsFirstLossOfRun(t *testing.T) {
	var h history
	rows := append(repeat(loss, 3), win)
	rows = append(rows, repeat(loss, 8)...)
	rows = append(rows, win, win)
	h.addDaily(april(1), rows...)

	res := analyze(DefaultConfig(), "S", "T", h.dates, h.recs, h.outcomes)
	require.Len(t, res.Events, 1)
	assert.Equal(t, april(5), res.Events[0].StartDate)
}

func TestYearlyResetClearsLossCount(t *testing.T) {
	m := NewMachine(DefaultConfig(), "S", "T")
	for d := 27; d <= 31; d++ {
		m.Step(time.Date(2023, 12, d, 0, 0, 0, 0, time.UTC), ou.TailOver, ou.Under)
	}
	require.Equal(t, 5, m.State().ConsecutiveLosses)

	m.Step(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ou.RecSkip, ou.Skip)
	assert.Equal(t, 0, m.State().ConsecutiveLosses)

	m.Step(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), ou.TailOver, ou.Under)
	assert.Equal(t, 1, m.State().ConsecutiveLosses)
}

func TestYearlyResetAbandonsOpenWindow(t *testing.T) {
	var h history
	h.addDaily(time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC), append(repeat(loss, 8), loss)...)
	h.add(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), ou.TailOver, ou.Under)

	res := analyze(DefaultConfig(), "S", "T", h.dates, h.recs, h.outcomes)
	assert.Empty(t, res.Events)
	assert.Nil(t, res.Open)
	assert.Equal(t, NoMarker, res.Markers[len(res.Markers)-1])
}

func TestMachineInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	recChoices := []ou.Recommendation{ou.RecSkip, ou.RecPush, ou.TailOver, ou.TailUnder, ou.FadeOver, ou.FadeUnder}
	outChoices := []ou.Outcome{ou.Skip, ou.Push, ou.Over, ou.Under, ou.Over, ou.Under}

	cfg := DefaultConfig()
	for trial := 0; trial < 50; trial++ {
		var h history
		date := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 600; i++ {
			h.add(date, recChoices[rng.Intn(len(recChoices))], outChoices[rng.Intn(len(outChoices))])
			date = date.AddDate(0, 0, 1+rng.Intn(2))
		}

		m := NewMachine(cfg, "S", "T")
		for i := range h.dates {
			m.Step(h.dates[i], h.recs[i], h.outcomes[i])
			st := m.State()
			assert.Less(t, st.ConsecutiveLosses, cfg.LossStreak)
			assert.LessOrEqual(t, st.RecoveryGames, cfg.RecoveryWindow-1)
			if st.Phase == Recovering {
				assert.Zero(t, st.ConsecutiveLosses)
			} else {
				assert.Zero(t, st.RecoveryGames)
			}
		}

		first := analyze(cfg, "S", "T", h.dates, h.recs, h.outcomes)
		second := analyze(cfg, "S", "T", h.dates, h.recs, h.outcomes)
		assert.Equal(t, first, second)

		for _, ev := range first.Events {
			assert.Equal(t, ev.StartDate.Year(), ev.EndDate.Year())
			assert.Equal(t, ev.Year, ev.EndDate.Year())
			assert.False(t, ev.EndDate.Before(ev.StartDate))
		}
	}
}

func TestTrackerInterleavedKeys(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	a := Key{System: "A", Team: "Boston"}
	b := Key{System: "B", Team: "Boston"}

	for d := 1; d <= 8; d++ {
		tr.Step(a, april(d), ou.TailOver, ou.Under)
		tr.Step(b, april(d), ou.FadeUnder, ou.Under)
	}
	assert.Len(t, tr.Open(), 1)
	assert.Equal(t, "A", tr.Open()[0].System)
	assert.Equal(t, NoMarker, tr.Step(b, april(9), ou.FadeUnder, ou.Push))

	assert.Equal(t, RecoveryWin, tr.Step(a, april(9), ou.TailOver, ou.Over))
	assert.Equal(t, NoMarker, tr.Step(a, april(10), ou.TailOver, ou.Under))

	events := tr.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "A", events[0].System)
	assert.True(t, events[0].Recovered)
	assert.Empty(t, tr.Open())
}

func TestTrackerOpenFollowsFirstSeenOrder(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	keys := []Key{{System: "Zeta", Team: "Boston"}, {System: "Alpha", Team: "Denver"}, {System: "Alpha", Team: "Austin"}}
	for _, k := range keys {
		for d := 1; d <= 8; d++ {
			tr.Step(k, april(d), ou.TailOver, ou.Under)
		}
	}

	open := tr.Open()
	require.Len(t, open, 3)
	for i, k := range keys {
		assert.Equal(t, k.System, open[i].System)
		assert.Equal(t, k.Team, open[i].Team)
	}
}

func TestMarkerLabels(t *testing.T) {
	assert.Equal(t, "", NoMarker.String())
	assert.Equal(t, "X", EighthLoss.String())
	assert.Equal(t, "W", RecoveryWin.String())
	assert.Equal(t, "L", RecoveryExhausted.String())
}
