package systems

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/streakrun/internal/domain/ou"
)

func daysFrom(start time.Time, n int) []time.Time {
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

func TestTailsPriorAlternating(t *testing.T) {
	outcomes := []ou.Outcome{ou.Over, ou.Under, ou.Over, ou.Under, ou.Over, ou.Under, ou.Over, ou.Under}
	dates := daysFrom(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), len(outcomes))

	got := NewTailsPrior(ou.Monthly).Generate(dates, outcomes)
	want := []ou.Recommendation{
		ou.RecSkip, ou.TailOver, ou.FadeUnder, ou.TailOver,
		ou.FadeUnder, ou.TailOver, ou.FadeUnder, ou.TailOver,
	}
	assert.Equal(t, want, got)
}

func TestTailsPriorPushAndSkipKeepPrior(t *testing.T) {
	outcomes := []ou.Outcome{ou.Under, ou.Push, ou.Skip, ou.Over}
	dates := daysFrom(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), len(outcomes))

	got := NewTailsPrior(ou.Monthly).Generate(dates, outcomes)
	assert.Equal(t, []ou.Recommendation{ou.RecSkip, ou.RecPush, ou.RecSkip, ou.FadeUnder}, got)
}

func TestTailsPriorMonthlyReset(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
	}
	outcomes := []ou.Outcome{ou.Over, ou.Over, ou.Under, ou.Over}

	got := NewTailsPrior(ou.Monthly).Generate(dates, outcomes)
	assert.Equal(t, []ou.Recommendation{ou.RecSkip, ou.TailOver, ou.RecSkip, ou.FadeUnder}, got)
}

func TestTailsPriorResetsWhenSameMonthNextYear(t *testing.T) {
	dates := []time.Time{
		time.Date(2023, 4, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	got := NewTailsPrior(ou.Monthly).Generate(dates, []ou.Outcome{ou.Over, ou.Over})
	assert.Equal(t, []ou.Recommendation{ou.RecSkip, ou.RecSkip}, got)
}

func TestPatternCyclesOnDirectionalOnly(t *testing.T) {
	outcomes := []ou.Outcome{ou.Over, ou.Push, ou.Under, ou.Skip, ou.Under, ou.Over}
	dates := daysFrom(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), len(outcomes))

	p := NewPattern("OU TFFT", []ou.Recommendation{ou.TailOver, ou.FadeUnder, ou.FadeUnder, ou.TailOver}, ou.Monthly)
	got := p.Generate(dates, outcomes)
	assert.Equal(t, []ou.Recommendation{
		ou.TailOver, ou.RecPush, ou.FadeUnder, ou.RecSkip, ou.FadeUnder, ou.TailOver,
	}, got)
}

func TestPatternRewindsEachMonth(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC),
	}
	p := NewPattern("OU TFTF", []ou.Recommendation{ou.TailOver, ou.FadeUnder}, ou.Monthly)
	got := p.Generate(dates, []ou.Outcome{ou.Over, ou.Over, ou.Over})
	assert.Equal(t, []ou.Recommendation{ou.TailOver, ou.TailOver, ou.FadeUnder}, got)
}

func TestPriorPatternComposesOverTails(t *testing.T) {
	outcomes := []ou.Outcome{ou.Over, ou.Over, ou.Under, ou.Push, ou.Over, ou.Under}
	dates := daysFrom(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), len(outcomes))

	base := NewTailsPrior(ou.Monthly)
	tails := base.Generate(dates, outcomes)
	require.Equal(t, []ou.Recommendation{
		ou.RecSkip, ou.TailOver, ou.TailOver, ou.RecPush, ou.FadeUnder, ou.TailOver,
	}, tails)

	tp := NewPriorPattern("TP TFTF", []ou.Action{ou.Tail, ou.Fade}, ou.Monthly, base)
	got := tp.Generate(dates, outcomes)
	assert.Equal(t, []ou.Recommendation{
		ou.RecSkip,   // no base bet, cursor stays
		ou.TailOver,  // Tail over Tail - Over
		ou.FadeUnder, // Fade over Tail - Over
		ou.RecPush,
		ou.TailUnder, // Tail over Fade - Under
		ou.FadeUnder, // Fade over Tail - Over
	}, got)
	assert.Equal(t, got, tp.Compose(dates, tails))
}

func TestBuildDefaults(t *testing.T) {
	built, err := Build(DefaultSpecs(), ou.Monthly)
	require.NoError(t, err)
	require.Len(t, built, 7)

	assert.Equal(t, TailsName, built[0].Name())
	assert.Equal(t, KindPattern, built[1].Kind())
	tp, ok := built[4].(*PriorPattern)
	require.True(t, ok)
	assert.Same(t, built[0], tp.Base())
}

func TestBuildRejectsBadSpecs(t *testing.T) {
	_, err := Build([]Spec{{Name: "X", Kind: "martingale"}}, ou.Monthly)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = Build([]Spec{{Name: "X", Kind: KindPattern}}, ou.Monthly)
	assert.Error(t, err)

	_, err = Build([]Spec{{Name: "X", Kind: KindPattern, Steps: []string{"Push"}}}, ou.Monthly)
	assert.Error(t, err)

	_, err = Build([]Spec{{Name: "X", Kind: KindPriorPattern, Steps: []string{"Double"}}}, ou.Monthly)
	assert.Error(t, err)

	_, err = Build([]Spec{{Name: "Tails", Kind: KindTailsPrior}}, ou.Monthly)
	assert.Error(t, err)

	_, err = Build([]Spec{
		{Name: "A", Kind: KindPattern, Steps: []string{"Tail - Over"}},
		{Name: "A", Kind: KindPattern, Steps: []string{"Fade - Under"}},
	}, ou.Monthly)
	assert.Error(t, err)
}
