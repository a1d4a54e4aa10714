package report

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sawpanic/streakrun/internal/backtest"
	"github.com/sawpanic/streakrun/internal/data/ingest"
	"github.com/sawpanic/streakrun/internal/metrics"
	"github.com/sawpanic/streakrun/internal/streak"
	"github.com/sawpanic/streakrun/internal/trends"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// sampleRun plays 11 alternating-then-winning games for Boston, which gives
// Tails Prior one recovered sequence, and two games for Seattle.
func sampleRun(t *testing.T) *backtest.Run {
	t.Helper()
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	var games []ingest.Game
	for i := 0; i < 9; i++ {
		m := 1.0
		if i%2 == 1 {
			m = -1
		}
		games = append(games, ingest.Game{Date: start.AddDate(0, 0, i), Team: "Boston", OUMargin: m, HasOU: true})
	}
	games = append(games,
		ingest.Game{Date: start.AddDate(0, 0, 9), Team: "Boston", OUMargin: 3, HasOU: true},
		ingest.Game{Date: start.AddDate(0, 0, 10), Team: "Boston", OUMargin: 0, HasOU: true},
		ingest.Game{Date: start.AddDate(0, 0, 11), Team: "Boston", OUMargin: -3, HasOU: true},
		ingest.Game{Date: start, Team: "Seattle", OUMargin: 1, HasOU: true},
		ingest.Game{Date: start.AddDate(0, 0, 1), Team: "Seattle", OUMargin: 1, HasOU: true},
	)

	cfg := backtest.DefaultConfig()
	cfg.Trends = &trends.Config{MinLength: 2, Lookback: 100}
	runner := backtest.NewRunner(cfg, metrics.NewRegistry(""))
	runner.SetClock(fixedClock{time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)})
	runner.SetIDFunc(func() string { return "run-1" })

	run, err := runner.Run(context.Background(), "games.csv", games, ingest.Stats{Loaded: len(games)})
	require.NoError(t, err)
	return run
}

// openWorkbook writes run to disk and reopens it for reading.
func openWorkbook(t *testing.T, run *backtest.Run) *excelize.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "streaks.xlsx")
	require.NoError(t, WriteWorkbook(path, run))
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestBuildWorkbookSheets(t *testing.T) {
	run := sampleRun(t)
	f, err := BuildWorkbook(run)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		SheetOU, "Tails Prior", "OU TFTF", "OU TFFT", "OU FTTF", "TP TFTF", "TP TFFT", "TP FTTF",
		SheetResults, SheetDetailed, SheetActive, SheetTrends,
	}, f.GetSheetList())
}

func TestBuildWorkbookOUSheet(t *testing.T) {
	f := openWorkbook(t, sampleRun(t))

	rows, err := f.GetRows(SheetOU)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Boston", "Seattle"}, rows[0])
	assert.Equal(t, []string{"2024-04-01", "Over", "Over"}, rows[1])

	// Seattle has no game on 2024-04-03
	v, err := f.GetCellValue(SheetOU, "C4")
	require.NoError(t, err)
	assert.Equal(t, "", v)
	v, err = f.GetCellValue(SheetOU, "B12")
	require.NoError(t, err)
	assert.Equal(t, "Push", v)
}

func TestBuildWorkbookTailsSheet(t *testing.T) {
	f := openWorkbook(t, sampleRun(t))

	rows, err := f.GetRows("Tails Prior")
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Boston", "Boston Tail", "Boston Flag", "X",
		"Seattle", "Seattle Tail", "Seattle Flag", "X"}, rows[0])

	cell := func(axis string) string {
		v, err := f.GetCellValue("Tails Prior", axis)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Skip", cell("C2"))
	assert.Equal(t, "Tail - Over", cell("C3"))
	assert.Equal(t, "X", cell("D10"))   // 8th loss on day 9
	assert.Equal(t, "W", cell("D11"))   // day 10 Over wins
	assert.Equal(t, "", cell("D12"))    // push does not count
	assert.Equal(t, "Skip", cell("G4")) // Seattle idle
}

func TestBuildWorkbookComposedSheet(t *testing.T) {
	f := openWorkbook(t, sampleRun(t))

	rows, err := f.GetRows("TP TFTF")
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Boston", "Boston Tail", "Boston TP TFTF", "Boston TP TFTF Flag", "X"}, rows[0][:6])

	rows, err = f.GetRows("OU TFTF")
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Boston", "Boston OU TFTF", "Boston OU TFTF Flag", "X"}, rows[0][:5])
}

func TestBuildWorkbookResults(t *testing.T) {
	run := sampleRun(t)
	f := openWorkbook(t, run)

	rows, err := f.GetRows(SheetResults)
	require.NoError(t, err)
	assert.Equal(t, []string{"System", "Team", "Year", "Total_8Loss_Sequences", "Sequences_Recovered", "Recovery_Percentage"}, rows[0])
	require.Len(t, rows, len(run.Summaries)+1)

	rows, err = f.GetRows(SheetDetailed)
	require.NoError(t, err)
	require.Len(t, rows, len(run.Events)+1)

	var found bool
	for _, r := range rows[1:] {
		if r[0] == "Tails Prior" {
			found = true
			assert.Equal(t, []string{"Tails Prior", "Boston", "2024", "2024-04-02", "2024-04-12", "TRUE"}, r)
		}
	}
	assert.True(t, found)

	rows, err = f.GetRows(SheetTrends)
	require.NoError(t, err)
	assert.Equal(t, "Summary", rows[0][0])
}

func TestBuildWorkbookRequiresGrid(t *testing.T) {
	_, err := BuildWorkbook(&backtest.Run{RunID: "x"})
	assert.Error(t, err)
}

func TestWriteWorkbookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "streaks.xlsx")
	require.NoError(t, WriteWorkbook(path, sampleRun(t)))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), SheetResults)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "OU TFTF", SheetName("OU TFTF"))
	assert.Equal(t, "a_b_c", SheetName("a/b:c"))
	assert.Len(t, SheetName("a very long system name that exceeds excel limits"), 31)
}

func TestArtifactRoundTrip(t *testing.T) {
	run := sampleRun(t)
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, WriteArtifact(path, run))

	got, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Len(t, got.Events, len(run.Events))
	assert.Len(t, got.Summaries, len(run.Summaries))
	assert.Equal(t, run.Teams, got.Teams)
	assert.Nil(t, got.Table)
}

func TestLoadArtifactMissing(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPrintActiveStreaks(t *testing.T) {
	var buf bytes.Buffer
	PrintActiveStreaks(&buf, []streak.ActiveStreak{
		{System: "OU TFTF", Team: "Boston", Losses: 9},
	}, 7)

	out := buf.String()
	assert.Contains(t, out, "CURRENT 7+ GAME LOSING STREAKS:")
	assert.Contains(t, out, "Boston is currently on a 9-game loss streak in the OU TFTF system")

	buf.Reset()
	PrintActiveStreaks(&buf, nil, 7)
	assert.Equal(t, "\nNo teams are currently on 7+ game losing streaks in any system.\n", buf.String())
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, sampleRun(t), "out.xlsx")

	out := buf.String()
	assert.Contains(t, out, "Run run-1: 2 teams, 7 systems, 2024-04-01 to 2024-04-12")
	assert.Contains(t, out, "Finished! Output written to 'out.xlsx':")
	assert.Contains(t, out, " - Sheet 'TP FTTF' (TP FTTF system with flags)")
}
