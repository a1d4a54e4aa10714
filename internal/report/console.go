package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/sawpanic/streakrun/internal/backtest"
	"github.com/sawpanic/streakrun/internal/streak"
)

var rule = strings.Repeat("=", 50)

// PrintActiveStreaks prints the current loss streaks of at least min games.
func PrintActiveStreaks(w io.Writer, streaks []streak.ActiveStreak, min int) {
	if len(streaks) == 0 {
		fmt.Fprintf(w, "\nNo teams are currently on %d+ game losing streaks in any system.\n", min)
		return
	}
	fmt.Fprintf(w, "\n%s\nCURRENT %d+ GAME LOSING STREAKS:\n%s\n", rule, min, rule)
	for _, s := range streaks {
		fmt.Fprintf(w, "%s is currently on a %d-game loss streak in the %s system\n", s.Team, s.Losses, s.System)
	}
	fmt.Fprintln(w, rule)
}

// PrintTrends prints one sentence per trend.
func PrintTrends(w io.Writer, run *backtest.Run) {
	if len(run.Trends) == 0 {
		fmt.Fprintln(w, "No current trends to report.")
		return
	}
	for _, tr := range run.Trends {
		fmt.Fprintln(w, tr.Summary)
	}
}

// PrintSummary prints run totals and the workbook layout.
func PrintSummary(w io.Writer, run *backtest.Run, workbook string) {
	fmt.Fprintf(w, "\nRun %s: %d teams, %d systems", run.RunID, len(run.Teams), len(run.Systems))
	if !run.FirstDate.IsZero() {
		fmt.Fprintf(w, ", %s to %s", run.FirstDate.Format(dateLayout), run.LastDate.Format(dateLayout))
	}
	fmt.Fprintln(w)

	for _, t := range run.Totals {
		pct := "n/a"
		if t.Percentage != nil {
			pct = fmt.Sprintf("%.2f%%", *t.Percentage)
		}
		fmt.Fprintf(w, "  %-14s %4d sequences, %4d recovered (%s)\n", t.System, t.Total, t.Recovered, pct)
	}
	if len(run.OpenWindows) > 0 {
		fmt.Fprintf(w, "  %d recovery window(s) still open at end of data\n", len(run.OpenWindows))
	}

	if workbook == "" {
		return
	}
	fmt.Fprintf(w, "Finished! Output written to '%s':\n", workbook)
	fmt.Fprintf(w, " - Sheet '%s' (O/U results)\n", SheetOU)
	for _, res := range run.Results {
		fmt.Fprintf(w, " - Sheet '%s' (%s system with flags)\n", SheetName(res.Name), res.Name)
	}
	fmt.Fprintf(w, " - Sheet '%s' (Recovery analysis summary)\n", SheetResults)
	fmt.Fprintf(w, " - Sheet '%s' (Individual 8-loss sequence details)\n", SheetDetailed)
	fmt.Fprintf(w, " - Sheet '%s' (Current loss streaks)\n", SheetActive)
	if len(run.Trends) > 0 {
		fmt.Fprintf(w, " - Sheet '%s' (Current trends)\n", SheetTrends)
	}
}
