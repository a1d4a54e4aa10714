// Package report renders a backtest run as a workbook, a JSON artifact and a
// console summary.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/sawpanic/streakrun/internal/backtest"
	"github.com/sawpanic/streakrun/internal/domain/ou"
	aio "github.com/sawpanic/streakrun/internal/io"
	"github.com/sawpanic/streakrun/internal/streak"
	"github.com/sawpanic/streakrun/internal/systems"
)

// Sheet names.
const (
	SheetOU       = "O_U"
	SheetResults  = "Results"
	SheetDetailed = "Detailed Results"
	SheetActive   = "Active Streaks"
	SheetTrends   = "Trends & Streaks"
)

const dateLayout = "2006-01-02"

const maxSheetName = 31

// WriteWorkbook renders run into an XLSX file at path. The file is replaced
// atomically, so a failed write leaves any previous workbook intact.
func WriteWorkbook(path string, run *backtest.Run) error {
	f, err := BuildWorkbook(run)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := aio.WriteToAtomic(path, func(w io.Writer) error {
		return f.Write(w)
	}); err != nil {
		return fmt.Errorf("failed to write workbook %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("sheets", len(f.GetSheetList())).Msg("Workbook written")
	return nil
}

// BuildWorkbook lays out every sheet in memory.
func BuildWorkbook(run *backtest.Run) (*excelize.File, error) {
	if run.Table == nil {
		return nil, fmt.Errorf("run %s has no grid data", run.RunID)
	}
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetOU); err != nil {
		f.Close()
		return nil, err
	}

	steps := []func(*excelize.File, *backtest.Run) error{
		writeOU,
		writeSystems,
		writeResults,
		writeDetailed,
		writeActive,
	}
	if len(run.Trends) > 0 {
		steps = append(steps, writeTrends)
	}
	for _, step := range steps {
		if err := step(f, run); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// SheetName maps a system name onto a valid worksheet name.
func SheetName(system string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, system)
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}

// sheet streams rows into one worksheet.
type sheet struct {
	sw  *excelize.StreamWriter
	row int
}

func newSheet(f *excelize.File, name string) (*sheet, error) {
	if idx, _ := f.GetSheetIndex(name); idx < 0 {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to add sheet %q: %w", name, err)
		}
	}
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet %q: %w", name, err)
	}
	return &sheet{sw: sw, row: 1}, nil
}

func (s *sheet) add(values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	s.row++
	return s.sw.SetRow(cell, values)
}

func (s *sheet) flush() error { return s.sw.Flush() }

func outcomeCell(o ou.Outcome) interface{} {
	if o == ou.Skip {
		return nil
	}
	return o.String()
}

func markerCell(m streak.Marker) interface{} {
	if m == streak.NoMarker {
		return nil
	}
	return m.String()
}

func dateCell(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}

func writeOU(f *excelize.File, run *backtest.Run) error {
	s, err := newSheet(f, SheetOU)
	if err != nil {
		return err
	}
	t := run.Table

	header := []interface{}{"Date"}
	for _, team := range t.Teams {
		header = append(header, team)
	}
	if err := s.add(header...); err != nil {
		return err
	}
	for i, d := range t.Dates {
		row := []interface{}{dateCell(d)}
		for _, team := range t.Teams {
			row = append(row, outcomeCell(t.Outcomes[team][i]))
		}
		if err := s.add(row...); err != nil {
			return err
		}
	}
	return s.flush()
}

// writeSystems adds one sheet per system. Per team the columns are the
// outcome, the Tails Prior input for composed systems, the system's
// recommendation, its marker and an X divider.
func writeSystems(f *excelize.File, run *backtest.Run) error {
	t := run.Table
	// sheet names are case-insensitive
	used := make(map[string]bool)
	for _, name := range []string{SheetOU, SheetResults, SheetDetailed, SheetActive, SheetTrends} {
		used[strings.ToLower(name)] = true
	}
	for _, res := range run.Results {
		name := SheetName(res.Name)
		if used[strings.ToLower(name)] {
			return fmt.Errorf("system %q collides with sheet %q", res.Name, name)
		}
		used[strings.ToLower(name)] = true

		s, err := newSheet(f, name)
		if err != nil {
			return err
		}

		recHeader, flagHeader := res.Name, res.Name+" Flag"
		if res.Kind == systems.KindTailsPrior {
			recHeader, flagHeader = "Tail", "Flag"
		}

		header := []interface{}{"Date"}
		for _, team := range t.Teams {
			header = append(header, team)
			if res.Kind == systems.KindPriorPattern {
				header = append(header, team+" Tail")
			}
			header = append(header, team+" "+recHeader, team+" "+flagHeader, "X")
		}
		if err := s.add(header...); err != nil {
			return err
		}

		for i, d := range t.Dates {
			row := []interface{}{dateCell(d)}
			for _, team := range t.Teams {
				ts := res.Teams[team]
				row = append(row, outcomeCell(t.Outcomes[team][i]))
				if res.Kind == systems.KindPriorPattern {
					row = append(row, ts.Base[i].String())
				}
				row = append(row, ts.Recommendations[i].String(), markerCell(ts.Markers[i]), nil)
			}
			if err := s.add(row...); err != nil {
				return err
			}
		}
		if err := s.flush(); err != nil {
			return err
		}
	}
	return nil
}

func writeResults(f *excelize.File, run *backtest.Run) error {
	s, err := newSheet(f, SheetResults)
	if err != nil {
		return err
	}
	if err := s.add("System", "Team", "Year", "Total_8Loss_Sequences", "Sequences_Recovered", "Recovery_Percentage"); err != nil {
		return err
	}
	for _, sum := range run.Summaries {
		var pct interface{}
		if sum.Percentage != nil {
			pct = *sum.Percentage
		}
		if err := s.add(sum.System, sum.Team, sum.Year, sum.Total, sum.Recovered, pct); err != nil {
			return err
		}
	}
	return s.flush()
}

func writeDetailed(f *excelize.File, run *backtest.Run) error {
	s, err := newSheet(f, SheetDetailed)
	if err != nil {
		return err
	}
	if err := s.add("System", "Team", "Year", "Start Date", "End Date", "Recovered"); err != nil {
		return err
	}
	for _, ev := range run.Events {
		if err := s.add(ev.System, ev.Team, ev.Year, dateCell(ev.StartDate), dateCell(ev.EndDate), ev.Recovered); err != nil {
			return err
		}
	}
	return s.flush()
}

func writeActive(f *excelize.File, run *backtest.Run) error {
	s, err := newSheet(f, SheetActive)
	if err != nil {
		return err
	}
	if err := s.add("System", "Team", "Losses", "Last Loss"); err != nil {
		return err
	}
	for _, a := range run.ActiveStreaks {
		if err := s.add(a.System, a.Team, a.Losses, dateCell(a.LastDate)); err != nil {
			return err
		}
	}
	return s.flush()
}

func writeTrends(f *excelize.File, run *backtest.Run) error {
	s, err := newSheet(f, SheetTrends)
	if err != nil {
		return err
	}
	if err := s.add("Summary"); err != nil {
		return err
	}
	for _, tr := range run.Trends {
		if err := s.add(tr.Summary); err != nil {
			return err
		}
	}
	return s.flush()
}
