// Package ingest loads per-team game results from CSV or XLSX files.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn is returned when a required column cannot be mapped.
var ErrMissingColumn = errors.New("required column missing")

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Game is one team's result on one date.
type Game struct {
	Date      time.Time
	Team      string
	OUMargin  float64
	HasOU     bool
	ATSMargin float64
	HasATS    bool
}

// Stats summarises a load.
type Stats struct {
	Rows         int  `json:"rows"`
	Loaded       int  `json:"loaded"`
	DroppedDates int  `json:"dropped_dates"`
	DroppedTeams int  `json:"dropped_teams"`
	BadMargins   int  `json:"bad_margins"`
	HasATS       bool `json:"has_ats"`
}

// Columns names the input columns explicitly. Empty fields fall back to
// alias matching.
type Columns struct {
	Date      string `yaml:"date"`
	Team      string `yaml:"team"`
	OUMargin  string `yaml:"ou_margin"`
	ATSMargin string `yaml:"ats_margin"`
}

// Options configures a Reader.
type Options struct {
	Columns     Columns
	TeamAliases map[string]string
	Sheet       string // XLSX sheet; first sheet when empty
}

// Reader reads game files.
type Reader struct {
	dateFormats []string
	opts        Options
}

// NewReader creates a reader supporting the common spreadsheet date layouts.
func NewReader(opts Options) *Reader {
	return &Reader{
		dateFormats: []string{
			"2006-01-02",
			"1/2/2006",
			"1/2/06",
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05.000",
		},
		opts: opts,
	}
}

// LoadFile reads path, choosing the decoder by extension.
func (r *Reader) LoadFile(path string) ([]Game, Stats, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		records, err = r.readCSV(path)
	case ".xlsx", ".xlsm":
		records, err = r.readXLSX(path)
	default:
		return nil, Stats{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, Stats{}, err
	}
	return r.parseRecords(records)
}

func (r *Reader) readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	csvReader := csv.NewReader(file)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *Reader) readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := r.opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func (r *Reader) parseRecords(records [][]string) ([]Game, Stats, error) {
	var stats Stats
	if len(records) == 0 {
		return nil, stats, fmt.Errorf("%w: input has no header row", ErrMissingColumn)
	}

	cols, err := r.mapColumns(records[0])
	if err != nil {
		return nil, stats, err
	}
	stats.HasATS = cols.ats >= 0

	games := make([]Game, 0, len(records)-1)
	for i, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		stats.Rows++

		date, err := r.parseDate(cell(record, cols.date))
		if err != nil {
			stats.DroppedDates++
			log.Warn().Int("row", i+2).Str("value", cell(record, cols.date)).Msg("Dropping row with unparseable date")
			continue
		}

		team := strings.TrimSpace(cell(record, cols.team))
		if team == "" {
			stats.DroppedTeams++
			log.Warn().Int("row", i+2).Msg("Dropping row without team")
			continue
		}
		if alias, ok := r.opts.TeamAliases[team]; ok {
			team = alias
		}

		g := Game{Date: date, Team: team}
		g.OUMargin, g.HasOU = parseMargin(cell(record, cols.ou))
		if !g.HasOU && strings.TrimSpace(cell(record, cols.ou)) != "" {
			stats.BadMargins++
		}
		if cols.ats >= 0 {
			g.ATSMargin, g.HasATS = parseMargin(cell(record, cols.ats))
		}

		games = append(games, g)
		stats.Loaded++
	}

	return games, stats, nil
}

type columnIndex struct {
	date, team, ou, ats int
}

// mapColumns resolves the header to column indices.
func (r *Reader) mapColumns(header []string) (columnIndex, error) {
	idx := columnIndex{date: -1, team: -1, ou: -1, ats: -1}
	c := r.opts.Columns
	explicit := map[string]*int{}
	for name, dst := range map[string]*int{c.Date: &idx.date, c.Team: &idx.team, c.OUMargin: &idx.ou, c.ATSMargin: &idx.ats} {
		if name != "" {
			explicit[strings.ToLower(strings.TrimSpace(name))] = dst
		}
	}

	for i, column := range header {
		if i == 0 {
			column = strings.TrimPrefix(column, "\ufeff")
		}
		raw := strings.ToLower(strings.TrimSpace(column))
		if dst, ok := explicit[raw]; ok {
			*dst = i
			continue
		}
		var dst *int
		switch normalizeColumnName(raw) {
		case "date":
			dst = &idx.date
		case "team":
			dst = &idx.team
		case "ou_margin":
			dst = &idx.ou
		case "ats_margin":
			dst = &idx.ats
		}
		if dst != nil && *dst < 0 {
			*dst = i
		}
	}

	switch {
	case idx.date < 0:
		return idx, fmt.Errorf("%w: date", ErrMissingColumn)
	case idx.team < 0:
		return idx, fmt.Errorf("%w: team", ErrMissingColumn)
	case idx.ou < 0:
		return idx, fmt.Errorf("%w: o/u margin", ErrMissingColumn)
	}
	return idx, nil
}

// normalizeColumnName converts the header spellings seen in the wild to a
// standard name.
func normalizeColumnName(column string) string {
	switch column {
	case "date", "game date", "game_date", "gamedate":
		return "date"
	case "team", "team name", "team_name":
		return "team"
	case "o/u margin", "ou margin", "ou_margin", "total margin", "total_margin", "o/u_margin":
		return "ou_margin"
	case "ats margin", "ats_margin", "spread margin", "spread_margin":
		return "ats_margin"
	default:
		return column
	}
}

// Excel serial day numbers accepted as dates: 1927-05-18 through 9999-12-31.
// Smaller numbers such as a bare year are rejected.
const (
	minExcelSerial = 10000
	maxExcelSerial = 2958466
)

// parseDate handles text layouts and Excel serial day numbers. Times of day
// are discarded.
func (r *Reader) parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, format := range r.dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return truncateDay(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minExcelSerial && serial < maxExcelSerial {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date: %s", s)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// parseMargin never fails: malformed values are reported as absent.
func parseMargin(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
