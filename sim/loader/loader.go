// Package loader reads the tabular inputs of the generator: the seasonal
// probability schedule and the storm catalog.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/coastal-risk/stormgen/sim"
)

// Column aliases, matched case-insensitively after trimming.
var (
	dayOfYearColumns  = []string{"day_of_year", "doy"}
	monthColumns      = []string{"month"}
	dayColumns        = []string{"day"}
	cumulativeColumns = []string{"cumulative_probability", "cumulative trop prob", "cdf"}
	stormIDColumns    = []string{"storm_id"}
	weightColumns     = []string{"weight", "dsw"}
)

// table is a parsed CSV with a case-insensitive column index.
type table struct {
	index map[string]int
	rows  [][]string
}

func readTable(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	head, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	t := &table{index: make(map[string]int, len(head))}
	for i, name := range head {
		t.index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// column returns the index of the first alias present, or -1.
func (t *table) column(aliases []string) int {
	for _, a := range aliases {
		if i, ok := t.index[a]; ok {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string { return strings.TrimSpace(row[i]) }

// ReadSchedule parses a schedule CSV. Two layouts are accepted:
// (day_of_year, cumulative_probability), or (Month, Day, Cumulative trop prob)
// with one row per consecutive calendar day, where day_of_year is the row
// ordinal.
func ReadSchedule(r io.Reader) (*sim.ProbabilitySchedule, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sim.ErrInvalidSchedule, err)
	}
	cdfCol := t.column(cumulativeColumns)
	if cdfCol < 0 {
		return nil, fmt.Errorf("%w: no cumulative probability column (want one of %v)", sim.ErrInvalidSchedule, cumulativeColumns)
	}
	doyCol := t.column(dayOfYearColumns)
	monthCol, dayCol := t.column(monthColumns), t.column(dayColumns)
	if doyCol < 0 && (monthCol < 0 || dayCol < 0) {
		return nil, fmt.Errorf("%w: need a day_of_year column or Month and Day columns", sim.ErrInvalidSchedule)
	}

	entries := make([]sim.ScheduleEntry, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		cdf, err := strconv.ParseFloat(cell(row, cdfCol), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: cumulative probability: %v", sim.ErrInvalidSchedule, line, err)
		}
		doy := i + 1
		if doyCol >= 0 {
			if doy, err = strconv.Atoi(cell(row, doyCol)); err != nil {
				return nil, fmt.Errorf("%w: line %d: day_of_year: %v", sim.ErrInvalidSchedule, line, err)
			}
		} else if err := checkMonthDay(row[monthCol], row[dayCol]); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", sim.ErrInvalidSchedule, line, err)
		}
		entries = append(entries, sim.ScheduleEntry{DayOfYear: doy, CumulativeProbability: cdf})
	}
	return sim.NewProbabilitySchedule(entries)
}

func checkMonthDay(monthStr, dayStr string) error {
	month, err := strconv.Atoi(strings.TrimSpace(monthStr))
	if err != nil || month < 1 || month > 12 {
		return fmt.Errorf("invalid Month %q", monthStr)
	}
	day, err := strconv.Atoi(strings.TrimSpace(dayStr))
	if err != nil || day < 1 || day > 31 {
		return fmt.Errorf("invalid Day %q", dayStr)
	}
	return nil
}

// LoadSchedule reads a schedule CSV from path.
func LoadSchedule(path string) (*sim.ProbabilitySchedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening schedule: %w", err)
	}
	defer func() { _ = f.Close() }()
	s, err := ReadSchedule(f)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", path, err)
	}
	logrus.Debugf("loaded schedule %s: days %d..%d", path, s.FirstDay(), s.LastDay())
	return s, nil
}

// ReadCatalog parses a catalog CSV with storm_id (or storm_ID) and weight (or
// DSW) columns.
func ReadCatalog(r io.Reader) (*sim.StormCatalog, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sim.ErrInvalidCatalog, err)
	}
	idCol, wCol := t.column(stormIDColumns), t.column(weightColumns)
	if idCol < 0 || wCol < 0 {
		return nil, fmt.Errorf("%w: need storm_id and weight (or DSW) columns", sim.ErrInvalidCatalog)
	}
	entries := make([]sim.CatalogEntry, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		id, err := strconv.Atoi(cell(row, idCol))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: storm_id: %v", sim.ErrInvalidCatalog, line, err)
		}
		w, err := strconv.ParseFloat(cell(row, wCol), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: weight: %v", sim.ErrInvalidCatalog, line, err)
		}
		entries = append(entries, sim.CatalogEntry{StormID: id, Weight: w})
	}
	return sim.NewStormCatalog(entries)
}

// LoadCatalog reads a catalog CSV from path.
func LoadCatalog(path string) (*sim.StormCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	c, err := ReadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	logrus.Debugf("loaded catalog %s: %d storms", path, c.Len())
	return c, nil
}
