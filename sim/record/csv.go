package record

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coastal-risk/stormgen/sim"
)

// HeaderSuffix is appended to a CSV output path to name its run header.
const HeaderSuffix = ".header.yaml"

// RunHeader captures run metadata next to a generated CSV. Zero-event years
// leave no rows, so the ensemble shape here is what lets a reader rebuild them.
type RunHeader struct {
	RunID            string  `yaml:"run_id"`
	CreatedAt        string  `yaml:"created_at,omitempty"`
	Seed             int64   `yaml:"seed"`
	InitYear         int     `yaml:"init_year"`
	DurationYears    int     `yaml:"duration_years"`
	NumLifecycles    int     `yaml:"num_lifecycles"`
	FirstLifecycleID int     `yaml:"first_lifecycle_id"`
	Lambda           float64 `yaml:"lambda"`
	LambdaTarget     float64 `yaml:"lambda_target,omitempty"`
	MinSepDays       float64 `yaml:"min_sep_days"`
	YearLengthDays   int     `yaml:"year_length_days"`
	MaxAttempts      int     `yaml:"max_attempts"`
	FailurePolicy    string  `yaml:"failure_policy"`
	ScheduleFile     string  `yaml:"schedule_file,omitempty"`
	CatalogFile      string  `yaml:"catalog_file,omitempty"`

	Events         int `yaml:"events"`
	FailedYears    int `yaml:"failed_years"`
	DiscardedYears int `yaml:"discarded_years"`
}

// HeaderPath returns the sidecar header path for a CSV output path.
func HeaderPath(csvPath string) string { return csvPath + HeaderSuffix }

// WriteHeader writes h as YAML to path.
func WriteHeader(path string, h *RunHeader) error {
	data, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshaling run header: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing run header: %w", err)
	}
	return nil
}

// LoadHeader reads a YAML run header.
func LoadHeader(path string) (*RunHeader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run header: %w", err)
	}
	var h RunHeader
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parsing run header: %w", err)
	}
	if h.DurationYears <= 0 || h.NumLifecycles <= 0 {
		return nil, fmt.Errorf("run header %s: duration_years and num_lifecycles must be positive", path)
	}
	return &h, nil
}

// Columns is the CSV header row, in order.
var Columns = []string{
	"lifecycle", "year_offset", "year", "month", "day", "day_of_year",
	"hour", "storm_id", "rcdf", "layout_ok",
}

// CSVSink writes events as CSV rows, one Write per lifecycle. The header row
// is written before the first batch.
type CSVSink struct {
	w         *csv.Writer
	closer    io.Closer
	wroteHead bool
	rows      int
}

// NewCSVSink writes CSV to w.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w)}
}

// OpenCSVSink creates (or truncates) path and writes CSV to it. Close
// flushes and closes the file.
func OpenCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating event CSV: %w", err)
	}
	s := NewCSVSink(f)
	s.closer = f
	return s, nil
}

// Write appends one row per event and flushes.
func (s *CSVSink) Write(_ context.Context, events []sim.Event) error {
	if err := s.writeHead(); err != nil {
		return err
	}
	for _, e := range events {
		if err := s.w.Write(formatEvent(e)); err != nil {
			return fmt.Errorf("writing CSV row for lifecycle %d: %w", e.LifecycleID, err)
		}
		s.rows++
	}
	s.w.Flush()
	return s.w.Error()
}

// Rows returns the number of event rows written.
func (s *CSVSink) Rows() int { return s.rows }

// Close writes the header row if nothing was written, flushes, and closes
// the underlying file when the sink owns one.
func (s *CSVSink) Close() error {
	if err := s.writeHead(); err != nil {
		return err
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func (s *CSVSink) writeHead() error {
	if s.wroteHead {
		return nil
	}
	s.wroteHead = true
	if err := s.w.Write(Columns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	return nil
}

func formatEvent(e sim.Event) []string {
	return []string{
		strconv.Itoa(e.LifecycleID),
		strconv.Itoa(e.YearOffset),
		strconv.Itoa(e.Year),
		strconv.Itoa(e.Month),
		strconv.Itoa(e.Day),
		strconv.Itoa(e.DayOfYear),
		strconv.FormatFloat(e.Hour, 'f', -1, 64),
		strconv.Itoa(e.StormID),
		strconv.FormatFloat(e.ResidualCDF, 'f', -1, 64),
		strconv.FormatBool(e.LayoutOK),
	}
}

// ReadEventsCSV parses events written by CSVSink. Columns are located by
// header name, so extra columns are ignored.
func ReadEventsCSV(r io.Reader) ([]sim.Event, error) {
	reader := csv.NewReader(r)
	head, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	idx := make(map[string]int, len(head))
	for i, name := range head {
		idx[strings.TrimSpace(name)] = i
	}
	for _, c := range Columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("event CSV missing column %q", c)
		}
	}

	var events []sim.Event
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		e, err := parseEvent(row, idx)
		if err != nil {
			return nil, fmt.Errorf("event CSV line %d: %w", line, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// LoadEventsCSV reads an event CSV from path.
func LoadEventsCSV(path string) ([]sim.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening event CSV: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadEventsCSV(f)
}

func parseEvent(row []string, idx map[string]int) (sim.Event, error) {
	var e sim.Event
	ints := []struct {
		col string
		dst *int
	}{
		{"lifecycle", &e.LifecycleID},
		{"year_offset", &e.YearOffset},
		{"year", &e.Year},
		{"month", &e.Month},
		{"day", &e.Day},
		{"day_of_year", &e.DayOfYear},
		{"storm_id", &e.StormID},
	}
	for _, f := range ints {
		v, err := strconv.Atoi(strings.TrimSpace(row[idx[f.col]]))
		if err != nil {
			return e, fmt.Errorf("column %s: %w", f.col, err)
		}
		*f.dst = v
	}
	var err error
	if e.Hour, err = strconv.ParseFloat(strings.TrimSpace(row[idx["hour"]]), 64); err != nil {
		return e, fmt.Errorf("column hour: %w", err)
	}
	if e.ResidualCDF, err = strconv.ParseFloat(strings.TrimSpace(row[idx["rcdf"]]), 64); err != nil {
		return e, fmt.Errorf("column rcdf: %w", err)
	}
	if e.LayoutOK, err = strconv.ParseBool(strings.TrimSpace(row[idx["layout_ok"]])); err != nil {
		return e, fmt.Errorf("column layout_ok: %w", err)
	}
	return e, nil
}

// AnnualCounts rebuilds the per-(lifecycle, year) counts of the run described
// by h, including years that produced no rows, in lifecycle then year order.
func AnnualCounts(events []sim.Event, h *RunHeader) ([]int, error) {
	counts := make([]int, h.NumLifecycles*h.DurationYears)
	for _, e := range events {
		lc := e.LifecycleID - h.FirstLifecycleID
		if lc < 0 || lc >= h.NumLifecycles || e.YearOffset < 0 || e.YearOffset >= h.DurationYears {
			return nil, fmt.Errorf("event (lifecycle %d, year_offset %d) outside run shape %dx%d",
				e.LifecycleID, e.YearOffset, h.NumLifecycles, h.DurationYears)
		}
		counts[lc*h.DurationYears+e.YearOffset]++
	}
	return counts, nil
}
