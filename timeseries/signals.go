package timeseries

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const (
	ColumnTime    = "time"
	ColumnTimeUTC = "time_utc"

	ColumnRealTimeLMP = "RT_LMP"
	ColumnDayAheadLMP = "DA_LMP"
)

// ErrMissingColumn is returned when a required column is absent from the input.
var ErrMissingColumn = errors.New("missing column")

// sourceNames maps the column names used by market data exports onto the external signal names.
var sourceNames = map[string]string{
	"lmp_rt": ColumnRealTimeLMP,
	"lmp_da": ColumnDayAheadLMP,
}

// utcLayouts are tried in order when parsing the time_utc column.
var utcLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Signals is a table of external signals indexed by simulation time. Rows are sorted by time.
type Signals struct {
	times   []float64
	names   []string
	columns map[string][]float64
}

// ReadCSV reads external signals from CSV. The table needs a numeric `time` column in seconds, or a `time_utc` column
// from which the time is derived relative to the first row. If the table carries hourly day-ahead prices but no
// `DA_LMP_00`..`DA_LMP_23` columns, those are built with DayAheadPivot.
func ReadCSV(r io.Reader) (*Signals, error) {
	df := dataframe.ReadCSV(r, dataframe.HasHeader(true), dataframe.DetectTypes(true))
	if df.Err != nil {
		return nil, fmt.Errorf("read signals csv: %w", df.Err)
	}

	for from, to := range sourceNames {
		if hasColumn(df, from) && !hasColumn(df, to) {
			df = df.Rename(to, from)
		}
	}

	if !hasColumn(df, ColumnTime) {
		if !hasColumn(df, ColumnTimeUTC) {
			return nil, fmt.Errorf("%q or %q: %w", ColumnTime, ColumnTimeUTC, ErrMissingColumn)
		}
		times, err := elapsedSeconds(df.Col(ColumnTimeUTC).Records())
		if err != nil {
			return nil, err
		}
		df = df.Mutate(series.New(times, series.Float, ColumnTime))
	}

	if hasColumn(df, ColumnDayAheadLMP) && hasColumn(df, ColumnTimeUTC) && !hasColumn(df, DayAheadKey(0)) {
		var err error
		df, err = DayAheadPivot(df)
		if err != nil {
			return nil, err
		}
	}

	return FromDataFrame(df)
}

// FromDataFrame builds Signals from every numeric column of `df`. Rows are sorted by time.
func FromDataFrame(df dataframe.DataFrame) (*Signals, error) {
	if !hasColumn(df, ColumnTime) {
		return nil, fmt.Errorf("%q: %w", ColumnTime, ErrMissingColumn)
	}
	if df.Col(ColumnTime).Type() == series.String {
		return nil, fmt.Errorf("column %q is not numeric", ColumnTime)
	}

	df = df.Arrange(dataframe.Sort(ColumnTime))
	if df.Err != nil {
		return nil, fmt.Errorf("sort signals: %w", df.Err)
	}

	s := &Signals{
		times:   df.Col(ColumnTime).Float(),
		columns: map[string][]float64{},
	}
	for _, name := range df.Names() {
		if name == ColumnTime {
			continue
		}
		col := df.Col(name)
		if col.Type() == series.String {
			continue
		}
		s.names = append(s.names, name)
		s.columns[name] = col.Float()
	}
	sort.Strings(s.names)
	return s, nil
}

// DayAheadPivot adds a `DA_LMP_hh` column for every hour of the day. For each date the hourly day-ahead prices (rows
// where `time` is a whole hour) are collected and placed on the first hourly row of that date, then every column is
// forward-filled so that each row carries the prices of the most recent day.
func DayAheadPivot(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	for _, name := range []string{ColumnTime, ColumnTimeUTC, ColumnDayAheadLMP} {
		if !hasColumn(df, name) {
			return df, fmt.Errorf("%q: %w", name, ErrMissingColumn)
		}
	}

	times := df.Col(ColumnTime).Float()
	stamps := df.Col(ColumnTimeUTC).Records()
	prices := df.Col(ColumnDayAheadLMP).Float()

	type day struct {
		row    int
		prices [HoursPerDay]float64
	}
	days := map[string]*day{}

	for row := range times {
		if math.Mod(times[row], 3600) != 0 {
			continue
		}
		ts, err := parseUTC(stamps[row])
		if err != nil {
			return df, err
		}
		date := ts.Format("2006-01-02")
		d, ok := days[date]
		if !ok {
			d = &day{row: row}
			for h := range d.prices {
				d.prices[h] = math.NaN()
			}
			days[date] = d
		}
		// first value for the hour wins
		if math.IsNaN(d.prices[ts.Hour()]) {
			d.prices[ts.Hour()] = prices[row]
		}
	}

	pivot := make([][]float64, HoursPerDay)
	for h := range pivot {
		pivot[h] = make([]float64, len(times))
		for row := range pivot[h] {
			pivot[h][row] = math.NaN()
		}
	}
	for _, d := range days {
		for h := range pivot {
			pivot[h][d.row] = d.prices[h]
		}
	}

	for h := range pivot {
		forwardFill(pivot[h])
		df = df.Mutate(series.New(pivot[h], series.Float, DayAheadKey(h)))
	}
	if df.Err != nil {
		return df, fmt.Errorf("pivot day-ahead prices: %w", df.Err)
	}
	return df, nil
}

// HoursPerDay is the number of day-ahead price columns.
const HoursPerDay = 24

// DayAheadKey returns the column name for the day-ahead price of the given hour, e.g. DA_LMP_07.
func DayAheadKey(hour int) string {
	return fmt.Sprintf("%s_%02d", ColumnDayAheadLMP, hour)
}

// At returns the signals of the last row whose time is at or before `t`. Missing (NaN) values are left out. The map is
// empty if `t` is before the first row.
func (s *Signals) At(t float64) map[string]float64 {
	out := map[string]float64{}
	row := sort.Search(len(s.times), func(i int) bool { return s.times[i] > t }) - 1
	if row < 0 {
		return out
	}
	for _, name := range s.names {
		v := s.columns[name][row]
		if !math.IsNaN(v) {
			out[name] = v
		}
	}
	return out
}

// Names returns the signal names, sorted, excluding time.
func (s *Signals) Names() []string {
	return append([]string{}, s.names...)
}

// Len returns the number of rows.
func (s *Signals) Len() int {
	return len(s.times)
}

// Times returns the time of each row.
func (s *Signals) Times() []float64 {
	return append([]float64{}, s.times...)
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func parseUTC(value string) (time.Time, error) {
	for _, layout := range utcLayouts {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised %s value %q", ColumnTimeUTC, value)
}

func elapsedSeconds(stamps []string) ([]float64, error) {
	out := make([]float64, len(stamps))
	var start time.Time
	for i, stamp := range stamps {
		ts, err := parseUTC(stamp)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			start = ts
		}
		out[i] = ts.Sub(start).Seconds()
	}
	return out, nil
}

func forwardFill(values []float64) {
	for i := 1; i < len(values); i++ {
		if math.IsNaN(values[i]) {
			values[i] = values[i-1]
		}
	}
}
