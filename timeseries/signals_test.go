package timeseries

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoDaysCSV returns half-hourly rows over two days. The real-time price is the row number and the day-ahead price is
// the hour of day plus 100 per day.
func twoDaysCSV() string {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var b strings.Builder
	b.WriteString("time,time_utc,lmp_rt,lmp_da\n")
	for i := 0; i < 96; i++ {
		ts := start.Add(time.Duration(i*1800) * time.Second)
		da := ts.Hour() + 100*(ts.Day()-1)
		fmt.Fprintf(&b, "%d,%s,%d,%d\n", i*1800, ts.Format(time.RFC3339), i, da)
	}
	return b.String()
}

func TestReadCSVDayAheadPivot(t *testing.T) {
	signals, err := ReadCSV(strings.NewReader(twoDaysCSV()))
	require.NoError(t, err)
	assert.Equal(t, 96, signals.Len())

	first := signals.At(0)
	assert.Equal(t, 0.0, first[ColumnRealTimeLMP])
	assert.Equal(t, 0.0, first[ColumnDayAheadLMP])
	assert.Equal(t, 0.0, first["DA_LMP_00"])
	assert.Equal(t, 13.0, first["DA_LMP_13"])
	assert.Equal(t, 23.0, first["DA_LMP_23"])

	// between rows the earlier row applies
	mid := signals.At(2700)
	assert.Equal(t, 1.0, mid[ColumnRealTimeLMP])
	assert.Equal(t, 23.0, mid["DA_LMP_23"])

	secondDay := signals.At(86400 + 1800)
	assert.Equal(t, 49.0, secondDay[ColumnRealTimeLMP])
	assert.Equal(t, 105.0, secondDay["DA_LMP_05"])
	assert.Equal(t, 123.0, secondDay["DA_LMP_23"])

	assert.Contains(t, signals.Names(), "DA_LMP_07")
	assert.NotContains(t, signals.Names(), ColumnTimeUTC)
}

func TestAtBeforeFirstRow(t *testing.T) {
	signals, err := ReadCSV(strings.NewReader("time,RT_LMP\n10,2\n0,1\n"))
	require.NoError(t, err)

	assert.Empty(t, signals.At(-1))
	assert.Equal(t, map[string]float64{"RT_LMP": 1}, signals.At(5))
	assert.Equal(t, map[string]float64{"RT_LMP": 2}, signals.At(100))
	assert.Equal(t, []float64{0, 10}, signals.Times())
}

func TestReadCSVTimeFromUTC(t *testing.T) {
	csv := "time_utc,lmp_rt\n2024-01-01T00:00:00Z,5\n2024-01-01T00:05:00Z,6\n"
	signals, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 300}, signals.Times())
	assert.Equal(t, map[string]float64{"RT_LMP": 6}, signals.At(300))
}

func TestReadCSVKeepsExistingDayAheadColumns(t *testing.T) {
	signals, err := ReadCSV(strings.NewReader("time,RT_LMP,DA_LMP_00\n0,1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"RT_LMP": 1, "DA_LMP_00": 2}, signals.At(0))
}

func TestReadCSVMissingTime(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1,2\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadCSVBadTimestamp(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("time_utc,lmp_rt\nyesterday,5\n"))
	assert.Error(t, err)
}

func TestDayAheadKey(t *testing.T) {
	assert.Equal(t, "DA_LMP_00", DayAheadKey(0))
	assert.Equal(t, "DA_LMP_23", DayAheadKey(23))
}
