package normalize

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	want := civil.Date{Year: 2024, Month: time.March, Day: 1}
	local := time.Date(2024, 3, 1, 17, 45, 0, 0, time.Local)

	tests := []struct {
		name  string
		value any
	}{
		{"civil date", want},
		{"civil date pointer", &want},
		{"local time with time of day", local},
		{"time pointer", &local},
		{"date-only string", "2024-03-01"},
		{"rfc3339 string in local zone", local.Format(time.RFC3339)},
		{"us format string", "03/01/2024"},
		{"timestamp map", map[string]any{"seconds": float64(local.Unix()), "nanoseconds": float64(0)}},
		{"underscore timestamp map", map[string]any{"_seconds": float64(local.Unix())}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDate(tt.value)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestNormalizeDate_Invalid(t *testing.T) {
	var nilTime *time.Time
	for _, v := range []any{nil, nilTime, "", "not a date", time.Time{}, 42, map[string]any{"x": 1}} {
		_, ok := NormalizeDate(v)
		assert.False(t, ok, "%v", v)
	}
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2024, 3, 1, 6, 0, 0, 0, time.Local)
	evening := time.Date(2024, 3, 1, 23, 0, 0, 0, time.Local)

	assert.True(t, SameDay(morning, evening))
	assert.True(t, SameDay("2024-03-01", morning))
	assert.False(t, SameDay("2024-03-02", morning))
	assert.False(t, SameDay(nil, morning))
}

func TestWithinDays(t *testing.T) {
	assert.True(t, WithinDays("2024-03-03", "2024-03-01", 3))
	assert.True(t, WithinDays("2024-02-27", "2024-03-01", 3), "window spans month boundary in a leap year")
	assert.False(t, WithinDays("2024-03-05", "2024-03-01", 3))
	assert.True(t, WithinDays("2024-03-01", "2024-03-01", 0))
	assert.False(t, WithinDays("garbage", "2024-03-01", 3))
}

func TestAmountsMatch(t *testing.T) {
	assert.True(t, AmountsMatch(-150.00, 150.00, DefaultTolerance))
	assert.True(t, AmountsMatch(100.00, 100.01, DefaultTolerance), "one cent is within tolerance")
	assert.False(t, AmountsMatch(100.00, 100.02, DefaultTolerance))
	assert.True(t, AmountsMatch(0.1+0.2, 0.3, 0), "decimal comparison avoids float drift")
	assert.False(t, AmountsMatch(100.00, 100.01, 0.005))
}

func TestDiscrepancy(t *testing.T) {
	d := Discrepancy(-150.00, 100.00, 40.00)
	assert.Equal(t, "10", d.String())
	assert.True(t, ExceedsTolerance(d, DefaultTolerance))

	d = Discrepancy(126.98, 118.67, 8.31)
	assert.True(t, d.IsZero())
	assert.False(t, ExceedsTolerance(d, DefaultTolerance))
}
