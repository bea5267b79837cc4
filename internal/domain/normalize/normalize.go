// Package normalize converts the date and amount representations found in
// ledger documents into comparable values.
//
// Dates arrive as store timestamps, time.Time values, civil dates or strings
// depending on which client wrote the document. All of them reduce to a
// calendar date in local time; time of day and offset are dropped.
package normalize

import (
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DefaultTolerance is the largest absolute amount difference still treated as equal.
const DefaultTolerance = 0.01

var stringLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
}

// NormalizeDate reduces value to a local calendar date.
// It returns false for nil and for values it cannot interpret.
func NormalizeDate(value any) (civil.Date, bool) {
	switch v := value.(type) {
	case nil:
		return civil.Date{}, false
	case civil.Date:
		return v, v.IsValid()
	case *civil.Date:
		if v == nil {
			return civil.Date{}, false
		}
		return *v, v.IsValid()
	case time.Time:
		if v.IsZero() {
			return civil.Date{}, false
		}
		return civil.DateOf(v.In(time.Local)), true
	case *time.Time:
		if v == nil {
			return civil.Date{}, false
		}
		return NormalizeDate(*v)
	case string:
		return parseDateString(v)
	case map[string]any:
		return timestampFromMap(v)
	}
	return civil.Date{}, false
}

func parseDateString(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, false
	}
	// A bare date is already a calendar date; no zone conversion applies.
	if d, err := civil.ParseDate(s); err == nil {
		return d, true
	}
	for _, layout := range stringLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return civil.DateOf(t.In(time.Local)), true
		}
	}
	return civil.Date{}, false
}

// timestampFromMap handles serialized store timestamps of the form
// {"seconds": n, "nanoseconds": n} and the underscore-prefixed variant.
func timestampFromMap(m map[string]any) (civil.Date, bool) {
	secs, ok := number(m["seconds"])
	if !ok {
		secs, ok = number(m["_seconds"])
	}
	if !ok {
		return civil.Date{}, false
	}
	nanos, _ := number(m["nanoseconds"])
	if nanos == 0 {
		nanos, _ = number(m["_nanoseconds"])
	}
	return civil.DateOf(time.Unix(int64(secs), int64(nanos)).In(time.Local)), true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// SameDay reports whether a and b normalize to the same calendar date.
func SameDay(a, b any) bool {
	da, okA := NormalizeDate(a)
	db, okB := NormalizeDate(b)
	return okA && okB && da == db
}

// WithinDays reports whether a and b normalize to dates at most n calendar
// days apart.
func WithinDays(a, b any, n int) bool {
	da, okA := NormalizeDate(a)
	db, okB := NormalizeDate(b)
	if !okA || !okB {
		return false
	}
	diff := da.DaysSince(db)
	if diff < 0 {
		diff = -diff
	}
	return diff <= n
}

// AmountsMatch compares absolute values, since statement amounts are signed
// and transaction amounts are stored unsigned.
func AmountsMatch(x, y, tolerance float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	ax := decimal.NewFromFloat(x).Abs()
	ay := decimal.NewFromFloat(y).Abs()
	return ax.Sub(ay).Abs().LessThanOrEqual(decimal.NewFromFloat(tolerance))
}

// Discrepancy is the absolute difference between a statement amount and the
// sum of the amounts reconciled against it.
func Discrepancy(statementAmount float64, amounts ...float64) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(decimal.NewFromFloat(a).Abs())
	}
	return decimal.NewFromFloat(statementAmount).Abs().Sub(sum).Abs()
}

// ExceedsTolerance reports whether d is larger than tolerance.
func ExceedsTolerance(d decimal.Decimal, tolerance float64) bool {
	return d.GreaterThan(decimal.NewFromFloat(tolerance))
}
