// Package insights derives consumption statistics from loaded entries.
//
// All functions are pure. Calendar boundaries (days, ISO weeks, months) are
// taken in the supplied location.
package insights

import (
	"math"
	"sort"
	"time"

	"github.com/dmitrijs2005/puffpass/internal/client/models"
	"github.com/shopspring/decimal"
)

// ForecastDays is the horizon of the monthly forecast.
const ForecastDays = 30

// Bucket is the consumption of one calendar period.
type Bucket struct {
	Start time.Time
	Label string
	Count int
	Spent decimal.Decimal
}

// ReasonShare is how often one reason was given.
type ReasonShare struct {
	Reason  string
	Count   int
	Percent float64
}

// NoReason labels entries logged without a reason.
const NoReason = "No reason"

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// TodayCount counts the entries smoked on now's calendar day.
func TodayCount(entries []models.Entry, now time.Time, loc *time.Location) int {
	today := startOfDay(now, loc)
	n := 0
	for _, e := range entries {
		if startOfDay(e.SmokedAt, loc).Equal(today) {
			n++
		}
	}
	return n
}

// TotalSpent is count cigarettes at the given unit price.
func TotalSpent(count int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(count)))
}

// DailyAverage is the number of entries per day on which anything was
// logged. Zero without entries.
func DailyAverage(entries []models.Entry, loc *time.Location) float64 {
	days := make(map[time.Time]struct{})
	for _, e := range entries {
		days[startOfDay(e.SmokedAt, loc)] = struct{}{}
	}
	if len(days) == 0 {
		return 0
	}
	return float64(len(entries)) / float64(len(days))
}

// MonthlyForecast projects the daily average over ForecastDays.
func MonthlyForecast(avg float64) int {
	return int(math.Round(avg * ForecastDays))
}

// GroupByWeek buckets entries by ISO week, oldest first.
func GroupByWeek(entries []models.Entry, price decimal.Decimal, loc *time.Location) []Bucket {
	return group(entries, price, func(t time.Time) (time.Time, string) {
		d := startOfDay(t, loc)
		offset := (int(d.Weekday()) + 6) % 7
		start := d.AddDate(0, 0, -offset)
		return start, "Week of " + start.Format("Jan 2")
	}, loc)
}

// GroupByMonth buckets entries by calendar month, oldest first.
func GroupByMonth(entries []models.Entry, price decimal.Decimal, loc *time.Location) []Bucket {
	return group(entries, price, func(t time.Time) (time.Time, string) {
		t = t.In(loc)
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.Format("Jan 2006")
	}, loc)
}

func group(entries []models.Entry, price decimal.Decimal, period func(time.Time) (time.Time, string), loc *time.Location) []Bucket {
	byStart := make(map[time.Time]*Bucket)
	for _, e := range entries {
		start, label := period(e.SmokedAt.In(loc))
		b, ok := byStart[start]
		if !ok {
			b = &Bucket{Start: start, Label: label}
			byStart[start] = b
		}
		b.Count++
	}

	out := make([]Bucket, 0, len(byStart))
	for _, b := range byStart {
		b.Spent = TotalSpent(b.Count, price)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// ReasonBreakdown counts entries per reason, most frequent first; ties
// keep alphabetical order.
func ReasonBreakdown(entries []models.Entry) []ReasonShare {
	counts := make(map[string]int)
	for _, e := range entries {
		r := e.ReasonText()
		if r == "" {
			r = NoReason
		}
		counts[r]++
	}

	out := make([]ReasonShare, 0, len(counts))
	for r, n := range counts {
		out = append(out, ReasonShare{
			Reason:  r,
			Count:   n,
			Percent: float64(n) * 100 / float64(len(entries)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
