// Package daterange holds the calendar-day arithmetic shared by reservations,
// pricing and the calendar view. Every day is a UTC midnight instant.
package daterange

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

const (
	DayLayout = "2006-01-02"
	day       = 24 * time.Hour
)

var ErrInvertedStay = errors.New("check_out must be after check_in")

func Normalize(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Expand lists every day from `from` to `to` inclusive. A `to` on or before
// `from` yields the single day `from`.
func Expand(from, to time.Time) []time.Time {
	start, end := Normalize(from), Normalize(to)
	if !end.After(start) {
		return []time.Time{start}
	}

	days := make([]time.Time, 0, DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// ValidateStay rejects a hotel stay that does not move forward in time.
func ValidateStay(checkIn, checkOut time.Time) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return fmt.Errorf("check_in and check_out are required")
	}
	if !checkOut.After(checkIn) {
		return ErrInvertedStay
	}
	return nil
}

// DaysBetween counts calendar days between the normalized bounds.
func DaysBetween(from, to time.Time) int {
	return int(Normalize(to).Sub(Normalize(from)) / day)
}

func Nights(checkIn, checkOut time.Time) int {
	return max(1, DaysBetween(checkIn, checkOut))
}

// MonthBounds returns the first and last day of the month.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

func Format(t time.Time) string {
	return Normalize(t).Format(DayLayout)
}

func FormatAll(days []time.Time) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, Format(d))
	}
	return out
}

// ParseDay accepts YYYY-MM-DD or RFC3339 and returns the normalized day.
func ParseDay(s string) (time.Time, error) {
	if t, err := time.Parse(DayLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC3339", s)
	}
	return Normalize(t), nil
}

// Unique normalizes, de-duplicates and sorts days.
func Unique(days []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(days))
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		n := Normalize(d)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Months lists the distinct (year, month) pairs covered by days.
func Months(days []time.Time) [][2]int {
	seen := map[[2]int]struct{}{}
	var out [][2]int
	for _, d := range Unique(days) {
		key := [2]int{d.Year(), int(d.Month())}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
