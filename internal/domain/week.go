package domain

import (
	"fmt"
	"strconv"
	"time"
)

// DayLayout is the wire and storage format of a calendar date partition.
const DayLayout = "2006-01-02"

// ISOWeekNumber returns the ISO-8601 year and week of t's calendar date.
// The date is shifted to the Thursday of its Monday-based week and the week
// is counted from January 1st of that Thursday's year, so the last days of
// December can belong to week 1 of the next year and vice versa.
func ISOWeekNumber(t time.Time) (year, week int) {
	d := dateOf(t)
	// Monday=0 .. Sunday=6
	offset := (int(d.Weekday()) + 6) % 7
	thursday := d.AddDate(0, 0, 3-offset)
	jan1 := time.Date(thursday.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return thursday.Year(), int(thursday.Sub(jan1).Hours()/24)/7 + 1
}

// WeekKey formats t's ISO week as "YYYY-Www".
func WeekKey(t time.Time) string {
	y, w := ISOWeekNumber(t)
	return fmt.Sprintf("%04d-W%02d", y, w)
}

// DayKey formats t's calendar date as "YYYY-MM-DD".
func DayKey(t time.Time) string {
	return dateOf(t).Format(DayLayout)
}

// ParseWeekKey returns Monday 00:00 UTC of the week named by key. A key that
// does not name a real ISO week falls back to the current week.
func ParseWeekKey(key string) time.Time {
	monday, err := parseWeekKey(key)
	if err != nil {
		return mondayOf(time.Now())
	}
	return monday
}

// ValidWeekKey reports whether key names a real ISO week.
func ValidWeekKey(key string) bool {
	_, err := parseWeekKey(key)
	return err == nil
}

// WeekDates returns the seven calendar dates, Monday through Sunday, of the
// week named by key.
func WeekDates(key string) []time.Time {
	monday := ParseWeekKey(key)
	out := make([]time.Time, 7)
	for i := range out {
		out[i] = monday.AddDate(0, 0, i)
	}
	return out
}

// WeekDayKeys is WeekDates formatted with DayKey.
func WeekDayKeys(key string) []string {
	dates := WeekDates(key)
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = DayKey(d)
	}
	return out
}

// ParseDayKey parses a "YYYY-MM-DD" partition key as a UTC date.
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", key, err)
	}
	return t, nil
}

func parseWeekKey(key string) (time.Time, error) {
	if !weekKeyShape(key) {
		return time.Time{}, fmt.Errorf("invalid week key %q", key)
	}
	year, _ := strconv.Atoi(key[:4])
	week, _ := strconv.Atoi(key[6:])
	if week < 1 || week > weeksInYear(year) {
		return time.Time{}, fmt.Errorf("week %d out of range for %d", week, year)
	}
	// January 4th is always in week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	return mondayOf(jan4).AddDate(0, 0, (week-1)*7), nil
}

// weekKeyShape reports whether key is exactly four digits, "-W" and two
// digits.
func weekKeyShape(key string) bool {
	if len(key) != len("2006-W01") || key[4] != '-' || key[5] != 'W' {
		return false
	}
	for _, i := range []int{0, 1, 2, 3, 6, 7} {
		if key[i] < '0' || key[i] > '9' {
			return false
		}
	}
	return true
}

func weeksInYear(year int) int {
	// December 28th is always in the last week of its ISO year.
	_, w := ISOWeekNumber(time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC))
	return w
}

func mondayOf(t time.Time) time.Time {
	d := dateOf(t)
	return d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
}

// dateOf keeps t's calendar date in its own location and drops the clock.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
