package domain_test

import (
	"testing"
	"time"

	"lifesync/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeekKey(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"first monday of 2026 week 2", date(2026, time.January, 5), "2026-W02"},
		{"late december in next iso year", date(2025, time.December, 29), "2026-W01"},
		{"new year's day 2021 in 2020-W53", date(2021, time.January, 1), "2020-W53"},
		{"sunday closes the week", date(2026, time.January, 11), "2026-W02"},
		{"mid year", date(2026, time.July, 15), "2026-W29"},
		{"clock is ignored", time.Date(2026, time.January, 5, 23, 59, 59, 0, time.UTC), "2026-W02"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.WeekKey(tc.in); got != tc.want {
				t.Errorf("WeekKey(%s) = %q; want %q", tc.in.Format(time.DateOnly), got, tc.want)
			}
		})
	}
}

func TestISOWeekNumberMatchesStdlib(t *testing.T) {
	start := date(2019, time.December, 1)
	for i := 0; i < 3*366; i++ {
		d := start.AddDate(0, 0, i)
		y, w := domain.ISOWeekNumber(d)
		wy, ww := d.ISOWeek()
		if y != wy || w != ww {
			t.Fatalf("ISOWeekNumber(%s) = %d-W%02d; want %d-W%02d", d.Format(time.DateOnly), y, w, wy, ww)
		}
	}
}

func TestParseWeekKeyRoundTrip(t *testing.T) {
	start := date(2020, time.January, 1)
	for i := 0; i < 2*366; i++ {
		d := start.AddDate(0, 0, i)
		monday := domain.ParseWeekKey(domain.WeekKey(d))
		if monday.Weekday() != time.Monday {
			t.Fatalf("ParseWeekKey(WeekKey(%s)) = %s, not a Monday", d.Format(time.DateOnly), monday)
		}
		if d.Before(monday) || !d.Before(monday.AddDate(0, 0, 7)) {
			t.Fatalf("%s not inside week starting %s", d.Format(time.DateOnly), monday.Format(time.DateOnly))
		}
		if h, m, s := monday.Clock(); h != 0 || m != 0 || s != 0 || monday.Location() != time.UTC {
			t.Fatalf("ParseWeekKey returned %s; want midnight UTC", monday)
		}
	}
}

func TestParseWeekKeyInvalidFallsBackToCurrentWeek(t *testing.T) {
	want := domain.WeekKey(time.Now())
	for _, key := range []string{"", "garbage", "2026-W00", "2026-W54", "2026-W2", "2026-W02x", "2026W02", "2026-W 2", "+026-W01", "2026-w02", "2026-W+2", " 026-W01"} {
		got := domain.ParseWeekKey(key)
		if got.Weekday() != time.Monday {
			t.Errorf("ParseWeekKey(%q) = %s; want a Monday", key, got)
		}
		if domain.WeekKey(got) != want {
			t.Errorf("ParseWeekKey(%q) in %s; want current week %s", key, domain.WeekKey(got), want)
		}
		if domain.ValidWeekKey(key) {
			t.Errorf("ValidWeekKey(%q) = true", key)
		}
	}
	if !domain.ValidWeekKey("2020-W53") {
		t.Error("2020 has 53 ISO weeks")
	}
	if domain.ValidWeekKey("2021-W53") {
		t.Error("2021 has 52 ISO weeks")
	}
}

func TestWeekDates(t *testing.T) {
	for _, key := range []string{"2026-W01", "2026-W02", "2020-W53", "2024-W09", "2025-W52"} {
		t.Run(key, func(t *testing.T) {
			dates := domain.WeekDates(key)
			if len(dates) != 7 {
				t.Fatalf("len = %d; want 7", len(dates))
			}
			if dates[0].Weekday() != time.Monday || dates[6].Weekday() != time.Sunday {
				t.Fatalf("week runs %s..%s", dates[0].Weekday(), dates[6].Weekday())
			}
			for i := 1; i < len(dates); i++ {
				if !dates[i].Equal(dates[i-1].AddDate(0, 0, 1)) {
					t.Fatalf("dates[%d] = %s does not follow %s", i, dates[i], dates[i-1])
				}
			}
			for _, d := range dates {
				if domain.WeekKey(d) != key {
					t.Fatalf("%s belongs to %s, not %s", d.Format(time.DateOnly), domain.WeekKey(d), key)
				}
			}
		})
	}

	got := domain.WeekDayKeys("2026-W01")
	if got[0] != "2025-12-29" || got[6] != "2026-01-04" {
		t.Errorf("WeekDayKeys(2026-W01) = %v", got)
	}
}

func TestParseDayKey(t *testing.T) {
	d, err := domain.ParseDayKey("2026-03-01")
	if err != nil {
		t.Fatalf("ParseDayKey: %v", err)
	}
	if domain.DayKey(d) != "2026-03-01" {
		t.Errorf("DayKey = %s", domain.DayKey(d))
	}
	if _, err := domain.ParseDayKey("03/01/2026"); err == nil {
		t.Error("expected error for bad date")
	}
}
