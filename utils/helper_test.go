package utils

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestClampDayToMonth(t *testing.T) {
	cases := []struct {
		year     int
		month    time.Month
		day      int
		expected time.Time
	}{
		{2025, time.January, 31, date(2025, time.January, 31)},
		{2025, time.February, 31, date(2025, time.February, 28)},
		{2024, time.February, 31, date(2024, time.February, 29)}, // leap year
		{2025, time.April, 31, date(2025, time.April, 30)},
		{2025, time.June, 15, date(2025, time.June, 15)},
		{2025, time.March, 0, date(2025, time.March, 1)},
	}
	for _, tc := range cases {
		got := ClampDayToMonth(tc.year, tc.month, tc.day)
		if !got.Equal(tc.expected) {
			t.Fatalf("ClampDayToMonth(%d, %s, %d) expected %s, got %s",
				tc.year, tc.month, tc.day, tc.expected.Format("2006-01-02"), got.Format("2006-01-02"))
		}
	}
}

func TestAddMonthsClamped(t *testing.T) {
	cases := []struct {
		from      time.Time
		n         int
		anchorDay int
		expected  time.Time
	}{
		// clamped into shorter months, never rolls over
		{date(2025, time.January, 31), 1, 31, date(2025, time.February, 28)},
		{date(2024, time.January, 31), 1, 31, date(2024, time.February, 29)},
		// springs back to the anchor day in longer months
		{date(2025, time.February, 28), 1, 31, date(2025, time.March, 31)},
		{date(2025, time.April, 30), 1, 31, date(2025, time.May, 31)},
		{date(2025, time.June, 15), 1, 15, date(2025, time.July, 15)},
		// year boundary
		{date(2025, time.December, 10), 1, 10, date(2026, time.January, 10)},
		{date(2025, time.November, 30), 3, 30, date(2026, time.February, 28)},
		// yearly step
		{date(2024, time.February, 29), 12, 29, date(2025, time.February, 28)},
		// negative steps, including exact multiples of 12
		{date(2025, time.January, 15), -1, 15, date(2024, time.December, 15)},
		{date(2025, time.March, 31), -1, 31, date(2025, time.February, 28)},
		{date(2025, time.June, 15), -12, 15, date(2024, time.June, 15)},
	}
	for _, tc := range cases {
		got := AddMonthsClamped(tc.from, tc.n, tc.anchorDay)
		if !got.Equal(tc.expected) {
			t.Fatalf("AddMonthsClamped(%s, %d, %d) expected %s, got %s",
				tc.from.Format("2006-01-02"), tc.n, tc.anchorDay,
				tc.expected.Format("2006-01-02"), got.Format("2006-01-02"))
		}
	}
}

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		from     time.Time
		to       time.Time
		expected int
	}{
		{date(2025, time.December, 20), date(2025, time.December, 18), -2},
		{date(2025, time.December, 20), date(2025, time.December, 20), 0},
		{date(2025, time.December, 20), date(2025, time.December, 25), 5},
		{date(2025, time.December, 31), date(2026, time.January, 1), 1},
		// time-of-day must not leak into the day count
		{time.Date(2025, time.March, 10, 23, 30, 0, 0, time.UTC), time.Date(2025, time.March, 11, 0, 15, 0, 0, time.UTC), 1},
	}
	for _, tc := range cases {
		got := DaysBetween(tc.from, tc.to)
		if got != tc.expected {
			t.Fatalf("DaysBetween(%s, %s) expected %d, got %d",
				tc.from.Format(time.RFC3339), tc.to.Format(time.RFC3339), tc.expected, got)
		}
	}
}

func TestLastDayOfMonth(t *testing.T) {
	if got := LastDayOfMonth(2025, time.February); got != 28 {
		t.Fatalf("expected 28, got %d", got)
	}
	if got := LastDayOfMonth(2024, time.February); got != 29 {
		t.Fatalf("expected 29, got %d", got)
	}
	if got := LastDayOfMonth(2025, time.December); got != 31 {
		t.Fatalf("expected 31, got %d", got)
	}
}

func TestSameDayRange(t *testing.T) {
	start, end := SameDayRange(time.Date(2025, time.July, 4, 15, 30, 0, 0, time.UTC))
	if !start.Equal(date(2025, time.July, 4)) {
		t.Fatalf("unexpected start %s", start)
	}
	if !end.Equal(date(2025, time.July, 5)) {
		t.Fatalf("unexpected end %s", end)
	}
}
