package workflow

import (
	"testing"
	"time"

	"github.com/fynanpro/finance_backend/models"
)

// NOTE: These tests are intentionally DB-free. They validate the schedule
// semantics the generation workflow relies on:
// - monthly/yearly steps re-anchor on the due day (Feb 28 springs back to 31)
// - the anchor is the last existing occurrence, or the bill's first due date
// - generation never emits a date past the horizon
//
// Full DB integration tests should run in an environment with MySQL available.

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(t time.Time) *time.Time { return &t }

func TestNextDueDate(t *testing.T) {
	cases := []struct {
		name      string
		from      time.Time
		frequency models.BillFrequency
		dueDay    int
		expected  time.Time
	}{
		{"daily", date(2025, time.March, 10), models.BillFrequencyDaily, 10, date(2025, time.March, 11)},
		{"weekly", date(2025, time.March, 10), models.BillFrequencyWeekly, 10, date(2025, time.March, 17)},
		{"monthly", date(2025, time.March, 10), models.BillFrequencyMonthly, 10, date(2025, time.April, 10)},
		{"monthly clamps into February", date(2025, time.January, 31), models.BillFrequencyMonthly, 31, date(2025, time.February, 28)},
		{"monthly springs back after clamp", date(2025, time.February, 28), models.BillFrequencyMonthly, 31, date(2025, time.March, 31)},
		{"yearly", date(2025, time.June, 15), models.BillFrequencyYearly, 15, date(2026, time.June, 15)},
		{"yearly from leap day", date(2024, time.February, 29), models.BillFrequencyYearly, 29, date(2025, time.February, 28)},
	}
	for _, tc := range cases {
		got := NextDueDate(tc.from, tc.frequency, tc.dueDay)
		if !got.Equal(tc.expected) {
			t.Fatalf("%s: NextDueDate(%s) expected %s, got %s",
				tc.name, tc.from.Format("2006-01-02"), tc.expected.Format("2006-01-02"), got.Format("2006-01-02"))
		}
	}
}

func TestFirstDueDate(t *testing.T) {
	today := date(2025, time.March, 10)

	// explicit first due date wins
	got := FirstDueDate(datePtr(date(2025, time.May, 1)), 1, today)
	if !got.Equal(date(2025, time.May, 1)) {
		t.Fatalf("expected explicit first due date, got %s", got.Format("2006-01-02"))
	}

	// due day still ahead in the current month
	got = FirstDueDate(nil, 20, today)
	if !got.Equal(date(2025, time.March, 20)) {
		t.Fatalf("expected 2025-03-20, got %s", got.Format("2006-01-02"))
	}

	// due day equals today: today counts, no roll forward
	got = FirstDueDate(nil, 10, today)
	if !got.Equal(date(2025, time.March, 10)) {
		t.Fatalf("expected 2025-03-10, got %s", got.Format("2006-01-02"))
	}

	// due day already passed: roll to next month
	got = FirstDueDate(nil, 5, today)
	if !got.Equal(date(2025, time.April, 5)) {
		t.Fatalf("expected 2025-04-05, got %s", got.Format("2006-01-02"))
	}

	// day 31 in a 30-day month clamps
	got = FirstDueDate(nil, 31, date(2025, time.April, 1))
	if !got.Equal(date(2025, time.April, 30)) {
		t.Fatalf("expected 2025-04-30, got %s", got.Format("2006-01-02"))
	}
}

func TestScheduleDueDates_MonthlyDay31(t *testing.T) {
	today := date(2025, time.January, 10)
	horizon := date(2025, time.May, 10)

	dates := ScheduleDueDates(models.BillFrequencyMonthly, 31, nil, nil, today, horizon)

	expected := []time.Time{
		date(2025, time.January, 31),
		date(2025, time.February, 28),
		date(2025, time.March, 31),
		date(2025, time.April, 30),
	}
	if len(dates) != len(expected) {
		t.Fatalf("expected %d dates, got %d: %v", len(expected), len(dates), dates)
	}
	for i := range expected {
		if !dates[i].Equal(expected[i]) {
			t.Fatalf("dates[%d] expected %s, got %s",
				i, expected[i].Format("2006-01-02"), dates[i].Format("2006-01-02"))
		}
	}
}

func TestScheduleDueDates_AnchorsOnLastOccurrence(t *testing.T) {
	today := date(2025, time.March, 1)
	horizon := date(2025, time.June, 1)
	last := date(2025, time.February, 15)

	dates := ScheduleDueDates(models.BillFrequencyMonthly, 15, nil, &last, today, horizon)

	expected := []time.Time{
		date(2025, time.March, 15),
		date(2025, time.April, 15),
		date(2025, time.May, 15),
	}
	if len(dates) != len(expected) {
		t.Fatalf("expected %d dates, got %d", len(expected), len(dates))
	}
	for i := range expected {
		if !dates[i].Equal(expected[i]) {
			t.Fatalf("dates[%d] expected %s, got %s",
				i, expected[i].Format("2006-01-02"), dates[i].Format("2006-01-02"))
		}
	}
}

func TestScheduleDueDates_HorizonInclusive(t *testing.T) {
	today := date(2025, time.March, 1)
	horizon := date(2025, time.April, 15)
	last := date(2025, time.March, 15)

	dates := ScheduleDueDates(models.BillFrequencyMonthly, 15, nil, &last, today, horizon)

	if len(dates) != 1 || !dates[0].Equal(date(2025, time.April, 15)) {
		t.Fatalf("expected exactly the horizon date, got %v", dates)
	}
}

func TestScheduleDueDates_EmptyWhenCaughtUp(t *testing.T) {
	today := date(2025, time.March, 1)
	horizon := date(2025, time.April, 1)
	last := date(2025, time.March, 20)

	dates := ScheduleDueDates(models.BillFrequencyMonthly, 20, nil, &last, today, horizon)
	if len(dates) != 0 {
		t.Fatalf("expected no dates, got %v", dates)
	}
}

func TestScheduleDueDates_Weekly(t *testing.T) {
	today := date(2025, time.March, 3)
	horizon := date(2025, time.March, 31)
	first := date(2025, time.March, 3)

	dates := ScheduleDueDates(models.BillFrequencyWeekly, 3, &first, nil, today, horizon)

	expected := []time.Time{
		date(2025, time.March, 3),
		date(2025, time.March, 10),
		date(2025, time.March, 17),
		date(2025, time.March, 24),
		date(2025, time.March, 31),
	}
	if len(dates) != len(expected) {
		t.Fatalf("expected %d dates, got %d", len(expected), len(dates))
	}
	for i := range expected {
		if !dates[i].Equal(expected[i]) {
			t.Fatalf("dates[%d] expected %s, got %s",
				i, expected[i].Format("2006-01-02"), dates[i].Format("2006-01-02"))
		}
	}
}

func TestScheduleDueDates_Deterministic(t *testing.T) {
	today := date(2025, time.January, 10)
	horizon := date(2026, time.January, 10)

	base := ScheduleDueDates(models.BillFrequencyMonthly, 31, nil, nil, today, horizon)
	for run := 0; run < 50; run++ {
		again := ScheduleDueDates(models.BillFrequencyMonthly, 31, nil, nil, today, horizon)
		if len(again) != len(base) {
			t.Fatalf("run=%d length changed: %d vs %d", run, len(again), len(base))
		}
		for i := range base {
			if !again[i].Equal(base[i]) {
				t.Fatalf("run=%d dates[%d] changed: %s vs %s",
					run, i, again[i].Format("2006-01-02"), base[i].Format("2006-01-02"))
			}
		}
	}
}
