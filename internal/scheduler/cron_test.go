package scheduler

import (
	"testing"
	"time"
)

func TestParseCronValid(t *testing.T) {
	tests := []struct {
		expr string
	}{
		{"* * * * *"},
		{"*/5 * * * *"},
		{"0 9 * * *"},
		{"30 4 1,15 * *"},
		{"0 0 1 1 0"},
		{"0-30/5 9-17 * * 1-5"},
	}
	for _, tc := range tests {
		if _, err := ParseCron(tc.expr); err != nil {
			t.Errorf("ParseCron(%q) returned error: %v", tc.expr, err)
		}
	}
}

func TestParseCronInvalid(t *testing.T) {
	tests := []struct {
		expr string
	}{
		{""},
		{"* * *"},
		{"60 * * * *"},
		{"* 25 * * *"},
		{"* * 32 * *"},
		{"* * * 13 *"},
		{"* * * * 7"},
		{"*/0 * * * *"},
		{"abc * * * *"},
		{"5-2 * * * *"},
	}
	for _, tc := range tests {
		if _, err := ParseCron(tc.expr); err == nil {
			t.Errorf("ParseCron(%q) should have returned error", tc.expr)
		}
	}
}

func TestMatchesEveryMinute(t *testing.T) {
	c, _ := ParseCron("* * * * *")
	now := time.Date(2026, 2, 15, 10, 30, 0, 0, time.UTC)
	if !c.Matches(now) {
		t.Error("* * * * * should match any time")
	}
}

func TestMatchesDailyWordSchedule(t *testing.T) {
	c, _ := ParseCron("0 9 * * *")

	match := time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)
	if !c.Matches(match) {
		t.Error("0 9 * * * should match 09:00")
	}
	if c.Matches(time.Date(2026, 2, 15, 9, 1, 0, 0, time.UTC)) {
		t.Error("0 9 * * * should not match 09:01")
	}
	if c.Matches(time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)) {
		t.Error("0 9 * * * should not match 10:00")
	}
}

func TestMatchesStep(t *testing.T) {
	c, _ := ParseCron("*/5 * * * *")
	if !c.Matches(time.Date(2026, 2, 15, 10, 15, 0, 0, time.UTC)) {
		t.Error("*/5 should match minute 15")
	}
	if c.Matches(time.Date(2026, 2, 15, 10, 13, 0, 0, time.UTC)) {
		t.Error("*/5 should not match minute 13")
	}
}

func TestMatchesRangeAndWeekday(t *testing.T) {
	c, _ := ParseCron("0-30/5 9-17 * * 1-5")

	monday := time.Date(2026, 2, 16, 10, 15, 0, 0, time.UTC)
	if !c.Matches(monday) {
		t.Errorf("should match Monday 10:15, weekday=%d", monday.Weekday())
	}

	saturday := time.Date(2026, 2, 14, 10, 15, 0, 0, time.UTC)
	if c.Matches(saturday) {
		t.Errorf("should not match Saturday, weekday=%d", saturday.Weekday())
	}
}

func TestNext(t *testing.T) {
	c, _ := ParseCron("0 9 * * *")

	from := time.Date(2026, 2, 15, 10, 30, 0, 0, time.UTC)
	next := c.Next(from)
	want := time.Date(2026, 2, 16, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("Next = %v, want %v", next, want)
	}

	// Before today's fire time, Next stays on the same day.
	from = time.Date(2026, 2, 15, 8, 0, 0, 0, time.UTC)
	next = c.Next(from)
	want = time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("Next = %v, want %v", next, want)
	}
}

func TestNextSkipsMonths(t *testing.T) {
	c, _ := ParseCron("0 0 1 1 *")

	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	next := c.Next(from)
	want := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("Next = %v, want %v", next, want)
	}
}
