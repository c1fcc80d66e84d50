package services

import (
	"testing"
	"time"
)

func TestDayRangeNormalizesToLocationMidnight(t *testing.T) {
	location, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	raw := time.Date(2026, 2, 1, 19, 35, 10, 0, time.UTC)
	start, end := DayRange(raw, location)

	if start.Hour() != 0 || start.Minute() != 0 || start.Second() != 0 {
		t.Fatalf("expected midnight start, got %s", start.Format(time.RFC3339))
	}
	if !end.Equal(start.AddDate(0, 0, 1)) {
		t.Fatalf("expected next day end, got %s", end.Format(time.RFC3339))
	}
}

func TestDateStringUsesLocationCalendarDay(t *testing.T) {
	location, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	raw := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	if got := DateString(raw, location); got != "2026-03-02" {
		t.Fatalf("expected Tokyo date 2026-03-02, got %s", got)
	}
	if got := DateString(raw, time.UTC); got != "2026-03-01" {
		t.Fatalf("expected UTC date 2026-03-01, got %s", got)
	}
}

func TestCalendarDaysBetweenCountsBoundaries(t *testing.T) {
	start := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)

	if got := CalendarDaysBetween(start, end, time.UTC); got != 1 {
		t.Fatalf("expected 1 day, got %d", got)
	}
	if got := CalendarDaysBetween(end, start, time.UTC); got != -1 {
		t.Fatalf("expected -1 day, got %d", got)
	}
}

func TestCalendarDaysBetweenAcrossDSTTransition(t *testing.T) {
	location, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	start := time.Date(2026, 3, 7, 12, 0, 0, 0, location)
	end := time.Date(2026, 3, 9, 12, 0, 0, 0, location)
	if got := CalendarDaysBetween(start, end, location); got != 2 {
		t.Fatalf("expected 2 days across DST, got %d", got)
	}
}

func TestParseDate(t *testing.T) {
	if _, ok := ParseDate("2026-02-30", time.UTC); ok {
		t.Fatal("expected invalid calendar date to be rejected")
	}
	parsed, ok := ParseDate("2026-02-28", time.UTC)
	if !ok {
		t.Fatal("expected valid date")
	}
	if parsed.Day() != 28 {
		t.Fatalf("expected day 28, got %d", parsed.Day())
	}
}
