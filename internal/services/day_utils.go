package services

import (
	"math"
	"time"
)

const DateLayout = "2006-01-02"

func DateAtLocation(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	localized := value.In(location)
	year, month, day := localized.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

func DayRange(value time.Time, location *time.Location) (time.Time, time.Time) {
	start := DateAtLocation(value, location)
	return start, start.AddDate(0, 0, 1)
}

func DateString(value time.Time, location *time.Location) string {
	return DateAtLocation(value, location).Format(DateLayout)
}

func CalendarDaysBetween(start time.Time, end time.Time, location *time.Location) int {
	from := DateAtLocation(start, location)
	to := DateAtLocation(end, location)
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func ParseDate(raw string, location *time.Location) (time.Time, bool) {
	if location == nil {
		location = time.UTC
	}
	parsed, err := time.ParseInLocation(DateLayout, raw, location)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
