package utils

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of expiration dates.
const DateLayout = "2006-01-02"

// DaysPerYear is the actual/365 day-count basis used for expiries.
const DaysPerYear = 365.0

// NextOptionsExpiration returns the next monthly expiration (third Friday)
// relative to now:
// - Third Friday of the current month if we haven't reached the expiration week yet
// - Third Friday of next month if we're in or past the expiration week
func NextOptionsExpiration(now time.Time) time.Time {
	thirdFriday := thirdFridayOf(now.Year(), now.Month(), now.Location())

	weekStart := thirdFriday.AddDate(0, 0, -7)
	if !now.Before(weekStart) {
		next := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
		return thirdFridayOf(next.Year(), next.Month(), now.Location())
	}
	return thirdFriday
}

func thirdFridayOf(year int, month time.Month, loc *time.Location) time.Time {
	firstFriday := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	for firstFriday.Weekday() != time.Friday {
		firstFriday = firstFriday.AddDate(0, 0, 1)
	}
	return firstFriday.AddDate(0, 0, 14)
}

// YearsUntil returns the calendar days from now's date to expiry's date as a
// fraction of a 365-day year. Time of day is ignored, so an expiry dated
// today yields 0. A past expiry returns an error.
func YearsUntil(expiry, now time.Time) (float64, error) {
	days := calendarDays(now, expiry)
	if days < 0 {
		return 0, fmt.Errorf("expiration %s is %d days in the past", expiry.Format(DateLayout), -days)
	}
	return float64(days) / DaysPerYear, nil
}

// ParseExpiration parses a YYYY-MM-DD date in now's location and converts it
// with YearsUntil.
func ParseExpiration(date string, now time.Time) (float64, error) {
	expiry, err := time.ParseInLocation(DateLayout, date, now.Location())
	if err != nil {
		return 0, fmt.Errorf("invalid expiration date format: %w", err)
	}
	return YearsUntil(expiry, now)
}

func calendarDays(from, to time.Time) int {
	// Dates are rebuilt at UTC midnight so DST shifts cannot leave a 23h day.
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
