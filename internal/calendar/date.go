// Package calendar resolves the target date of a digest.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Layout is the canonical date layout used in every query and comparison.
const Layout = "2006-01-02"

var (
	// ErrInvalidDateFormat is returned for input in none of the supported formats.
	ErrInvalidDateFormat = errors.New("invalid date format: use YYYY-MM-DD, DD-MM-YYYY, \"today\" or \"yesterday\"")
	// ErrCalendarValidation is returned for well-formed input that is not a real date.
	ErrCalendarValidation = errors.New("date does not exist in the calendar")
)

var (
	isoPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	dmyPattern = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{4})$`)
)

// Date is a calendar date in canonical YYYY-MM-DD form.
type Date string

func (d Date) String() string { return string(d) }

// Parse resolves raw into a canonical date relative to now.
//
// An empty string and "yesterday" both mean the previous working day.
func Parse(raw string, now time.Time) (Date, error) {
	today := FromTime(now)
	switch raw {
	case "", "yesterday":
		return PreviousWorkingDay(today), nil
	case "today":
		return today, nil
	}

	candidate := raw
	if m := dmyPattern.FindStringSubmatch(raw); m != nil {
		candidate = m[3] + "-" + m[2] + "-" + m[1]
	} else if !isoPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDateFormat, raw)
	}

	if !Validate(candidate) {
		return "", fmt.Errorf("%w: %q", ErrCalendarValidation, raw)
	}
	return Date(candidate), nil
}

// Validate checks that s is a canonical date. Month and day ranges are checked
// first; the final say belongs to time.Parse, which rejects dates such as
// 2025-02-31.
func Validate(s string) bool {
	m := isoPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	_, err := time.Parse(Layout, s)
	return err == nil
}

// FromTime returns the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	return Date(t.Format(Layout))
}

// Time returns midnight UTC of d. It panics on a non-canonical date, which
// cannot come out of Parse.
func (d Date) Time() time.Time {
	t, err := time.Parse(Layout, string(d))
	if err != nil {
		panic(fmt.Sprintf("calendar: non-canonical date %q", string(d)))
	}
	return t
}

// AddDays shifts d by n days. The arithmetic is done in UTC so daylight
// saving transitions cannot skip or repeat a day.
func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// PreviousWorkingDay returns the working day before d.
// Monday and Sunday go back to Friday.
func PreviousWorkingDay(d Date) Date {
	switch d.Time().Weekday() {
	case time.Monday:
		return d.AddDays(-3)
	case time.Sunday:
		return d.AddDays(-2)
	default:
		return d.AddDays(-1)
	}
}

// DayName returns the weekday name of d.
func DayName(d Date) string {
	return d.Time().Weekday().String()
}

// Bounds returns the start of d and the start of the following day in loc.
func (d Date) Bounds(loc *time.Location) (time.Time, time.Time) {
	t := d.Time()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Contains reports whether t falls on d when viewed in loc.
func (d Date) Contains(t time.Time, loc *time.Location) bool {
	return FromTime(t.In(loc)) == d
}
