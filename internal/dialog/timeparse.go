package dialog

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

var (
	clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	fullRe  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})[ T](\d{1,2}):(\d{2})$`)
)

var errBadFormat = errors.New("unrecognized time format")

// parseClock parses "HH:MM" (hour may be one digit) into clock components.
func parseClock(s string) (hour, minute int, err error) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, errBadFormat
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, errBadFormat
	}
	return hour, minute, nil
}

// parseFull parses "YYYY-MM-DD HH:MM" (a 'T' separator is also accepted)
// into an absolute time in loc. Calendar-invalid dates are rejected rather
// than normalized.
func parseFull(s string, loc *time.Location) (time.Time, error) {
	m := fullRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, errBadFormat
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])

	if hour > 23 || minute > 59 {
		return time.Time{}, errBadFormat
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	// time.Date normalizes overflow (e.g. Feb 31 -> Mar 3); reject that.
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, errBadFormat
	}
	return t, nil
}

// clockOn builds the instant at hour:minute on day's calendar date in loc.
func clockOn(day time.Time, hour, minute int, loc *time.Location) time.Time {
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc)
}
