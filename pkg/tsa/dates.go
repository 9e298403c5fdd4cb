package tsa

import "time"

// NextSunday returns the first Sunday strictly after d. When d is itself a
// Sunday the result is the following Sunday.
func NextSunday(d time.Time) time.Time {
	n := (7 - int(d.Weekday())) % 7
	if n == 0 {
		n = 7
	}
	return d.AddDate(0, 0, n)
}

// UpcomingSunday returns d itself when d is a Sunday, otherwise the next one.
func UpcomingSunday(d time.Time) time.Time {
	n := (7 - int(d.Weekday())) % 7
	return d.AddDate(0, 0, n)
}

// DaysUntilNextSunday counts calendar days from d until the next Sunday. A
// same-day Sunday counts as 6, targeting the following week. This is the
// anchor used to lag the week-over-week trend.
func DaysUntilNextSunday(d time.Time) int {
	n := (7 - int(d.Weekday())) % 7
	if n == 0 {
		n = 6
	}
	return n
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// isoWeekday returns the ISO weekday of d (Monday=1 .. Sunday=7).
func isoWeekday(d time.Time) int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// isoWeekDate returns the calendar date of the given ISO year, week and
// weekday.
func isoWeekDate(year, week, weekday int) time.Time {
	// January 4th is always inside ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	week1Monday := jan4.AddDate(0, 0, -(isoWeekday(jan4) - 1))
	return week1Monday.AddDate(0, 0, (week-1)*7+weekday-1)
}

// SameWeekdayLastYear returns the date with the same ISO week and weekday in
// the previous ISO year. Aligning by ISO calendar rather than subtracting 365
// days keeps e.g. the second Monday of the year matched across leap patterns.
// The bool result is false when the previous year has no such week.
func SameWeekdayLastYear(d time.Time) (time.Time, bool) {
	year, week := d.ISOWeek()
	prev := isoWeekDate(year-1, week, isoWeekday(d))
	py, pw := prev.ISOWeek()
	if py != year-1 || pw != week {
		return time.Time{}, false
	}
	return prev, true
}
