package sim

import "time"

// MonthDay converts a 1-based day of year to calendar month and day for year.
// Ordinals past the end of the year roll into the next year (day 366 of a
// non-leap year is January 1).
func MonthDay(year, dayOfYear int) (month, day int) {
	t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, dayOfYear-1)
	return int(t.Month()), t.Day()
}

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}
