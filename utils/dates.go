// utils/dates.go
package utils

import "time"

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DayWindow returns the UTC [start, end) bounds of the day containing t,
// evaluated in the given location.
func DayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := BeginningOfDay(t.In(loc))
	return start.UTC(), start.Add(24 * time.Hour).UTC()
}
