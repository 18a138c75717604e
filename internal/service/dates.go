package service

import "time"

// DayBoundary decides which calendar day is "today" for listings: from
// Hour o'clock local time onwards the next day is shown.
type DayBoundary struct {
	Hour int
	Loc  *time.Location
}

// DefaultDayBoundary rolls over at 19:00 in the process's local zone.
func DefaultDayBoundary() DayBoundary {
	return DayBoundary{Hour: 19, Loc: time.Local}
}

// Date returns the default listing date for now, as YYYY-MM-DD.
func (b DayBoundary) Date(now time.Time) string {
	loc := b.Loc
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	if local.Hour() >= b.Hour {
		local = local.AddDate(0, 0, 1)
	}
	return local.Format(time.DateOnly)
}

// Midnight returns the start of now's local calendar day.
func (b DayBoundary) Midnight(now time.Time) time.Time {
	loc := b.Loc
	if loc == nil {
		loc = time.Local
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
