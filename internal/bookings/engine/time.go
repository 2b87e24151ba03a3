package engine

import "time"

// Wall-clock layouts used throughout the booking domain. Bookings carry
// a calendar date plus start/end times on that date; overnight spans do
// not exist.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ParseSlotTime converts an "HH:MM" wall-clock string to minutes since
// midnight.
func ParseSlotTime(s string) (int, bool) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// ParseDate parses a "YYYY-MM-DD" calendar date in the given location.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SlotStart resolves a date + start time pair to an absolute instant in
// the given location.
func SlotStart(date, start string, loc *time.Location) (time.Time, bool) {
	day, ok := ParseDate(date, loc)
	if !ok {
		return time.Time{}, false
	}
	minutes, ok := ParseSlotTime(start)
	if !ok {
		return time.Time{}, false
	}
	return day.Add(time.Duration(minutes) * time.Minute), true
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
