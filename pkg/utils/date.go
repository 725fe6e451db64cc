package utils

import (
	"time"
)

func TimeNowUTC() time.Time {
	return time.Now().UTC()
}

// StartOfDayUTC returns midnight UTC of the day containing t.
func StartOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfWeekUTC returns Monday 00:00 UTC of the week containing t.
func StartOfWeekUTC(t time.Time) time.Time {
	day := StartOfDayUTC(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// PrettyDate formats t for notifications, e.g. "Mon, 12 Oct 2026 09:00 UTC".
func PrettyDate(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
}
