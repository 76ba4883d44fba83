package domain

import (
	"fmt"
	"time"
)

const (
	// DateInputLayout is the human boundary format (ДД.ММ.ГГГГ).
	DateInputLayout = "02.01.2006"
	// DateStorageLayout is the internal and persisted format.
	DateStorageLayout = "2006-01-02"
)

// ParseInputDate parses a user-entered date and truncates it to a calendar day.
func ParseInputDate(s string) (time.Time, error) {
	t, err := time.Parse(DateInputLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func FormatInputDate(t time.Time) string {
	return t.Format(DateInputLayout)
}

func FormatStorageDate(t time.Time) string {
	return t.Format(DateStorageLayout)
}

// Today returns the current date truncated to a calendar day in UTC,
// comparable with parsed input dates.
func Today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// DateRange returns the inclusive day sequence from start to end, ascending.
// It assumes start <= end; callers validate the ordering first.
func DateRange(start, end time.Time) []time.Time {
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
