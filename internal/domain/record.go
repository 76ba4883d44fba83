package domain

import "time"

// BookingRecord is one persisted visitor row: one room, one calendar day,
// one representative, with the meal headcount for that day.
// (room, date, name) is unique in storage.
type BookingRecord struct {
	ID    int64      `json:"id,omitempty"`
	Room  RoomID     `json:"room"`
	Date  time.Time  `json:"date"`
	Name  string     `json:"name"`
	Meals MealCounts `json:"meals"`
}

// ConflictEntry is an existing record overlapping a requested date range.
type ConflictEntry struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// InsertOutcome classifies a single record insert at commit time.
type InsertOutcome int

const (
	InsertOK InsertOutcome = iota
	// InsertDuplicate means the unique (room, date, name) constraint fired;
	// the record already exists and the insert is a no-op, not a failure.
	InsertDuplicate
	InsertFailed
)

func (o InsertOutcome) String() string {
	switch o {
	case InsertOK:
		return "inserted"
	case InsertDuplicate:
		return "duplicate"
	default:
		return "failed"
	}
}
