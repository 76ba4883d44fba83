package domain

import "time"

// Draft is the in-progress, uncommitted booking data for one session.
// It is owned exclusively by that session until commit or cancel.
type Draft struct {
	Building        string
	Room            RoomID
	Name            string
	StartDate       time.Time
	EndDate         time.Time
	DateRange       []time.Time
	DailyMeals      map[string]MealCounts // keyed by storage date (YYYY-MM-DD)
	CurrentDayIndex int
	HasConflict     bool
	Conflicts       []ConflictEntry
}

// ClearDates drops everything entered after room selection, used when the
// user resolves a date conflict by picking another room.
func (d *Draft) ClearDates() {
	d.StartDate = time.Time{}
	d.EndDate = time.Time{}
	d.DateRange = nil
	d.DailyMeals = nil
	d.CurrentDayIndex = 0
}

// ClearConflict drops the conflict flag and the recorded conflicting entries.
func (d *Draft) ClearConflict() {
	d.HasConflict = false
	d.Conflicts = nil
}

// MealsFor returns the recorded meal counts for a day, zero counts if none.
func (d *Draft) MealsFor(day time.Time) MealCounts {
	if d.DailyMeals == nil {
		return MealCounts{}
	}
	return d.DailyMeals[FormatStorageDate(day)]
}

// Days is the length of the inclusive date range.
func (d *Draft) Days() int {
	return len(d.DateRange)
}
