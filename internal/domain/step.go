package domain

// Step is the current position of a session in the registration workflow.
type Step int

const (
	StepSelectBuilding Step = iota
	StepSelectRoom
	StepEnterName
	StepEnterStartDate
	StepEnterEndDate
	StepConfirmDates
	StepDateConflict
	StepEnterMealsForDay
	StepConfirmRegistration
	StepComplete
)

func (s Step) String() string {
	switch s {
	case StepSelectBuilding:
		return "select_building"
	case StepSelectRoom:
		return "select_room"
	case StepEnterName:
		return "enter_name"
	case StepEnterStartDate:
		return "enter_start_date"
	case StepEnterEndDate:
		return "enter_end_date"
	case StepConfirmDates:
		return "confirm_dates"
	case StepDateConflict:
		return "date_conflict"
	case StepEnterMealsForDay:
		return "enter_meals_for_day"
	case StepConfirmRegistration:
		return "confirm_registration"
	case StepComplete:
		return "complete"
	default:
		return "unknown"
	}
}
