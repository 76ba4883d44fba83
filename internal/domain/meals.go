package domain

import (
	"errors"
	"strconv"
	"strings"
)

// ZeroMealsInput is the button label that stands for "nobody eats today".
// It must match the user's message exactly.
const ZeroMealsInput = "0 0 0 0 0 0"

// MealCounts holds the number of people per meal for one occupied day.
type MealCounts struct {
	BreakfastAdults   int `json:"breakfast_adults"`
	BreakfastChildren int `json:"breakfast_children"`
	LunchAdults       int `json:"lunch_adults"`
	LunchChildren     int `json:"lunch_children"`
	DinnerAdults      int `json:"dinner_adults"`
	DinnerChildren    int `json:"dinner_children"`
}

var (
	ErrMealFieldCount = errors.New("meal input must contain exactly 6 numbers")
	ErrMealNotANumber = errors.New("meal input must contain only numbers")
	ErrMealNegative   = errors.New("meal counts cannot be negative")
)

// ParseMealCounts parses six whitespace-separated non-negative integers in
// fixed order: breakfast adults, breakfast children, lunch adults,
// lunch children, dinner adults, dinner children. An empty input or the
// ZeroMealsInput sentinel yields all zeros.
func ParseMealCounts(input string) (MealCounts, error) {
	input = strings.TrimSpace(input)
	if input == "" || input == ZeroMealsInput {
		return MealCounts{}, nil
	}

	fields := strings.Fields(input)
	if len(fields) != 6 {
		return MealCounts{}, ErrMealFieldCount
	}

	nums := make([]int, 6)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return MealCounts{}, ErrMealNotANumber
		}
		if n < 0 {
			return MealCounts{}, ErrMealNegative
		}
		nums[i] = n
	}

	return MealCounts{
		BreakfastAdults:   nums[0],
		BreakfastChildren: nums[1],
		LunchAdults:       nums[2],
		LunchChildren:     nums[3],
		DinnerAdults:      nums[4],
		DinnerChildren:    nums[5],
	}, nil
}
