// Package workflow implements the multi-step registration state machine.
// One input message produces exactly one StepResult; transitions never
// return errors across the step boundary.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/svaboev-coder/Tornado-cooking/internal/domain"
	"github.com/svaboev-coder/Tornado-cooking/internal/repo/postgres"
	"github.com/svaboev-coder/Tornado-cooking/internal/rooms"
	"github.com/svaboev-coder/Tornado-cooking/internal/session"
	"github.com/svaboev-coder/Tornado-cooking/pkg/events"
	"github.com/svaboev-coder/Tornado-cooking/pkg/logger"
)

type ResultKind string

const (
	KindContinue ResultKind = "continue"
	KindCancel   ResultKind = "cancel"
	KindSuccess  ResultKind = "success"
	KindError    ResultKind = "error"
)

// StepResult is what the transport layer renders back to the user: a result
// kind, the prompt text, and the selectable button labels (empty for
// free-text steps).
type StepResult struct {
	Kind    ResultKind `json:"kind"`
	Text    string     `json:"text"`
	Choices []string   `json:"choices,omitempty"`
}

// SnapshotRunner creates a backup snapshot after a successful commit.
type SnapshotRunner interface {
	Snapshot(ctx context.Context) (string, int, error)
}

type Engine struct {
	sessions  *session.Store
	directory rooms.Directory
	visitors  postgres.VisitorRepo
	bus       events.Publisher
	backup    SnapshotRunner
}

func NewEngine(sessions *session.Store, directory rooms.Directory, visitors postgres.VisitorRepo, bus events.Publisher, backup SnapshotRunner) *Engine {
	return &Engine{
		sessions:  sessions,
		directory: directory,
		visitors:  visitors,
		bus:       bus,
		backup:    backup,
	}
}

// Start begins (or restarts) a registration for a user. The session is only
// created once the building list is available; a directory outage leaves any
// existing session untouched.
func (e *Engine) Start(ctx context.Context, userID int64) StepResult {
	buildings := e.directory.ListBuildings(ctx)
	if len(buildings) == 0 {
		logger.ErrorContext(ctx, "Room directory returned no buildings", "user_id", userID)
		return StepResult{Kind: KindError, Text: msgNoBuildings}
	}

	s := e.sessions.GetOrCreate(userID)
	s.Lock()
	defer s.Unlock()
	s.Reset()

	text, choices := buildingPrompt(buildings)
	return StepResult{Kind: KindContinue, Text: text, Choices: choices}
}

// Reset discards a user's session, used for the top-level cancel command.
func (e *Engine) Reset(userID int64) {
	e.sessions.Clear(userID)
}

// ProcessInput feeds one message into the user's workflow. Inputs for a user
// are serialized on the session lock; distinct users proceed in parallel.
func (e *Engine) ProcessInput(ctx context.Context, userID int64, text string) StepResult {
	s := e.sessions.Get(userID)
	if s == nil {
		return StepResult{Kind: KindError, Text: msgUnknownStep}
	}

	s.Lock()
	defer s.Unlock()

	ctx = context.WithValue(ctx, logger.UserIDKey, userID)
	ctx = context.WithValue(ctx, logger.StepKey, s.Step.String())

	if text == BtnCancel {
		return e.cancel(ctx, s)
	}

	switch s.Step {
	case domain.StepSelectBuilding:
		return e.stepSelectBuilding(ctx, s, text)
	case domain.StepSelectRoom:
		return e.stepSelectRoom(ctx, s, text)
	case domain.StepEnterName:
		return e.stepEnterName(ctx, s, text)
	case domain.StepEnterStartDate:
		return e.stepEnterStartDate(ctx, s, text)
	case domain.StepEnterEndDate:
		return e.stepEnterEndDate(ctx, s, text)
	case domain.StepConfirmDates:
		return e.stepConfirmDates(ctx, s, text)
	case domain.StepDateConflict:
		return e.stepDateConflict(ctx, s, text)
	case domain.StepEnterMealsForDay:
		return e.stepEnterMeals(ctx, s, text)
	case domain.StepConfirmRegistration, domain.StepComplete:
		return e.stepComplete(ctx, s, text)
	default:
		logger.ErrorContext(ctx, "Session in unknown workflow step")
		return StepResult{Kind: KindError, Text: msgUnknownStep}
	}
}

func (e *Engine) cancel(ctx context.Context, s *session.Session) StepResult {
	step := s.Step.String()
	e.sessions.Clear(s.UserID)
	logger.InfoContext(ctx, "Registration canceled by user")

	if e.bus != nil {
		event := events.RegistrationCanceledEvent{
			UserID:     s.UserID,
			Step:       step,
			CanceledAt: time.Now(),
		}
		if err := e.bus.Publish(ctx, events.RegistrationCanceled, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish cancel event", "error", err)
		}
	}

	return StepResult{Kind: KindCancel, Text: msgCanceled}
}

func (e *Engine) stepSelectBuilding(ctx context.Context, s *session.Session, text string) StepResult {
	building := strings.TrimSpace(text)
	buildings := e.directory.ListBuildings(ctx)
	if len(buildings) == 0 {
		return StepResult{Kind: KindError, Text: msgNoBuildings}
	}

	if !contains(buildings, building) {
		return StepResult{Kind: KindContinue, Text: msgPickBuilding, Choices: append(buildings, BtnCancel)}
	}

	// A fresh building choice invalidates any previously entered room/dates.
	s.Draft = &domain.Draft{Building: building}
	s.Step = domain.StepSelectRoom

	return e.promptRooms(ctx, building)
}

func (e *Engine) promptRooms(ctx context.Context, building string) StepResult {
	roomIDs := e.directory.ListRooms(ctx, building)
	if len(roomIDs) == 0 {
		logger.ErrorContext(ctx, "No rooms found for building", "building", building)
		return StepResult{
			Kind: KindError,
			Text: fmt.Sprintf("❌ Не удалось получить номера в корпусе %s. Попробуйте позже.", building),
		}
	}

	text, choices := roomPrompt(building, roomIDs)
	return StepResult{Kind: KindContinue, Text: text, Choices: choices}
}

func (e *Engine) stepSelectRoom(ctx context.Context, s *session.Session, text string) StepResult {
	if text == BtnBack {
		return e.restart(ctx, s)
	}

	room := domain.RoomID(strings.TrimSpace(text))
	roomIDs := e.directory.ListRooms(ctx, s.Draft.Building)
	if !containsRoom(roomIDs, room) {
		return StepResult{
			Kind:    KindContinue,
			Text:    fmt.Sprintf("❌ Выберите номер из списка корпуса %s:", s.Draft.Building),
			Choices: roomChoices(roomIDs),
		}
	}

	s.Draft.Room = room
	s.Draft.ClearConflict()
	s.Step = domain.StepEnterName

	t, choices := namePrompt(room)
	return StepResult{Kind: KindContinue, Text: t, Choices: choices}
}

// restart re-runs the building selection entry, clearing the draft.
func (e *Engine) restart(ctx context.Context, s *session.Session) StepResult {
	buildings := e.directory.ListBuildings(ctx)
	if len(buildings) == 0 {
		return StepResult{Kind: KindError, Text: msgNoBuildings}
	}

	s.Reset()
	text, choices := buildingPrompt(buildings)
	return StepResult{Kind: KindContinue, Text: text, Choices: choices}
}

func (e *Engine) stepEnterName(_ context.Context, s *session.Session, text string) StepResult {
	name := strings.TrimSpace(text)
	if len([]rune(name)) < 2 {
		return StepResult{Kind: KindContinue, Text: msgNameTooShort, Choices: []string{BtnCancel}}
	}

	s.Draft.Name = name
	s.Step = domain.StepEnterStartDate

	t, choices := startDatePrompt(name)
	return StepResult{Kind: KindContinue, Text: t, Choices: choices}
}

func (e *Engine) stepEnterStartDate(_ context.Context, s *session.Session, text string) StepResult {
	// A fresh date entry always drops a recorded conflict.
	s.Draft.ClearConflict()

	start, err := domain.ParseInputDate(strings.TrimSpace(text))
	if err != nil {
		return StepResult{Kind: KindContinue, Text: msgBadDateFormat, Choices: []string{BtnCancel}}
	}
	if start.Before(domain.Today()) {
		return StepResult{Kind: KindContinue, Text: msgPastStartDate, Choices: []string{BtnCancel}}
	}

	s.Draft.StartDate = start
	s.Step = domain.StepEnterEndDate

	t, choices := endDatePrompt(domain.FormatInputDate(start))
	return StepResult{Kind: KindContinue, Text: t, Choices: choices}
}

func (e *Engine) stepEnterEndDate(_ context.Context, s *session.Session, text string) StepResult {
	end, err := domain.ParseInputDate(strings.TrimSpace(text))
	if err != nil {
		return StepResult{Kind: KindContinue, Text: msgBadDateFormat, Choices: []string{BtnCancel}}
	}
	if !end.After(s.Draft.StartDate) {
		return StepResult{Kind: KindContinue, Text: msgEndBeforeStart, Choices: []string{BtnCancel}}
	}

	s.Draft.EndDate = end
	s.Draft.DateRange = domain.DateRange(s.Draft.StartDate, end)
	s.Step = domain.StepConfirmDates

	t, choices := confirmDatesPrompt(s.Draft)
	return StepResult{Kind: KindContinue, Text: t, Choices: choices}
}

func (e *Engine) stepConfirmDates(ctx context.Context, s *session.Session, text string) StepResult {
	if text != BtnConfirmDates {
		return StepResult{
			Kind:    KindContinue,
			Text:    fmt.Sprintf("❌ Выберите '%s' или '%s':", BtnConfirmDates, BtnCancel),
			Choices: []string{BtnConfirmDates, BtnCancel},
		}
	}

	conflicts, err := e.visitors.FindConflicts(ctx, s.Draft.Room, s.Draft.StartDate, s.Draft.EndDate)
	if err != nil {
		logger.ErrorContext(ctx, "Conflict check failed", "error", err, "room", s.Draft.Room)
		return StepResult{Kind: KindError, Text: msgStorageDown}
	}

	if len(conflicts) > 0 {
		s.Draft.HasConflict = true
		s.Draft.Conflicts = conflicts
		s.Step = domain.StepDateConflict

		logger.InfoContext(ctx, "Date conflict detected",
			"room", s.Draft.Room, "conflicts", len(conflicts))
		e.publishConflict(ctx, s)

		t, choices := conflictPrompt(s.Draft)
		return StepResult{Kind: KindContinue, Text: t, Choices: choices}
	}

	s.Draft.DailyMeals = make(map[string]domain.MealCounts)
	s.Draft.CurrentDayIndex = 0
	s.Step = domain.StepEnterMealsForDay

	t, choices := firstMealsPrompt(s.Draft)
	return StepResult{Kind: KindContinue, Text: t, Choices: choices}
}

func (e *Engine) stepDateConflict(ctx context.Context, s *session.Session, text string) StepResult {
	switch text {
	case BtnChangeDates:
		s.Draft.ClearConflict()
		s.Step = domain.StepEnterStartDate

		t, choices := retryDatesPrompt()
		return StepResult{Kind: KindContinue, Text: t, Choices: choices}

	case BtnChangeRoom:
		s.Draft.Room = ""
		s.Draft.ClearDates()
		s.Draft.ClearConflict()
		s.Step = domain.StepSelectRoom

		if s.Draft.Building != "" {
			res := e.promptRooms(ctx, s.Draft.Building)
			if res.Kind != KindError {
				return res
			}
		}
		// Building gone from the directory in the meantime, start over.
		return e.restart(ctx, s)

	default:
		// The conflict menu doubles as a raw date re-entry point: a parseable
		// date is accepted as a new start date directly.
		if _, err := domain.ParseInputDate(strings.TrimSpace(text)); err == nil {
			s.Step = domain.StepEnterStartDate
			return e.stepEnterStartDate(ctx, s, text)
		}

		t, choices := conflictRetryPrompt()
		return StepResult{Kind: KindContinue, Text: t, Choices: choices}
	}
}

func (e *Engine) stepEnterMeals(ctx context.Context, s *session.Session, text string) StepResult {
	d := s.Draft
	day := d.DateRange[d.CurrentDayIndex]
	dateKey := domain.FormatStorageDate(day)

	meals, err := domain.ParseMealCounts(text)
	if err != nil {
		return StepResult{Kind: KindContinue, Text: mealErrorMessage(err), Choices: []string{BtnZeroMeals, BtnCancel}}
	}

	if d.DailyMeals == nil {
		d.DailyMeals = make(map[string]domain.MealCounts)
	}
	d.DailyMeals[dateKey] = meals

	if d.CurrentDayIndex+1 < d.Days() {
		savedDay := d.CurrentDayIndex
		d.CurrentDayIndex++

		t, choices := nextDayPrompt(d, savedDay)
		return StepResult{Kind: KindContinue, Text: t, Choices: choices}
	}

	s.Step = domain.StepConfirmRegistration
	t, choices := registrationSummary(d)
	return StepResult{Kind: KindContinue, Text: t, Choices: choices}
}

func mealErrorMessage(err error) string {
	switch err {
	case domain.ErrMealFieldCount:
		return msgMealsWrongCount
	case domain.ErrMealNegative:
		return msgMealsNegative
	default:
		return msgMealsNotNumbers
	}
}

func (e *Engine) stepComplete(ctx context.Context, s *session.Session, text string) StepResult {
	if text != BtnConfirmFinal {
		t, choices := finalRetryPrompt()
		return StepResult{Kind: KindContinue, Text: t, Choices: choices}
	}

	s.Step = domain.StepComplete
	return e.commit(ctx, s)
}

// commit persists one record per occupied day. Duplicate rows are treated as
// already satisfied; other per-record failures are logged and skipped. The
// whole batch fails only when nothing landed and nothing was a duplicate.
func (e *Engine) commit(ctx context.Context, s *session.Session) StepResult {
	d := s.Draft
	var inserted, duplicates, failed int

	for _, day := range d.DateRange {
		rec := &domain.BookingRecord{
			Room:  d.Room,
			Date:  day,
			Name:  d.Name,
			Meals: d.MealsFor(day),
		}

		outcome, err := e.visitors.Insert(ctx, rec)
		if err != nil {
			failed++
			logger.ErrorContext(ctx, "Failed to insert booking record",
				"error", err, "room", rec.Room, "date", domain.FormatStorageDate(day))
			continue
		}

		switch outcome {
		case domain.InsertOK:
			inserted++
		case domain.InsertDuplicate:
			duplicates++
			logger.WarnContext(ctx, "Booking record already exists",
				"room", rec.Room, "date", domain.FormatStorageDate(day), "name", rec.Name)
		default:
			failed++
		}
	}

	if inserted == 0 && duplicates == 0 {
		logger.ErrorContext(ctx, "No booking records persisted",
			"room", d.Room, "days", d.Days(), "failed", failed)
		return StepResult{Kind: KindError, Text: msgStorageDown}
	}

	logger.InfoContext(ctx, "Registration committed",
		"room", d.Room, "name", d.Name, "days", d.Days(),
		"inserted", inserted, "duplicates", duplicates, "failed", failed)

	e.publishCompleted(ctx, s, inserted, duplicates)
	e.runBackup(ctx, inserted)

	e.sessions.Clear(s.UserID)
	return StepResult{Kind: KindSuccess, Text: successPrompt()}
}

func (e *Engine) publishCompleted(ctx context.Context, s *session.Session, inserted, duplicates int) {
	if e.bus == nil {
		return
	}
	d := s.Draft
	event := events.RegistrationCompletedEvent{
		UserID:      s.UserID,
		Room:        string(d.Room),
		Name:        d.Name,
		StartDate:   domain.FormatStorageDate(d.StartDate),
		EndDate:     domain.FormatStorageDate(d.EndDate),
		Days:        d.Days(),
		Inserted:    inserted,
		Duplicates:  duplicates,
		CompletedAt: time.Now(),
	}
	if err := e.bus.Publish(ctx, events.RegistrationCompleted, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish completion event", "error", err)
	}
}

func (e *Engine) publishConflict(ctx context.Context, s *session.Session) {
	if e.bus == nil {
		return
	}
	d := s.Draft
	event := events.RegistrationConflictedEvent{
		UserID:     s.UserID,
		Room:       string(d.Room),
		StartDate:  domain.FormatStorageDate(d.StartDate),
		EndDate:    domain.FormatStorageDate(d.EndDate),
		Conflicts:  len(d.Conflicts),
		DetectedAt: time.Now(),
	}
	if err := e.bus.Publish(ctx, events.RegistrationConflicted, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish conflict event", "error", err)
	}
}

func (e *Engine) runBackup(ctx context.Context, inserted int) {
	if e.backup == nil || inserted == 0 {
		return
	}
	path, records, err := e.backup.Snapshot(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Backup snapshot failed", "error", err)
		return
	}
	logger.InfoContext(ctx, "Backup snapshot created", "path", path, "records", records)
}

func contains(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}

func containsRoom(items []domain.RoomID, v domain.RoomID) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}

func roomChoices(roomIDs []domain.RoomID) []string {
	choices := make([]string, 0, len(roomIDs)+2)
	for _, r := range roomIDs {
		choices = append(choices, string(r))
	}
	return append(choices, BtnBack, BtnCancel)
}
