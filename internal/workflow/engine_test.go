package workflow

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/svaboev-coder/Tornado-cooking/internal/domain"
	"github.com/svaboev-coder/Tornado-cooking/internal/rooms"
	"github.com/svaboev-coder/Tornado-cooking/internal/session"
	"github.com/svaboev-coder/Tornado-cooking/pkg/events"
)

// ---------- Mocks ----------

type mockVisitorRepo struct {
	mu        sync.Mutex
	records   []domain.BookingRecord
	nextID    int64
	insertErr error
	failDates map[string]error // storage date -> error for that day only
	queryErr  error
}

func newMockVisitorRepo() *mockVisitorRepo {
	return &mockVisitorRepo{nextID: 1}
}

func (m *mockVisitorRepo) Insert(_ context.Context, rec *domain.BookingRecord) (domain.InsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		return domain.InsertFailed, m.insertErr
	}
	dateKey := domain.FormatStorageDate(rec.Date)
	if err, ok := m.failDates[dateKey]; ok {
		return domain.InsertFailed, err
	}

	for _, existing := range m.records {
		if existing.Room == rec.Room && existing.Name == rec.Name &&
			domain.FormatStorageDate(existing.Date) == dateKey {
			return domain.InsertDuplicate, nil
		}
	}

	stored := *rec
	stored.ID = m.nextID
	m.nextID++
	m.records = append(m.records, stored)
	return domain.InsertOK, nil
}

func (m *mockVisitorRepo) FindConflicts(_ context.Context, room domain.RoomID, start, end time.Time) ([]domain.ConflictEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queryErr != nil {
		return nil, m.queryErr
	}

	var conflicts []domain.ConflictEntry
	for _, rec := range m.records {
		if rec.Room != room {
			continue
		}
		if rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		conflicts = append(conflicts, domain.ConflictEntry{Date: rec.Date, Name: rec.Name})
	}
	for i := 1; i < len(conflicts); i++ {
		for j := i; j > 0 && conflicts[j].Date.Before(conflicts[j-1].Date); j-- {
			conflicts[j], conflicts[j-1] = conflicts[j-1], conflicts[j]
		}
	}
	return conflicts, nil
}

func (m *mockVisitorRepo) List(_ context.Context, _, _ int) ([]domain.BookingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.BookingRecord{}, m.records...), nil
}

func (m *mockVisitorRepo) ListAll(ctx context.Context) ([]domain.BookingRecord, error) {
	return m.List(ctx, 0, 0)
}

type mockBus struct {
	mu       sync.Mutex
	subjects []string
}

func (m *mockBus) Publish(_ context.Context, subject string, _ interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockBus) Close() error { return nil }

func (m *mockBus) published(subject string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

type emptyDirectory struct{}

func (emptyDirectory) ListBuildings(context.Context) []string { return nil }

func (emptyDirectory) ListRooms(context.Context, string) []domain.RoomID { return nil }

// ---------- Helpers ----------

func newTestEngine() (*Engine, *mockVisitorRepo, *mockBus, *session.Store) {
	repo := newMockVisitorRepo()
	bus := &mockBus{}
	sessions := session.NewStore()
	engine := NewEngine(sessions, rooms.NewFixtureDirectory(), repo, bus, nil)
	return engine, repo, bus, sessions
}

func futureDate(days int) string {
	return domain.FormatInputDate(domain.Today().AddDate(0, 0, days))
}

func futureStorageDate(days int) string {
	return domain.FormatStorageDate(domain.Today().AddDate(0, 0, days))
}

// advance feeds inputs in order and requires each to keep the workflow going.
func advance(t *testing.T, e *Engine, userID int64, inputs ...string) StepResult {
	t.Helper()
	var res StepResult
	for _, input := range inputs {
		res = e.ProcessInput(context.Background(), userID, input)
		if res.Kind == KindError {
			t.Fatalf("unexpected error result on input %q: %s", input, res.Text)
		}
	}
	return res
}

// runToMeals walks a session up to the first meal-entry prompt.
func runToMeals(t *testing.T, e *Engine, userID int64, room, name, start, end string) {
	t.Helper()
	if res := e.Start(context.Background(), userID); res.Kind != KindContinue {
		t.Fatalf("start failed: %s", res.Text)
	}
	building := domain.RoomID(room).Building()
	res := advance(t, e, userID, building, room, name, start, end, BtnConfirmDates)
	if !strings.Contains(res.Text, "Информация о питании") {
		t.Fatalf("expected meals prompt, got: %s", res.Text)
	}
}

// ---------- Tests ----------

func TestFullRegistrationScenario(t *testing.T) {
	e, repo, bus, sessions := newTestEngine()
	start, end := futureDate(1), futureDate(2)

	runToMeals(t, e, 1, "к1/1", "Иванов И.И.", start, end)

	res := advance(t, e, 1, "2 1 2 1 2 0")
	if !strings.Contains(res.Text, "День 2 из 2") {
		t.Fatalf("expected second day prompt, got: %s", res.Text)
	}

	res = advance(t, e, 1, domain.ZeroMealsInput)
	if !strings.Contains(res.Text, "Сводка регистрации") {
		t.Fatalf("expected summary, got: %s", res.Text)
	}

	res = e.ProcessInput(context.Background(), 1, BtnConfirmFinal)
	if res.Kind != KindSuccess {
		t.Fatalf("expected success, got %s: %s", res.Kind, res.Text)
	}

	if len(repo.records) != 2 {
		t.Fatalf("expected 2 persisted records, got %d", len(repo.records))
	}
	first, second := repo.records[0], repo.records[1]
	if first.Room != "к1/1" || first.Name != "Иванов И.И." {
		t.Errorf("unexpected record: %+v", first)
	}
	if domain.FormatStorageDate(first.Date) != futureStorageDate(1) {
		t.Errorf("expected first record on %s, got %s", futureStorageDate(1), domain.FormatStorageDate(first.Date))
	}
	want := domain.MealCounts{BreakfastAdults: 2, BreakfastChildren: 1, LunchAdults: 2, LunchChildren: 1, DinnerAdults: 2}
	if first.Meals != want {
		t.Errorf("expected meals %+v, got %+v", want, first.Meals)
	}
	if second.Meals != (domain.MealCounts{}) {
		t.Errorf("expected zero meals on day 2, got %+v", second.Meals)
	}

	if !bus.published(events.RegistrationCompleted) {
		t.Error("expected completion event")
	}
	if sessions.Get(1) != nil {
		t.Error("expected session cleared after success")
	}
}

func TestConfirmAfterSuccessDoesNotDuplicate(t *testing.T) {
	e, repo, _, _ := newTestEngine()
	runToMeals(t, e, 1, "к1/1", "Иванов И.И.", futureDate(1), futureDate(2))
	advance(t, e, 1, domain.ZeroMealsInput, domain.ZeroMealsInput)

	if res := e.ProcessInput(context.Background(), 1, BtnConfirmFinal); res.Kind != KindSuccess {
		t.Fatalf("expected success, got %s", res.Kind)
	}
	before := len(repo.records)

	// Same button again: the session is gone, nothing else may be written.
	res := e.ProcessInput(context.Background(), 1, BtnConfirmFinal)
	if res.Kind == KindSuccess {
		t.Error("expected no second success")
	}
	if len(repo.records) != before {
		t.Errorf("expected %d records, got %d", before, len(repo.records))
	}
}

func TestOverlappingSecondSessionSeesConflict(t *testing.T) {
	e, _, bus, _ := newTestEngine()

	runToMeals(t, e, 1, "к1/1", "Иванов И.И.", futureDate(1), futureDate(3))
	advance(t, e, 1, domain.ZeroMealsInput, domain.ZeroMealsInput, domain.ZeroMealsInput)
	if res := e.ProcessInput(context.Background(), 1, BtnConfirmFinal); res.Kind != KindSuccess {
		t.Fatalf("first commit failed: %s", res.Text)
	}

	// Second user, same room, overlapping range.
	e.Start(context.Background(), 2)
	res := advance(t, e, 2, "к1", "к1/1", "Петров П.П.", futureDate(2), futureDate(4), BtnConfirmDates)

	if !strings.Contains(res.Text, "Обнаружены конфликты") {
		t.Fatalf("expected conflict prompt, got: %s", res.Text)
	}
	if !strings.Contains(res.Text, "Иванов И.И.") {
		t.Errorf("conflict prompt must name the existing booking: %s", res.Text)
	}
	if !strings.Contains(res.Text, futureDate(2)) || !strings.Contains(res.Text, futureDate(3)) {
		t.Errorf("conflict prompt must list overlapping dates: %s", res.Text)
	}
	if len(res.Choices) != 3 {
		t.Errorf("expected 3 conflict choices, got %v", res.Choices)
	}
	if !bus.published(events.RegistrationConflicted) {
		t.Error("expected conflict event")
	}
}

func TestConflictChangeRoomClearsDraft(t *testing.T) {
	e, repo, _, sessions := newTestEngine()
	repo.records = append(repo.records, domain.BookingRecord{
		Room: "к1/1", Date: domain.Today().AddDate(0, 0, 1), Name: "Иванов И.И.",
	})

	e.Start(context.Background(), 7)
	res := advance(t, e, 7, "к1", "к1/1", "Петров П.П.", futureDate(1), futureDate(2), BtnConfirmDates)
	if !strings.Contains(res.Text, "Обнаружены конфликты") {
		t.Fatalf("expected conflict, got: %s", res.Text)
	}

	res = advance(t, e, 7, BtnChangeRoom)
	if !strings.Contains(res.Text, "Выберите номер в корпусе к1") {
		t.Fatalf("expected room menu for the chosen building, got: %s", res.Text)
	}

	s := sessions.Get(7)
	d := s.Draft
	if d.Room != "" || !d.StartDate.IsZero() || !d.EndDate.IsZero() || d.DateRange != nil {
		t.Errorf("expected room and dates cleared, got %+v", d)
	}
	if d.HasConflict || d.Conflicts != nil {
		t.Errorf("expected conflict flag cleared, got %+v", d)
	}
	if d.Building != "к1" {
		t.Errorf("building must survive a room change, got %q", d.Building)
	}
	if s.Step != domain.StepSelectRoom {
		t.Errorf("expected select_room step, got %s", s.Step)
	}

	// Picking a conflict-free room completes normally.
	res = advance(t, e, 7, "к1/2", "Петров П.П.", futureDate(1), futureDate(2), BtnConfirmDates)
	if !strings.Contains(res.Text, "Информация о питании") {
		t.Errorf("expected meals prompt after room change, got: %s", res.Text)
	}
}

func TestConflictChangeDates(t *testing.T) {
	e, repo, _, sessions := newTestEngine()
	repo.records = append(repo.records, domain.BookingRecord{
		Room: "к1/1", Date: domain.Today().AddDate(0, 0, 1), Name: "Иванов И.И.",
	})

	e.Start(context.Background(), 8)
	advance(t, e, 8, "к1", "к1/1", "Петров П.П.", futureDate(1), futureDate(2), BtnConfirmDates)

	res := advance(t, e, 8, BtnChangeDates)
	if !strings.Contains(res.Text, "Ввод дат размещения") {
		t.Fatalf("expected date re-entry prompt, got: %s", res.Text)
	}

	d := sessions.Get(8).Draft
	if d.HasConflict {
		t.Error("expected conflict flag cleared")
	}
	if d.Room != "к1/1" {
		t.Errorf("room must survive a date change, got %q", d.Room)
	}

	// Conflict-free dates proceed to meals.
	res = advance(t, e, 8, futureDate(5), futureDate(6), BtnConfirmDates)
	if !strings.Contains(res.Text, "Информация о питании") {
		t.Errorf("expected meals prompt, got: %s", res.Text)
	}
}

func TestConflictMenuRejectsOtherInput(t *testing.T) {
	e, repo, _, sessions := newTestEngine()
	repo.records = append(repo.records, domain.BookingRecord{
		Room: "к1/1", Date: domain.Today().AddDate(0, 0, 1), Name: "Иванов И.И.",
	})

	e.Start(context.Background(), 9)
	advance(t, e, 9, "к1", "к1/1", "Петров П.П.", futureDate(1), futureDate(2), BtnConfirmDates)

	res := e.ProcessInput(context.Background(), 9, "что-то еще")
	if len(res.Choices) != 3 {
		t.Errorf("expected the three conflict choices again, got %v", res.Choices)
	}
	if sessions.Get(9).Step != domain.StepDateConflict {
		t.Errorf("expected to stay in date_conflict, got %s", sessions.Get(9).Step)
	}
}

func TestConflictMenuAcceptsRawDate(t *testing.T) {
	e, repo, _, sessions := newTestEngine()
	repo.records = append(repo.records, domain.BookingRecord{
		Room: "к1/1", Date: domain.Today().AddDate(0, 0, 1), Name: "Иванов И.И.",
	})

	e.Start(context.Background(), 10)
	advance(t, e, 10, "к1", "к1/1", "Петров П.П.", futureDate(1), futureDate(2), BtnConfirmDates)

	// Typing a fresh start date directly resolves the conflict menu.
	res := advance(t, e, 10, futureDate(5))
	if !strings.Contains(res.Text, "дату окончания") {
		t.Fatalf("expected end date prompt, got: %s", res.Text)
	}
	d := sessions.Get(10).Draft
	if d.HasConflict {
		t.Error("expected conflict flag cleared on raw date re-entry")
	}
}

func TestMalformedMealInputDoesNotAdvance(t *testing.T) {
	e, _, _, sessions := newTestEngine()
	runToMeals(t, e, 3, "к1/1", "Иванов И.И.", futureDate(1), futureDate(3))

	for _, bad := range []string{"1 2 3 4 5", "1 2 3 4 5 6 7", "1 2 x 4 5 6", "1 -2 3 4 5 6"} {
		res := e.ProcessInput(context.Background(), 3, bad)
		if res.Kind != KindContinue {
			t.Fatalf("expected re-prompt for %q, got %s", bad, res.Kind)
		}
		if d := sessions.Get(3).Draft; d.CurrentDayIndex != 0 {
			t.Fatalf("day cursor advanced on bad input %q", bad)
		}
	}

	// A valid entry still advances afterwards.
	advance(t, e, 3, "1 0 1 0 1 0")
	if d := sessions.Get(3).Draft; d.CurrentDayIndex != 1 {
		t.Errorf("expected cursor at day 1, got %d", d.CurrentDayIndex)
	}
}

func TestDateValidation(t *testing.T) {
	e, _, _, sessions := newTestEngine()
	e.Start(context.Background(), 4)
	advance(t, e, 4, "к1", "к1/1", "Иванов И.И.")

	// Bad format and past date re-prompt in place.
	for _, bad := range []string{"2024-08-25", "not a date", "25.08.2020"} {
		res := e.ProcessInput(context.Background(), 4, bad)
		if res.Kind != KindContinue {
			t.Fatalf("expected re-prompt for %q", bad)
		}
		if sessions.Get(4).Step != domain.StepEnterStartDate {
			t.Fatalf("step moved on invalid start date %q", bad)
		}
	}

	advance(t, e, 4, futureDate(2))

	// End date must be strictly after the start.
	for _, bad := range []string{futureDate(2), futureDate(1)} {
		e.ProcessInput(context.Background(), 4, bad)
		if sessions.Get(4).Step != domain.StepEnterEndDate {
			t.Fatalf("step moved on invalid end date %q", bad)
		}
	}

	res := advance(t, e, 4, futureDate(4))
	if !strings.Contains(res.Text, "Всего дней: 3") {
		t.Errorf("expected a 3-day range, got: %s", res.Text)
	}
}

func TestNameValidation(t *testing.T) {
	e, _, _, sessions := newTestEngine()
	e.Start(context.Background(), 5)
	advance(t, e, 5, "к1", "к1/1")

	res := e.ProcessInput(context.Background(), 5, " И ")
	if res.Kind != KindContinue || sessions.Get(5).Step != domain.StepEnterName {
		t.Fatal("expected re-prompt on a one-character name")
	}

	advance(t, e, 5, "Ив")
	if sessions.Get(5).Step != domain.StepEnterStartDate {
		t.Error("expected two-character name to be accepted")
	}
}

func TestBuildingAndRoomValidation(t *testing.T) {
	e, _, _, sessions := newTestEngine()
	e.Start(context.Background(), 6)

	res := e.ProcessInput(context.Background(), 6, "к99")
	if res.Kind != KindContinue || sessions.Get(6).Step != domain.StepSelectBuilding {
		t.Fatal("expected re-prompt on unknown building")
	}

	advance(t, e, 6, "к1")

	// A valid room of another building is rejected too.
	res = e.ProcessInput(context.Background(), 6, "к2/1")
	if sessions.Get(6).Step != domain.StepSelectRoom {
		t.Fatal("expected to stay in room selection")
	}
	if !strings.Contains(res.Text, "из списка корпуса к1") {
		t.Errorf("unexpected re-prompt: %s", res.Text)
	}
}

func TestBackButtonReturnsToBuildings(t *testing.T) {
	e, _, _, sessions := newTestEngine()
	e.Start(context.Background(), 11)
	advance(t, e, 11, "к1")

	res := advance(t, e, 11, BtnBack)
	if !strings.Contains(res.Text, "Выберите корпус") {
		t.Fatalf("expected building prompt, got: %s", res.Text)
	}
	if sessions.Get(11).Step != domain.StepSelectBuilding {
		t.Errorf("expected select_building, got %s", sessions.Get(11).Step)
	}
}

func TestCancelFromAnyStateClearsSession(t *testing.T) {
	e, repo, bus, sessions := newTestEngine()

	// From the middle of meal entry, where the most draft state exists.
	runToMeals(t, e, 12, "к1/1", "Иванов И.И.", futureDate(1), futureDate(2))
	res := e.ProcessInput(context.Background(), 12, BtnCancel)
	if res.Kind != KindCancel {
		t.Fatalf("expected cancel, got %s", res.Kind)
	}
	if sessions.Get(12) != nil {
		t.Error("expected session cleared on cancel")
	}
	if len(repo.records) != 0 {
		t.Error("cancel must not persist anything")
	}
	if !bus.published(events.RegistrationCanceled) {
		t.Error("expected cancel event")
	}
}

func TestCommitTreatsAllDuplicatesAsSuccess(t *testing.T) {
	e, repo, _, _ := newTestEngine()

	runToMeals(t, e, 13, "Б1/1", "Сидоров С.С.", futureDate(30), futureDate(31))
	advance(t, e, 13, domain.ZeroMealsInput, domain.ZeroMealsInput)

	// Identical rows land between the conflict check and the commit. The
	// unique constraint turns every insert into a no-op and the commit is
	// still considered satisfied.
	repo.records = append(repo.records,
		domain.BookingRecord{Room: "Б1/1", Date: domain.Today().AddDate(0, 0, 30), Name: "Сидоров С.С."},
		domain.BookingRecord{Room: "Б1/1", Date: domain.Today().AddDate(0, 0, 31), Name: "Сидоров С.С."},
	)
	before := len(repo.records)

	res := e.ProcessInput(context.Background(), 13, BtnConfirmFinal)
	if res.Kind != KindSuccess {
		t.Fatalf("all-duplicate commit must still succeed, got %s: %s", res.Kind, res.Text)
	}
	if len(repo.records) != before {
		t.Errorf("expected no new rows, got %d extra", len(repo.records)-before)
	}
}

func TestCommitPartialFailureStillSucceeds(t *testing.T) {
	e, repo, _, _ := newTestEngine()
	repo.failDates = map[string]error{
		futureStorageDate(2): context.DeadlineExceeded,
	}

	runToMeals(t, e, 14, "к1/1", "Иванов И.И.", futureDate(1), futureDate(2))
	advance(t, e, 14, domain.ZeroMealsInput, domain.ZeroMealsInput)

	res := e.ProcessInput(context.Background(), 14, BtnConfirmFinal)
	if res.Kind != KindSuccess {
		t.Fatalf("expected success with one record landed, got %s", res.Kind)
	}
	if len(repo.records) != 1 {
		t.Errorf("expected 1 persisted record, got %d", len(repo.records))
	}
}

func TestCommitTotalFailureReportsError(t *testing.T) {
	e, repo, _, sessions := newTestEngine()

	runToMeals(t, e, 15, "к1/1", "Иванов И.И.", futureDate(1), futureDate(2))
	advance(t, e, 15, domain.ZeroMealsInput, domain.ZeroMealsInput)

	repo.insertErr = context.DeadlineExceeded
	res := e.ProcessInput(context.Background(), 15, BtnConfirmFinal)
	if res.Kind != KindError {
		t.Fatalf("expected error when nothing persisted, got %s", res.Kind)
	}

	// The session survives so the user can retry.
	if sessions.Get(15) == nil {
		t.Fatal("expected session retained after failed commit")
	}
	repo.insertErr = nil
	res = e.ProcessInput(context.Background(), 15, BtnConfirmFinal)
	if res.Kind != KindSuccess {
		t.Errorf("expected retry to succeed, got %s", res.Kind)
	}
}

func TestConfirmDatesRequiresExactSentinel(t *testing.T) {
	e, _, _, sessions := newTestEngine()
	e.Start(context.Background(), 16)
	advance(t, e, 16, "к1", "к1/1", "Иванов И.И.", futureDate(1), futureDate(2))

	for _, almost := range []string{"Подтвердить", "✅ подтвердить", "✅ Подтвердить "} {
		e.ProcessInput(context.Background(), 16, almost)
		if sessions.Get(16).Step != domain.StepConfirmDates {
			t.Fatalf("near-miss sentinel %q advanced the workflow", almost)
		}
	}
}

func TestStartWithEmptyDirectory(t *testing.T) {
	sessions := session.NewStore()
	e := NewEngine(sessions, emptyDirectory{}, newMockVisitorRepo(), nil, nil)

	res := e.Start(context.Background(), 17)
	if res.Kind != KindError {
		t.Fatalf("expected error, got %s", res.Kind)
	}
	if sessions.Get(17) != nil {
		t.Error("directory outage must not create a session")
	}
}

func TestConflictCheckFailureKeepsState(t *testing.T) {
	e, repo, _, sessions := newTestEngine()
	e.Start(context.Background(), 18)
	advance(t, e, 18, "к1", "к1/1", "Иванов И.И.", futureDate(1), futureDate(2))

	repo.queryErr = context.DeadlineExceeded
	res := e.ProcessInput(context.Background(), 18, BtnConfirmDates)
	if res.Kind != KindError {
		t.Fatalf("expected error result, got %s", res.Kind)
	}
	if sessions.Get(18).Step != domain.StepConfirmDates {
		t.Errorf("storage outage must not move the step, got %s", sessions.Get(18).Step)
	}

	// Recovered storage lets the same confirm go through.
	repo.queryErr = nil
	res = e.ProcessInput(context.Background(), 18, BtnConfirmDates)
	if res.Kind != KindContinue {
		t.Errorf("expected recovery, got %s", res.Kind)
	}
}

func TestProcessInputWithoutSession(t *testing.T) {
	e, _, _, _ := newTestEngine()
	res := e.ProcessInput(context.Background(), 99, "привет")
	if res.Kind != KindError {
		t.Errorf("expected error for unknown session, got %s", res.Kind)
	}
}
