package workflow

import (
	"fmt"
	"strings"

	"github.com/svaboev-coder/Tornado-cooking/internal/domain"
)

// Button labels. Sentinel comparison is exact-string, never prefix or fuzzy.
const (
	BtnCancel       = "❌ Отмена"
	BtnBack         = "🔙 Назад к корпусам"
	BtnConfirmDates = "✅ Подтвердить"
	BtnChangeDates  = "📅 Изменить даты"
	BtnChangeRoom   = "🏨 Изменить номер"
	BtnConfirmFinal = "✅ Подтвердить регистрацию"
	BtnZeroMeals    = domain.ZeroMealsInput
)

const (
	msgCanceled       = "❌ Регистрация отменена."
	msgNoBuildings    = "❌ Не удалось получить список корпусов. Попробуйте позже."
	msgPickBuilding   = "❌ Выберите корпус из списка:"
	msgNameTooShort   = "❌ Имя должно содержать минимум 2 символа. Попробуйте снова:"
	msgBadDateFormat  = "❌ Неверный формат даты. Используйте формат ДД.ММ.ГГГГ:"
	msgPastStartDate  = "❌ Дата начала не может быть в прошлом. Введите корректную дату:"
	msgEndBeforeStart = "❌ Дата окончания должна быть позже даты начала. Попробуйте снова:"
	msgStorageDown    = "❌ Ошибка при сохранении данных. Попробуйте позже."
	msgUnknownStep    = "❓ Неизвестная команда. Используйте /start для начала регистрации."

	msgMealsWrongCount = "❌ Неверный формат ввода!\n\n" +
		"Введите ровно 6 чисел через пробел:\n" +
		"взрослые завтрак, дети завтрак, взрослые обед, дети обед, взрослые ужин, дети ужин\n\n" +
		"Пример: 2 1 2 1 2 0"
	msgMealsNotNumbers = "❌ Неверный формат ввода!\n\n" +
		"Введите только числа через пробел.\n" +
		"Пример: 2 1 2 1 2 0"
	msgMealsNegative = "❌ Количество не может быть отрицательным. Введите корректные числа:"
)

func buildingPrompt(buildings []string) (string, []string) {
	text := "🏨 Регистрация на питание\n\n" +
		"Шаг 1 из 6: Выбор корпуса\n\n" +
		"Выберите корпус:"
	return text, append(append([]string{}, buildings...), BtnCancel)
}

func roomPrompt(building string, roomIDs []domain.RoomID) (string, []string) {
	text := fmt.Sprintf("✅ Выбран корпус: %s\n\n", building) +
		"Шаг 1 из 6: Выбор номера\n\n" +
		fmt.Sprintf("Выберите номер в корпусе %s:", building)

	choices := make([]string, 0, len(roomIDs)+2)
	for _, r := range roomIDs {
		choices = append(choices, string(r))
	}
	return text, append(choices, BtnBack, BtnCancel)
}

func namePrompt(room domain.RoomID) (string, []string) {
	text := fmt.Sprintf("✅ Выбран номер: %s\n\n", room) +
		"Шаг 2 из 6: Ввод имени\n\n" +
		"Введите ваше полное имя (ФИО):"
	return text, []string{BtnCancel}
}

func startDatePrompt(name string) (string, []string) {
	text := fmt.Sprintf("✅ Имя: %s\n\n", name) +
		"Шаг 3 из 6: Даты размещения\n\n" +
		"Введите дату начала размещения в формате ДД.ММ.ГГГГ\n" +
		"Например: 25.08.2024"
	return text, []string{BtnCancel}
}

func retryDatesPrompt() (string, []string) {
	text := "📅 Ввод дат размещения\n\n" +
		"Введите дату начала размещения в формате ДД.ММ.ГГГГ\n" +
		"Например: 25.08.2024\n\n" +
		"⚠️ Убедитесь, что выбранные даты не пересекаются с существующими записями."
	return text, []string{BtnCancel}
}

func endDatePrompt(start string) (string, []string) {
	text := fmt.Sprintf("✅ Дата начала: %s\n\n", start) +
		"Теперь введите дату окончания размещения в формате ДД.ММ.ГГГГ\n" +
		"Например: 30.08.2024"
	return text, []string{BtnCancel}
}

func confirmDatesPrompt(d *domain.Draft) (string, []string) {
	text := fmt.Sprintf("✅ Дата окончания: %s\n\n", domain.FormatInputDate(d.EndDate)) +
		"📅 Период размещения:\n" +
		fmt.Sprintf("С %s по %s\n", domain.FormatInputDate(d.StartDate), domain.FormatInputDate(d.EndDate)) +
		fmt.Sprintf("Всего дней: %d\n\n", d.Days()) +
		"Подтвердите даты или начните заново:"
	return text, []string{BtnConfirmDates, BtnCancel}
}

func conflictPrompt(d *domain.Draft) (string, []string) {
	var b strings.Builder
	b.WriteString("⚠️ Обнаружены конфликты с существующими записями:\n\n")
	fmt.Fprintf(&b, "🏨 Номер: %s\n", d.Room)
	fmt.Fprintf(&b, "📅 Период: %s - %s\n\n",
		domain.FormatInputDate(d.StartDate), domain.FormatInputDate(d.EndDate))
	b.WriteString("📋 Существующие записи в этом периоде:\n")
	for _, c := range d.Conflicts {
		fmt.Fprintf(&b, "• %s - %s\n", domain.FormatInputDate(c.Date), c.Name)
	}
	b.WriteString("\n❌ Регистрация невозможна из-за пересечения дат.\n")
	b.WriteString("Пожалуйста, выберите другой период или номер.")
	return b.String(), conflictChoices()
}

func conflictChoices() []string {
	return []string{BtnChangeDates, BtnChangeRoom, BtnCancel}
}

func conflictRetryPrompt() (string, []string) {
	return fmt.Sprintf("❌ Выберите '%s', '%s' или '%s':", BtnChangeDates, BtnChangeRoom, BtnCancel),
		conflictChoices()
}

func firstMealsPrompt(d *domain.Draft) (string, []string) {
	date := d.DateRange[0]
	text := "✅ Даты подтверждены без конфликтов!\n\n" +
		"Шаг 4 из 6: Информация о питании\n\n" +
		fmt.Sprintf("📅 День 1 из %d\n", d.Days()) +
		fmt.Sprintf("Дата: %s\n\n", domain.FormatInputDate(date)) +
		"Введите количество людей на каждый прием пищи для этого дня.\n\n" +
		"Формат ввода: 6 чисел через пробел\n" +
		"Порядок: взрослые завтрак, дети завтрак, взрослые обед, дети обед, взрослые ужин, дети ужин\n\n" +
		"Пример: 2 1 2 1 2 0\n" +
		"(2 взрослых и 1 ребенок на завтрак, 2 взрослых и 1 ребенок на обед, 2 взрослых и 0 детей на ужин)\n\n" +
		"Введите данные:"
	return text, []string{BtnZeroMeals, BtnCancel}
}

func daySummary(date string, m domain.MealCounts) string {
	return fmt.Sprintf("✅ Данные для %s сохранены:\n", date) +
		fmt.Sprintf("• Завтрак: %d взрослых, %d детей\n", m.BreakfastAdults, m.BreakfastChildren) +
		fmt.Sprintf("• Обед: %d взрослых, %d детей\n", m.LunchAdults, m.LunchChildren) +
		fmt.Sprintf("• Ужин: %d взрослых, %d детей\n", m.DinnerAdults, m.DinnerChildren)
}

func nextDayPrompt(d *domain.Draft, savedDay int) (string, []string) {
	saved := d.DateRange[savedDay]
	next := d.DateRange[savedDay+1]
	text := daySummary(domain.FormatInputDate(saved), d.MealsFor(saved)) + "\n" +
		fmt.Sprintf("📅 День %d из %d\n", savedDay+2, d.Days()) +
		fmt.Sprintf("Дата: %s\n\n", domain.FormatInputDate(next)) +
		"Введите количество людей на каждый прием пищи для этого дня.\n\n" +
		"Формат ввода: 6 чисел через пробел\n" +
		"Порядок: взрослые завтрак, дети завтрак, взрослые обед, дети обед, взрослые ужин, дети ужин\n\n" +
		"Пример: 2 1 2 1 2 0\n" +
		"Введите данные:"
	return text, []string{BtnZeroMeals, BtnCancel}
}

func registrationSummary(d *domain.Draft) (string, []string) {
	var b strings.Builder
	b.WriteString("📋 Сводка регистрации:\n\n")
	fmt.Fprintf(&b, "🏨 Номер: %s\n", d.Room)
	fmt.Fprintf(&b, "👤 Имя: %s\n", d.Name)
	fmt.Fprintf(&b, "📅 Период: %s - %s\n",
		domain.FormatInputDate(d.StartDate), domain.FormatInputDate(d.EndDate))
	fmt.Fprintf(&b, "📊 Дней: %d\n\n", d.Days())
	b.WriteString("🍽️ Питание по дням:\n")

	for i, date := range d.DateRange {
		m := d.MealsFor(date)
		fmt.Fprintf(&b, "\n📅 День %d (%s):\n", i+1, domain.FormatInputDate(date))
		fmt.Fprintf(&b, "• Завтрак: %d взрослых, %d детей\n", m.BreakfastAdults, m.BreakfastChildren)
		fmt.Fprintf(&b, "• Обед: %d взрослых, %d детей\n", m.LunchAdults, m.LunchChildren)
		fmt.Fprintf(&b, "• Ужин: %d взрослых, %d детей\n", m.DinnerAdults, m.DinnerChildren)
	}

	b.WriteString("\nПодтвердите регистрацию:")
	return b.String(), []string{BtnConfirmFinal, BtnCancel}
}

func finalRetryPrompt() (string, []string) {
	return fmt.Sprintf("❌ Выберите '%s' или '%s':", BtnConfirmFinal, BtnCancel),
		[]string{BtnConfirmFinal, BtnCancel}
}

func successPrompt() string {
	return "🎉 Регистрация успешно завершена!\n\n" +
		"Ваши данные сохранены в базе данных.\n" +
		"Спасибо!"
}
