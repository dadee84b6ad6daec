package flow

import (
	"fmt"
	"strings"
	"time"

	"school-test-bot/internal/domain"
	"school-test-bot/internal/quiz"
)

const (
	msgAuthRequest = "👤 *Авторизация ученика*\n\n" +
		"Введите ваши данные в формате:\n`Фамилия Имя Класс`\n\n" +
		"*Пример:*\n`Иванов Иван 7`\n\n_Класс указывать обязательно (7-11)_"

	msgAuthBadClass = "❌ *Класс должен быть числом от 7 до 11*\n\nПопробуйте еще раз:"

	msgAuthBadFormat = "❌ *Неверный формат*\n\nВведите: `Фамилия Имя Класс`\n\nПример: `Иванов Иван 7`"

	msgAuthNotFound = "❌ *Ученик не найден*\n\nПроверьте:\n" +
		"1. Правильность Фамилии и Имени\n2. Правильность класса (7-11)\n3. Попробуйте еще раз\n\n" +
		"Пример: `Иванов Иван 7`"

	msgUseButtons = "⚠️ *Используйте кнопки для ответа!*\n\nДля отмены теста используйте /cancel"

	msgTestCancelled = "✅ *Тест отменен.*\n\nВсе сообщения теста удалены."

	msgNoTestToCancel = "❌ *Нет активного теста для отмены.*"

	msgCodeTooShort = "❌ *Код теста слишком короткий*\n\n" +
		"Код теста должен содержать минимум 4 символа.\nПроверьте правильность ввода."

	msgCodeBadChars = "❌ *Недопустимые символы в коде теста*\n\n" +
		"Код теста должен содержать только буквы и цифры.\nПроверьте правильность ввода."

	msgSessionLost = "❌ Сессия теста не найдена"

	msgCorrect = "✅ *ПРАВИЛЬНО!* 🎯\n\n🎉 Отличная работа! Продолжайте в том же духе!"

	msgIncorrect = "❌ *НЕПРАВИЛЬНО* 💥\n\n💡 Не расстраивайтесь! Следующий вопрос будет лучше!"

	msgBackToMenu = "🔄 *Возвращаемся в главное меню...*"
)

var mainMenuRows = [][]string{
	{"📝 Начать тест", "📋 Список тестов"},
	{"📊 Мои результаты", "🆘 Помощь"},
	{"👤 Сменить профиль"},
}

func mainMenuText(student domain.Student, now time.Time) string {
	return fmt.Sprintf(`🎓 *Добро пожаловать в школьную систему тестирования!*

👤 *Ученик:* %s %s
🏫 *Класс:* %s | 🆔 ID: %d
📅 *Сегодня:* %s

👇 *Выберите действие:*`,
		EscapeMarkdown(student.FirstName), EscapeMarkdown(student.LastName),
		student.Class, student.ID,
		now.Format("02.01.2006"))
}

func helpText(website string) string {
	return fmt.Sprintf(`🆘 *Помощь и поддержка*

🌐 *Официальный сайт:* %s

*Основные команды:*
/start - Главное меню
/help - Эта справка
/cancel - Отменить текущий тест

*Процесс тестирования:*
1. Выберите "Начать тест"
2. Пришлите код теста (например: ttii7)
3. Пройдите вопросы теста (используйте кнопки под сообщением)
4. Получите результат

*Если возникли проблемы:*
- Проверьте правильность ввода кода теста
- Убедитесь в стабильности интернет-соединения
- Используйте кнопки для ответов, не пишите текст`, website)
}

func testListText(entries []domain.CatalogEntry) string {
	var b strings.Builder
	b.WriteString("📋 *Доступные тесты:*\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "🎯 *%s*\n📝 %s\n\n", e.Code, e.Title)
	}
	b.WriteString("Для начала теста введите его код или нажмите \"Начать тест\"")
	return b.String()
}

func testChoiceText(entries []domain.CatalogEntry) string {
	numbers := []string{"❶", "❷", "❸", "❹", "❺"}
	var cards strings.Builder
	for i, e := range entries {
		marker := "•"
		if i < len(numbers) {
			marker = numbers[i]
		}
		fmt.Fprintf(&cards, "\n%s *%s*\n   📝 %s\n   🔤 *Код:* `%s`\n   ────────────\n",
			marker, strings.ToUpper(e.Code), e.Title, e.Code)
	}
	return fmt.Sprintf("📚 *ВЫБОР ТЕСТА*\n\nДоступные тесты:\n%s\n📝 *Введите код теста* (например: `ttii7`)\n_Или выберите из списка выше_", cards.String())
}

func testNotFoundText(code string, similar, all []domain.CatalogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ *Тест \"%s\" не найден*\n\n", code)
	if len(similar) > 0 {
		b.WriteString("*Возможно, вы имели в виду:*\n")
		for _, e := range similar {
			fmt.Fprintf(&b, "• `%s` - %s\n", e.Code, e.Title)
		}
		b.WriteString("\nПроверьте правильность написания кода.")
	} else {
		b.WriteString("*Доступные тесты:*\n")
		for _, e := range all {
			fmt.Fprintf(&b, "• `%s` - %s\n", e.Code, e.Title)
		}
		b.WriteString("\nВведите код теста точно как указано выше.")
	}
	return b.String()
}

func questionText(view quiz.QuestionView) string {
	difficultyIcon, difficultyText := "🟢", "Вопрос (1 балл)"
	if view.Points == 3 {
		difficultyIcon, difficultyText = "🔴", "Задача (3 балла)"
	}
	return fmt.Sprintf(`%s *%s*

📊 *Прогресс:* %d/%d
%s

─────────────
📝 *Вопрос %d:*

%s

─────────────
*Выберите правильный ответ:*`,
		difficultyIcon, difficultyText,
		view.Number, view.Total,
		ProgressBar(view.Number, view.Total),
		view.Number,
		FormatQuestionText(view.Text))
}

func resultText(result domain.TestResult) string {
	percent := 0
	if result.MaxScore > 0 {
		percent = result.Score * 100 / result.MaxScore
	}

	var motivation string
	switch {
	case percent >= 90:
		motivation = "🏆 *Блестящий результат!* Вы настоящий эксперт!"
	case percent >= 75:
		motivation = "🎯 *Отличная работа!* Вы хорошо знаете материал!"
	case percent >= 60:
		motivation = "👍 *Хорошо!* Есть куда расти!"
	default:
		motivation = "💪 *Продолжайте учиться!* У вас все получится!"
	}

	return fmt.Sprintf(`🎉 *ТЕСТ ЗАВЕРШЕН!*

%s

📊 *ВАШИ РЕЗУЛЬТАТЫ:*
%s %d%%

👤 Ученик: %s %s
🏫 Класс: %s
⏱️ Время: %s

🎯 Баллы: *%d из %d*
📈 Оценка: %s (%d/5)

📖 Вопросы: ✅ %d
📐 Задачи: ✅ %d

_Через несколько секунд вернемся в меню..._`,
		motivation,
		ScoreBar(percent), percent,
		EscapeMarkdown(result.Student.LastName), EscapeMarkdown(result.Student.FirstName),
		result.Student.Class,
		FormatDuration(result.Duration/60),
		result.Score, result.MaxScore,
		GradeStars(result.Grade), result.Grade,
		result.CorrectQuestions, result.CorrectProblems)
}
