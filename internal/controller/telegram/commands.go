package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/Freeeeeet/classroom_api/internal/service"
	"github.com/Freeeeeet/classroom_api/internal/validation"
	"go.uber.org/zap"
)

// commandFunc получает аргументы команды и возвращает текст ответа
type commandFunc func(ctx context.Context, args string) string

const (
	replyInternalError = "❌ Произошла ошибка. Попробуйте позже."

	helpText = "📚 Справка по командам:\n\n" +
		"/register <учитель> <студент>... - Зарегистрировать студентов\n" +
		"/common <учитель>... - Общие студенты учителей\n" +
		"/suspend <студент> - Заблокировать студента\n" +
		"/notify <учитель> <текст> - Кто получит уведомление\n" +
		"/teachers <студент> - Учителя студента\n" +
		"/stats - Статистика\n" +
		"/help - Показать эту справку\n\n" +
		"Студентов вне класса можно упомянуть в тексте уведомления: @student@example.com"
)

// parseCommand разбирает "/cmd@bot args" на имя команды и остаток строки
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}

	name, args := splitFirst(text)
	name, _, _ = strings.Cut(name[1:], "@")

	return strings.ToLower(name), args
}

// splitFirst отделяет первое слово от остатка строки
func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// invalidEmails возвращает аргументы, которые не похожи на email
func invalidEmails(emails []string) []string {
	var invalid []string
	for _, email := range emails {
		if validation.Email(email) != nil {
			invalid = append(invalid, email)
		}
	}
	return invalid
}

func usage(format string) string {
	return "ℹ️ Использование: " + format
}

func formatList(title string, items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n")
	for _, item := range items {
		sb.WriteString("• ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// errorReply переводит ошибку сервиса в ответ пользователю
func (c *BotController) errorReply(command string, err error) string {
	var notFound *service.NotFoundError
	switch {
	case errors.As(err, &notFound):
		return "❌ " + notFound.Error()
	case errors.Is(err, service.ErrInvalidInput):
		return "❌ Некорректный запрос. Используйте /help"
	default:
		c.logger.Error("Bot command failed", zap.String("command", command), zap.Error(err))
		return replyInternalError
	}
}

func (c *BotController) help(_ context.Context, _ string) string {
	return helpText
}

func (c *BotController) register(ctx context.Context, args string) string {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return usage("/register <учитель> <студент>...")
	}
	if invalid := invalidEmails(fields); len(invalid) > 0 {
		return "❌ Некорректный email: " + strings.Join(invalid, ", ")
	}

	teacher, students := fields[0], fields[1:]
	if err := c.relationships.Register(ctx, teacher, students); err != nil {
		return c.errorReply("register", err)
	}

	return fmt.Sprintf("✅ Студенты зарегистрированы у %s: %s",
		service.NormalizeEmail(teacher),
		strings.Join(service.NormalizeEmails(students), ", "),
	)
}

func (c *BotController) common(ctx context.Context, args string) string {
	teachers := strings.Fields(args)
	if len(teachers) == 0 {
		return usage("/common <учитель>...")
	}
	if invalid := invalidEmails(teachers); len(invalid) > 0 {
		return "❌ Некорректный email: " + strings.Join(invalid, ", ")
	}

	students, err := c.relationships.CommonStudents(ctx, teachers...)
	if err != nil {
		return c.errorReply("common", err)
	}

	return formatList("👥 Общие студенты:", students, "📭 Общих студентов нет")
}

func (c *BotController) suspend(ctx context.Context, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return usage("/suspend <студент>")
	}
	if validation.Email(fields[0]) != nil {
		return "❌ Некорректный email: " + fields[0]
	}

	if _, err := c.relationships.Suspend(ctx, fields[0]); err != nil {
		return c.errorReply("suspend", err)
	}

	return "⛔ Студент " + service.NormalizeEmail(fields[0]) + " заблокирован"
}

func (c *BotController) notify(ctx context.Context, args string) string {
	teacher, notification := splitFirst(args)
	if teacher == "" || notification == "" {
		return usage("/notify <учитель> <текст>")
	}
	if validation.Email(teacher) != nil {
		return "❌ Некорректный email: " + teacher
	}

	recipients, err := c.relationships.NotificationRecipients(ctx, teacher, notification)
	if err != nil {
		return c.errorReply("notify", err)
	}

	return formatList("📣 Получатели:", recipients, "📭 Получателей нет")
}

func (c *BotController) teachers(ctx context.Context, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return usage("/teachers <студент>")
	}
	if validation.Email(fields[0]) != nil {
		return "❌ Некорректный email: " + fields[0]
	}

	teachers, err := c.relationships.StudentTeachers(ctx, fields[0])
	if err != nil {
		return c.errorReply("teachers", err)
	}

	return formatList("🎓 Учителя:", teachers, "📭 Студент ни у кого не зарегистрирован")
}

func (c *BotController) statistics(ctx context.Context, _ string) string {
	stats, err := c.stats.Statistics(ctx)
	if err != nil {
		return c.errorReply("stats", err)
	}

	return fmt.Sprintf(
		"📊 Статистика:\n\n"+
			"Учителей: %d\n"+
			"Студентов: %d\n"+
			"Активных: %d\n"+
			"Заблокированных: %d\n"+
			"Связей: %d",
		stats.TotalTeachers,
		stats.TotalStudents,
		stats.ActiveStudents,
		stats.SuspendedStudents,
		stats.TotalRelationships,
	)
}
