// Package telegram дублирует операции HTTP API командами Telegram бота
package telegram

import (
	"context"

	"github.com/Freeeeeet/classroom_api/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// RelationshipService операции над связями, доступные из бота
type RelationshipService interface {
	Register(ctx context.Context, teacherEmail string, studentEmails []string) error
	CommonStudents(ctx context.Context, teacherEmails ...string) ([]string, error)
	Suspend(ctx context.Context, studentEmail string) (bool, error)
	NotificationRecipients(ctx context.Context, teacherEmail, notification string) ([]string, error)
	StudentTeachers(ctx context.Context, studentEmail string) ([]string, error)
}

type StatisticsService interface {
	Statistics(ctx context.Context) (*model.Statistics, error)
}

type BotController struct {
	bot           *bot.Bot
	relationships RelationshipService
	stats         StatisticsService
	logger        *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	relationships RelationshipService,
	stats StatisticsService,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:           botInstance,
		relationships: relationships,
		stats:         stats,
		logger:        logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	commands := map[string]commandFunc{
		"start":    c.help,
		"help":     c.help,
		"register": c.register,
		"common":   c.common,
		"suspend":  c.suspend,
		"notify":   c.notify,
		"teachers": c.teachers,
		"stats":    c.statistics,
	}
	for name, fn := range commands {
		c.bot.RegisterHandlerMatchFunc(matchCommand(name), c.handle(fn))
	}

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "register", Description: "📝 Зарегистрировать студентов у учителя"},
		{Command: "common", Description: "👥 Общие студенты учителей"},
		{Command: "suspend", Description: "⛔ Заблокировать студента"},
		{Command: "notify", Description: "📣 Получатели уведомления"},
		{Command: "teachers", Description: "🎓 Учителя студента"},
		{Command: "stats", Description: "📊 Статистика"},
		{Command: "help", Description: "❓ Справка по командам"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота и блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}

// matchCommand совпадает с "/name" и "/name@bot" с аргументами или без
func matchCommand(name string) bot.MatchFunc {
	return func(update *models.Update) bool {
		if update.Message == nil {
			return false
		}
		command, _ := parseCommand(update.Message.Text)
		return command == name
	}
}

// handle превращает команду в обработчик бота
func (c *BotController) handle(fn commandFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}

		_, args := parseCommand(update.Message.Text)
		c.send(ctx, b, update.Message.Chat.ID, fn(ctx, args))
	}
}

// send отправляет ответ и логирует если не удалось
func (c *BotController) send(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		c.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
