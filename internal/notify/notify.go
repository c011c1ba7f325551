// Package notify delivers short operator alerts such as posted results.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/abrezinsky/zoolo/internal/logger"
)

const queueSize = 64

// Log writes alerts to the application log. It is used when no bot
// token is configured.
type Log struct {
	log logger.Logger
}

// NewLog creates a Log notifier
func NewLog(log logger.Logger) *Log {
	return &Log{log: log}
}

// Notify logs text
func (l *Log) Notify(_ context.Context, text string) {
	l.log.Info("Operator alert", "text", text)
}

// Telegram sends alerts to one Telegram chat. When no chat is configured
// the first chat that sends /start to the bot is used.
type Telegram struct {
	log    logger.Logger
	bot    *tgbotapi.BotAPI
	chatID atomic.Int64
	queue  chan string
}

// NewTelegram connects to the Telegram Bot API with token
func NewTelegram(log logger.Logger, token string, chatID int64) (*Telegram, error) {
	return NewTelegramWithEndpoint(log, token, tgbotapi.APIEndpoint, &http.Client{}, chatID)
}

// NewTelegramWithEndpoint connects to a Bot API compatible endpoint.
// endpoint is a format string taking the token and the method name.
func NewTelegramWithEndpoint(log logger.Logger, token, endpoint string, client *http.Client, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	t := &Telegram{
		log:   log,
		bot:   bot,
		queue: make(chan string, queueSize),
	}
	t.chatID.Store(chatID)
	log.Info("Telegram bot authorized", "account", bot.Self.UserName, "chat_id", chatID)
	return t, nil
}

// ChatID returns the chat receiving alerts, 0 when none is known yet
func (t *Telegram) ChatID() int64 {
	return t.chatID.Load()
}

// Notify queues text for delivery. Alerts are dropped when the queue is
// full so callers never block on the network.
func (t *Telegram) Notify(_ context.Context, text string) {
	select {
	case t.queue <- text:
	default:
		t.log.Warn("Telegram queue full, dropping alert", "text", text)
	}
}

// Run delivers queued alerts and listens for /start until ctx is done
func (t *Telegram) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case text := <-t.queue:
			t.send(text)
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(update)
		}
	}
}

func (t *Telegram) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	if update.Message.Command() != "start" {
		return
	}
	chatID := update.Message.Chat.ID
	if !t.chatID.CompareAndSwap(0, chatID) {
		return
	}
	t.log.Info("Telegram chat registered", "chat_id", chatID)
	t.send(fmt.Sprintf("Chat %d registrado. Recibira los resultados aqui.", chatID))
}

func (t *Telegram) send(text string) {
	chatID := t.chatID.Load()
	if chatID == 0 {
		t.log.Warn("Telegram chat unknown, send /start to the bot", "text", text)
		return
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		t.log.Error("Telegram send failed", "error", err)
	}
}
