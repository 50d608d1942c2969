package tgbotapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
	"calendarbot/pkg/telegram"
)

// Bot is a send-only Telegram client implementing telegram.Sender
type Bot struct {
	api         *tgbotapi.BotAPI
	log         *logger.Logger
	rateLimiter *rate.Limiter
}

// Config contains Telegram bot configuration
type Config struct {
	Token          string
	Endpoint       string // Bot API endpoint format, defaults to tgbotapi.APIEndpoint
	Debug          bool
	HTTPTimeout    time.Duration
	RateLimitBurst int // Rate limiter burst (default: 1)
	RateLimitRate  int // Rate limiter per second (default: 1)
}

// NewBot creates a bot and verifies the token with getMe
func NewBot(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "telegram bot token is required")
	}

	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 1
	}
	if cfg.RateLimitRate == 0 {
		cfg.RateLimitRate = 1
	}

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}
	api.Debug = cfg.Debug

	log := logger.Get().With("component", "telegram_bot")
	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:         api,
		log:         log,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRate), cfg.RateLimitBurst),
	}, nil
}

// SendHTML sends text with HTML parse mode and link previews disabled
func (b *Bot) SendHTML(ctx context.Context, chatID string, text string) error {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter wait failed")
	}

	msg, err := newMessage(chatID, text)
	if err != nil {
		return err
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := b.api.Send(msg); err != nil {
		return errors.Wrapf(err, "failed to send message to %s", chatID)
	}

	return nil
}

// DeleteWebhook removes webhook configuration
func (b *Bot) DeleteWebhook(ctx context.Context, dropPendingUpdates bool) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPendingUpdates}); err != nil {
		return errors.Wrap(err, "failed to delete webhook")
	}

	b.log.Debugw("Webhook deleted", "drop_pending_updates", dropPendingUpdates)
	return nil
}

// GetWebhookInfo returns current webhook status
func (b *Bot) GetWebhookInfo(ctx context.Context) (telegram.WebhookInfo, error) {
	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return telegram.WebhookInfo{}, errors.Wrap(err, "failed to get webhook info")
	}

	return telegram.WebhookInfo{
		URL:                  info.URL,
		HasCustomCertificate: info.HasCustomCertificate,
		PendingUpdateCount:   info.PendingUpdateCount,
		LastErrorDate:        info.LastErrorDate,
		LastErrorMessage:     info.LastErrorMessage,
	}, nil
}

// FlushUpdates requests the newest update with a short timeout, which
// terminates any other long-poll session held on this token.
func (b *Bot) FlushUpdates(ctx context.Context) error {
	_, err := b.api.GetUpdates(tgbotapi.UpdateConfig{Offset: -1, Limit: 1, Timeout: 1})
	if err != nil {
		return errors.Wrap(err, "failed to flush updates")
	}
	return nil
}

func newMessage(chatID string, text string) (tgbotapi.MessageConfig, error) {
	chatID = strings.TrimSpace(chatID)
	if strings.HasPrefix(chatID, "@") {
		return tgbotapi.NewMessageToChannel(chatID, text), nil
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return tgbotapi.MessageConfig{}, errors.Wrapf(errors.ErrInvalidInput, "chat id %q", chatID)
	}
	return tgbotapi.NewMessage(id, text), nil
}
