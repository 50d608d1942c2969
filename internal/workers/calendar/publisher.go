package calendar

import (
	"context"

	"calendarbot/internal/calendar"
	"calendarbot/internal/metrics"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
	"calendarbot/pkg/telegram"
)

// Service is the part of calendar.Service the workers use
type Service interface {
	Events(ctx context.Context, q calendar.Query) (calendar.Result, error)
	Chunks(result calendar.Result, opts calendar.FormatOptions) []string
}

// Publisher resolves a query and delivers it to one Telegram chat
type Publisher struct {
	service Service
	sender  telegram.Sender
	chatID  string
	query   calendar.Query
	format  calendar.FormatOptions
	log     *logger.Logger
}

// PublisherConfig holds the defaults applied to every published query.
// Query.Days and Query.Span are set per call.
type PublisherConfig struct {
	Service Service
	Sender  telegram.Sender
	ChatID  string
	Query   calendar.Query
	Format  calendar.FormatOptions
}

// NewPublisher creates a publisher
func NewPublisher(cfg PublisherConfig) *Publisher {
	return &Publisher{
		service: cfg.Service,
		sender:  cfg.Sender,
		chatID:  cfg.ChatID,
		query:   cfg.Query,
		format:  cfg.Format,
		log:     logger.Get().With("component", "calendar_publisher", "chat_id", cfg.ChatID),
	}
}

// PublishDays sends the calendar for the day at offset days from today
func (p *Publisher) PublishDays(ctx context.Context, days int) (int, error) {
	q := p.query
	q.Days = days
	q.Span = 1

	result, err := p.service.Events(ctx, q)
	if err != nil {
		return 0, errors.Wrapf(err, "resolve calendar for day offset %d", days)
	}

	chunks := p.service.Chunks(result, p.format)
	return p.Send(ctx, chunks...)
}

// Send delivers pre-rendered HTML messages
func (p *Publisher) Send(ctx context.Context, messages ...string) (int, error) {
	sent, err := telegram.Deliver(ctx, p.sender, p.chatID, messages)
	metrics.RecordTelegramSend(sent, err)
	if err != nil {
		return sent, errors.Wrap(err, "deliver calendar")
	}
	return sent, nil
}
