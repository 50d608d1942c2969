package bootstrap

import (
	"calendarbot/internal/calendar"
	domain "calendarbot/internal/domain/calendar"
	"calendarbot/internal/workers"
	calendarworkers "calendarbot/internal/workers/calendar"
	"calendarbot/pkg/errors"
)

// Publisher builds the Telegram publisher used by the update workers and the CLI
func (c *Container) Publisher(q calendar.Query, format calendar.FormatOptions) (*calendarworkers.Publisher, error) {
	sender, err := c.Sender()
	if err != nil {
		return nil, err
	}

	return calendarworkers.NewPublisher(calendarworkers.PublisherConfig{
		Service: c.Service,
		Sender:  sender,
		ChatID:  c.Config.Telegram.ChatID,
		Query:   q,
		Format:  format,
	}), nil
}

// DefaultQuery is the query used by scheduled updates
func (c *Container) DefaultQuery() (calendar.Query, error) {
	minImpact, err := domain.ParseImpact(c.Config.Calendar.MinImpact)
	if err != nil {
		return calendar.Query{}, errors.NewValidationError("CALENDAR_MIN_IMPACT", err.Error(), c.Config.Calendar.MinImpact)
	}
	return calendar.Query{
		MinImpact: minImpact,
		Enrich:    c.Config.AI.EnrichmentEnabled,
	}, nil
}

// NewScheduler registers the daily and weekly update workers
func (c *Container) NewScheduler() (*workers.Scheduler, error) {
	q, err := c.DefaultQuery()
	if err != nil {
		return nil, err
	}
	publisher, err := c.Publisher(q, calendar.FormatOptions{})
	if err != nil {
		return nil, err
	}

	wc := c.Config.Workers
	loc := c.Config.Calendar.Location()

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(calendarworkers.NewDailyUpdateWorker(publisher, loc, wc.DailyInterval, wc.DailyEnabled))
	scheduler.RegisterWorker(calendarworkers.NewWeeklyUpdateWorker(publisher, loc, wc.WeeklyInterval, wc.WeeklyPause, wc.WeeklyEnabled))
	return scheduler, nil
}
