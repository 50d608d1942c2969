package calendar

import (
	"context"
	"time"

	domain "calendarbot/internal/domain/calendar"
	"calendarbot/internal/workers"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/templates"
)

// WeeklyDays is the number of consecutive days sent by one weekly run
const WeeklyDays = 5

// WeeklyUpdateWorker posts the coming working week, one message set per day
type WeeklyUpdateWorker struct {
	*workers.BaseWorker
	publisher  *Publisher
	location   *time.Location
	pause      time.Duration
	currencies []string
	now        func() time.Time
}

// NewWeeklyUpdateWorker creates the weekly worker; pause separates the daily sends
func NewWeeklyUpdateWorker(publisher *Publisher, loc *time.Location, interval, pause time.Duration, enabled bool) *WeeklyUpdateWorker {
	currencies := publisher.query.Currencies
	if len(currencies) == 0 && !publisher.query.AllCurrencies {
		currencies = domain.MajorCurrencies
	}

	return &WeeklyUpdateWorker{
		BaseWorker: workers.NewBaseWorker("calendar_weekly_update", interval, enabled),
		publisher:  publisher,
		location:   loc,
		pause:      pause,
		currencies: currencies,
		now:        time.Now,
	}
}

// Run sends an intro and then days 0..WeeklyDays-1. A failed day is logged
// and the remaining days are still attempted.
func (w *WeeklyUpdateWorker) Run(ctx context.Context) error {
	today := w.now().In(w.location)

	intro, err := templates.Get().Render("notifications/weekly_intro", map[string]any{
		"From":       today.Format("Mon 02 Jan"),
		"To":         today.AddDate(0, 0, WeeklyDays-1).Format("Mon 02 Jan 2006"),
		"Currencies": w.currencies,
	})
	if err != nil {
		return errors.Wrap(err, "render weekly intro")
	}
	if _, err := w.publisher.Send(ctx, intro); err != nil {
		return err
	}

	failures := &errors.MultiError{}
	for day := 0; day < WeeklyDays; day++ {
		if err := workers.Pause(ctx, w.pause); err != nil {
			return errors.Wrap(err, "weekly update cancelled")
		}

		sent, err := w.publisher.PublishDays(ctx, day)
		if err != nil {
			w.Log().Warnw("Failed to send weekly day", "day_offset", day, "error", err)
			failures.Add(err)
			continue
		}
		w.Log().Debugw("Weekly day sent", "day_offset", day, "messages", sent)
	}

	if failures.HasErrors() {
		return failures.ToError()
	}

	w.Log().Infow("Weekly calendar sent", "days", WeeklyDays)
	return nil
}
