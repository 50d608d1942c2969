package calendar

import (
	"context"
	"time"

	"calendarbot/internal/workers"
)

// DailyCutoffHour switches the daily update from today's calendar to tomorrow's
const DailyCutoffHour = 12

// DailyUpdateWorker posts one day of events per run
type DailyUpdateWorker struct {
	*workers.BaseWorker
	publisher *Publisher
	location  *time.Location
	now       func() time.Time
}

// NewDailyUpdateWorker creates the daily worker
func NewDailyUpdateWorker(publisher *Publisher, loc *time.Location, interval time.Duration, enabled bool) *DailyUpdateWorker {
	return &DailyUpdateWorker{
		BaseWorker: workers.NewBaseWorker("calendar_daily_update", interval, enabled),
		publisher:  publisher,
		location:   loc,
		now:        time.Now,
	}
}

// Run sends today's events in the morning and tomorrow's from noon on
func (w *DailyUpdateWorker) Run(ctx context.Context) error {
	days := w.DayOffset()

	sent, err := w.publisher.PublishDays(ctx, days)
	if err != nil {
		return err
	}

	w.Log().Infow("Daily calendar sent", "day_offset", days, "messages", sent)
	return nil
}

// DayOffset is 0 before DailyCutoffHour local time and 1 after
func (w *DailyUpdateWorker) DayOffset() int {
	if w.now().In(w.location).Hour() < DailyCutoffHour {
		return 0
	}
	return 1
}
