package calendar

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "calendarbot/internal/domain/calendar"
	"calendarbot/internal/metrics"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

const labelLayout = "Monday, January 2, 2006"

// Provider is a source that also knows how its records normalize
type Provider interface {
	domain.Source
	Schema() Schema
}

// FallbackProvider can produce estimated records when nothing else is available
type FallbackProvider interface {
	Provider
	Fallback(day time.Time, currencies []string) []domain.RawRecord
}

// Enricher adds commentary to events; on error it returns the input unchanged
type Enricher interface {
	Enrich(ctx context.Context, events []domain.Event) ([]domain.Event, error)
}

// ServiceConfig wires the service dependencies. Store and Enricher are optional.
type ServiceConfig struct {
	Location  *time.Location
	Providers []Provider
	Store     domain.Store
	Enricher  Enricher
}

// Service resolves calendar queries through cache, live sources and fallbacks
type Service struct {
	location  *time.Location
	providers []Provider
	store     domain.Store
	enricher  Enricher
	formatter *Formatter
	now       func() time.Time
	log       *logger.Logger
}

// NewService creates the calendar service
func NewService(cfg ServiceConfig) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	s := &Service{
		location:  cfg.Location,
		providers: cfg.Providers,
		store:     cfg.Store,
		enricher:  cfg.Enricher,
		formatter: NewFormatter(cfg.Location),
		now:       time.Now,
		log:       logger.Get().With("component", "calendar_service"),
	}
	s.formatter.Now = func() time.Time { return s.now() }
	return s
}

// Query selects the days and events to return
type Query struct {
	// Days is the offset of the first day from today (0 = today)
	Days int
	// Span is the number of consecutive days; zero means 1
	Span int
	// Currencies overrides the allow-list; empty means the majors
	Currencies    []string
	AllCurrencies bool
	MinImpact     domain.Impact
	// Source restricts live fetching and cache reuse to one provider
	Source string
	// SkipPassed drops today's events that already happened
	SkipPassed bool
	Enrich     bool
}

// Result is the outcome of one query
type Result struct {
	Events    []domain.Event
	Source    string
	FromCache bool
	Estimated bool
	RunID     string
	Dates     []string
}

// Events resolves q. Source failures never surface: the service falls back to
// stale cache and then to synthetic data, so the only errors are cancellations.
func (s *Service) Events(ctx context.Context, q Query) (Result, error) {
	if q.Span <= 0 {
		q.Span = 1
	}

	result := Result{RunID: uuid.NewString()}
	log := s.log.With("run_id", result.RunID)

	now := s.now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)

	var sources []string
	for i := 0; i < q.Span; i++ {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, "calendar query cancelled")
		}

		day := today.AddDate(0, 0, q.Days+i)
		date := day.Format(domain.DateLayout)

		snap, fromCache := s.resolveDay(ctx, log, day, q.Source)
		if fromCache {
			result.FromCache = true
		}
		sources = appendUnique(sources, snap.Source)
		result.Dates = append(result.Dates, date)

		opts := FilterOptions{
			MinImpact:  q.MinImpact,
			Currencies: s.allowList(q),
			TodayOnly:  true,
			Today:      date,
		}
		if q.Days == 0 && i == 0 && q.SkipPassed {
			opts.After = now.Format(domain.TimeLayout)
		}

		for _, ev := range FilterAndSort(snap.Events, opts) {
			if ev.Estimated {
				result.Estimated = true
			}
			result.Events = append(result.Events, ev)
		}
	}
	result.Source = strings.Join(sources, ",")

	if q.Enrich && s.enricher != nil && len(result.Events) > 0 {
		enriched, err := s.enricher.Enrich(ctx, result.Events)
		if err != nil {
			log.Warnw("Enrichment failed, continuing without it", "error", err)
		} else {
			result.Events = enriched
		}
	}

	log.Infow("Calendar query resolved",
		"dates", result.Dates,
		"events", len(result.Events),
		"source", result.Source,
		"from_cache", result.FromCache,
		"estimated", result.Estimated,
	)
	return result, nil
}

// resolveDay returns the unfiltered snapshot for day. The bool reports a cache hit.
func (s *Service) resolveDay(ctx context.Context, log *logger.Logger, day time.Time, only string) (domain.Snapshot, bool) {
	date := day.Format(domain.DateLayout)

	if s.store != nil {
		snap, err := s.store.Load(ctx, date)
		switch {
		case err == nil && (only == "" || snap.Source == only):
			log.Debugw("Using cached snapshot", "date", date, "source", snap.Source)
			return snap, true
		case err != nil && !errors.Is(err, errors.ErrNotFound) && !errors.Is(err, errors.ErrStale):
			log.Warnw("Cache lookup failed", "date", date, "error", err)
		}
	}

	if snap, ok := s.fetchLive(ctx, log, day, only); ok {
		if s.store != nil {
			if err := s.store.Save(ctx, snap, RenderLegacyText(snap, s.location.String())); err != nil {
				log.Warnw("Failed to save snapshot", "date", date, "error", err)
			}
		}
		return snap, false
	}

	if s.store != nil {
		for _, d := range []time.Time{day, day.AddDate(0, 0, -1)} {
			snap, err := s.store.LoadAny(ctx, d.Format(domain.DateLayout))
			if err != nil || (only != "" && snap.Source != only) {
				continue
			}
			// a snapshot spanning midnight may still hold events for date
			if len(FilterAndSort(snap.Events, FilterOptions{TodayOnly: true, Today: date})) == 0 {
				continue
			}
			metrics.RecordFallback("stale_cache")
			log.Warnw("All sources failed, using stale cache", "date", date, "cached_date", snap.Date)
			return snap, true
		}
	}

	return s.synthesize(log, day, only), false
}

func (s *Service) fetchLive(ctx context.Context, log *logger.Logger, day time.Time, only string) (domain.Snapshot, bool) {
	r := domain.Range{
		From:       day,
		To:         day,
		Currencies: append(append([]string{}, domain.MajorCurrencies...), domain.ExtraCurrencies...),
	}

	for _, p := range s.providers {
		if only != "" && p.Name() != only {
			continue
		}

		records, err := p.Fetch(ctx, r)
		if err != nil {
			log.Warnw("Source failed", "source", p.Name(), "error", err)
			continue
		}

		events, dropped := NormalizeAll(records, p.Schema(), s.location)
		metrics.RecordNormalization(p.Name(), len(events), dropped)
		if len(events) == 0 {
			log.Infow("Source returned no events", "source", p.Name(), "raw", len(records), "dropped", dropped)
			continue
		}

		return domain.Snapshot{
			Date:      day.Format(domain.DateLayout),
			Label:     day.Format(labelLayout),
			Source:    p.Name(),
			FetchedAt: s.now(),
			Events:    events,
		}, true
	}

	return domain.Snapshot{}, false
}

// synthesize walks the providers from last to first and uses the first fallback.
// With only set, just that provider's fallback is considered.
func (s *Service) synthesize(log *logger.Logger, day time.Time, only string) domain.Snapshot {
	snap := domain.Snapshot{
		Date:      day.Format(domain.DateLayout),
		Label:     day.Format(labelLayout),
		FetchedAt: s.now(),
	}

	currencies := append(append([]string{}, domain.MajorCurrencies...), domain.ExtraCurrencies...)
	for i := len(s.providers) - 1; i >= 0; i-- {
		fp, ok := s.providers[i].(FallbackProvider)
		if !ok || (only != "" && fp.Name() != only) {
			continue
		}
		events, _ := NormalizeAll(fp.Fallback(day, currencies), fp.Schema(), s.location)
		if len(events) == 0 {
			continue
		}
		metrics.RecordFallback("synthetic")
		log.Warnw("Using estimated fallback events", "date", snap.Date, "source", fp.Name(), "count", len(events))
		snap.Source = fp.Name()
		snap.Events = events
		return snap
	}

	log.Errorw("No events available from any source", "date", snap.Date)
	return snap
}

func (s *Service) allowList(q Query) []string {
	if q.AllCurrencies {
		return nil
	}
	if len(q.Currencies) > 0 {
		return q.Currencies
	}
	return domain.MajorCurrencies
}

// Render formats a result
func (s *Service) Render(result Result, opts FormatOptions) string {
	return s.formatter.Format(result.Events, withQueryDate(result, opts))
}

// Chunks renders a result for Telegram and splits it into sendable messages
func (s *Service) Chunks(result Result, opts FormatOptions) []string {
	opts.Target = TargetTelegram
	return SplitForTelegram(s.formatter.Format(result.Events, withQueryDate(result, opts)))
}

func withQueryDate(result Result, opts FormatOptions) FormatOptions {
	if opts.Date == "" && len(result.Dates) > 0 {
		opts.Date = result.Dates[0]
	}
	return opts
}

// InstrumentCalendar renders the events affecting one trading instrument
func (s *Service) InstrumentCalendar(ctx context.Context, instrument string, q Query) (string, error) {
	instrument = strings.ToUpper(strings.TrimSpace(instrument))
	if instrument == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "instrument is required")
	}

	q.Currencies = InstrumentCurrencies(instrument)
	q.AllCurrencies = false

	result, err := s.Events(ctx, q)
	if err != nil {
		return "", err
	}
	return FormatInstrument(instrument, q.Currencies, result.Events)
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
