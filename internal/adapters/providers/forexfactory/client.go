package forexfactory

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"calendarbot/internal/adapters/providers"
	"calendarbot/internal/calendar"
	domain "calendarbot/internal/domain/calendar"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

const (
	// Name identifies the source in config, cache and metrics
	Name = "forexfactory"

	// DefaultURL is the day view of the ForexFactory calendar
	DefaultURL = "https://www.forexfactory.com/calendar"
)

// Schema maps scraped ForexFactory rows onto events. Times are already in the
// zone requested through the gmt_offset cookie.
var Schema = calendar.Schema{
	Name:          Name,
	CountryField:  "currency",
	ImpactField:   "impact",
	TitleField:    "event",
	ForecastField: "forecast",
	PreviousField: "previous",
	ActualField:   "actual",
	Countries:     currencyCodes(),
	Impacts: map[string]domain.Impact{
		"high":   domain.ImpactHigh,
		"🔴":      domain.ImpactHigh,
		"medium": domain.ImpactMedium,
		"🟠":      domain.ImpactMedium,
	},
	ParseTime: calendar.ParseLocalFields(calendar.DayField, "time", "15:04", "3:04pm"),
}

// Client scrapes the ForexFactory calendar
type Client struct {
	fetcher  *providers.Fetcher
	baseURL  string
	location *time.Location
	fixtures *Fixtures
	log      *logger.Logger
}

// Config configures the client
type Config struct {
	BaseURL        string
	Location       *time.Location
	Timeout        time.Duration
	ScrapingAntKey string
	FixtureDir     string
}

// New creates a ForexFactory client
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultURL
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Client{
		fetcher: providers.NewFetcher(providers.FetcherConfig{
			Name:           Name,
			Timeout:        cfg.Timeout,
			ScrapingAntKey: cfg.ScrapingAntKey,
		}),
		baseURL:  cfg.BaseURL,
		location: cfg.Location,
		fixtures: NewFixtures(cfg.FixtureDir),
		log:      logger.Get().With("component", "forexfactory"),
	}
}

// Name implements domain.Source
func (c *Client) Name() string { return Name }

// Schema returns the normalization schema for this source
func (c *Client) Schema() calendar.Schema { return Schema }

// Fetch scrapes one calendar page per local day in the range
func (c *Client) Fetch(ctx context.Context, r domain.Range) ([]domain.RawRecord, error) {
	var all []domain.RawRecord
	for _, day := range days(r, c.location) {
		records, err := c.fetchDay(ctx, day)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

func (c *Client) fetchDay(ctx context.Context, day time.Time) ([]domain.RawRecord, error) {
	body, err := c.fetcher.Get(ctx, providers.Request{
		URL:   c.baseURL,
		Query: url.Values{"day": {DayParam(day)}},
		Headers: map[string]string{
			"Accept":  "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Referer": "https://www.forexfactory.com/",
		},
		Cookies: []*http.Cookie{{Name: "gmt_offset", Value: offsetHours(day)}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "forexfactory fetch")
	}

	page, err := ParsePage(body)
	if err != nil {
		return nil, err
	}

	date := day.Format(domain.DateLayout)
	if !page.Date.IsZero() {
		date = page.Date.Format(domain.DateLayout)
	}

	records := page.Records
	if len(records) == 0 {
		if fixture, ok := c.fixtures.Load(date); ok {
			c.log.Infow("Calendar page had no rows, using snapshot", "date", date, "count", len(fixture))
			records = fixture
		}
	}

	InheritTimes(records)
	for _, rec := range records {
		rec[calendar.DayField] = date
	}

	c.log.Debugw("Fetched ForexFactory events", "day", date, "count", len(records))
	return records, nil
}

// DayParam encodes a day the way the calendar URL expects it, e.g. may13.2025
func DayParam(day time.Time) string {
	return strings.ToLower(day.Format("Jan")) + strconv.Itoa(day.Day()) + "." + strconv.Itoa(day.Year())
}

// InheritTimes fills blank times from the previous row, as the site prints a
// time only on the first row of a group
func InheritTimes(records []domain.RawRecord) {
	last := ""
	for _, rec := range records {
		t, _ := rec["time"].(string)
		t = strings.TrimSpace(t)
		if t == "" {
			rec["time"] = last
			continue
		}
		last = t
	}
}

func offsetHours(day time.Time) string {
	_, offset := day.Zone()
	return strconv.FormatFloat(float64(offset)/3600, 'f', -1, 64)
}

func days(r domain.Range, loc *time.Location) []time.Time {
	from := r.From.In(loc)
	to := r.To.In(loc)
	if r.To.IsZero() || to.Before(from) {
		to = from
	}

	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc)

	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func currencyCodes() map[string]string {
	m := map[string]string{}
	for _, ccy := range append(append([]string{}, domain.MajorCurrencies...), domain.ExtraCurrencies...) {
		m[ccy] = ccy
	}
	return m
}
