package tradingview

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
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
	Name = "tradingview"

	// DefaultURL is the public economic calendar endpoint
	DefaultURL = "https://economic-calendar.tradingview.com/events"

	isoLayout = "2006-01-02T15:04:05.000Z"
)

// Schema maps TradingView records onto events.
// Importance runs from -1 to 3; anything outside the table is Low.
var Schema = calendar.Schema{
	Name:          Name,
	CountryField:  "country",
	ImpactField:   "importance",
	TitleField:    "title",
	ForecastField: "forecast",
	PreviousField: "previous",
	ActualField:   "actual",
	Countries:     domain.CountryCurrencies(),
	Impacts: map[string]domain.Impact{
		"-1": domain.ImpactLow,
		"0":  domain.ImpactMedium,
		"1":  domain.ImpactMedium,
		"2":  domain.ImpactHigh,
		"3":  domain.ImpactHigh,
	},
	ParseTime: calendar.ParseISOField("date"),
}

// Client fetches the TradingView economic calendar
type Client struct {
	fetcher  *providers.Fetcher
	baseURL  string
	location *time.Location
	now      func() time.Time
	log      *logger.Logger
}

// Config configures the client
type Config struct {
	BaseURL        string
	Location       *time.Location
	Timeout        time.Duration
	ScrapingAntKey string
}

// New creates a TradingView client
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
		now:      time.Now,
		log:      logger.Get().With("component", "tradingview"),
	}
}

// Name implements domain.Source
func (c *Client) Name() string { return Name }

// Schema returns the normalization schema for this source
func (c *Client) Schema() calendar.Schema { return Schema }

// Fetch requests events between the local start of r.From and the local end of r.To
func (c *Client) Fetch(ctx context.Context, r domain.Range) ([]domain.RawRecord, error) {
	from, to := dayBounds(r, c.location)

	query := url.Values{}
	query.Set("from", from.UTC().Format(isoLayout))
	query.Set("to", to.UTC().Format(isoLayout))
	query.Set("limit", "1000")
	if countries := countryCodes(r.Currencies); countries != "" {
		query.Set("countries", countries)
	}

	body, err := c.fetcher.Get(ctx, providers.Request{
		URL:   c.baseURL,
		Query: query,
		Headers: map[string]string{
			"Accept":  "application/json, text/plain, */*",
			"Origin":  "https://www.tradingview.com",
			"Referer": "https://www.tradingview.com/economic-calendar/",
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "tradingview fetch")
	}

	records, err := ParseBody(body)
	if err != nil {
		return nil, err
	}

	day := from.In(c.location).Format(domain.DateLayout)
	for _, rec := range records {
		rec[calendar.DayField] = day
	}

	c.log.Debugw("Fetched TradingView events", "day", day, "count", len(records))
	return records, nil
}

// ParseBody accepts a JSON array, {"result": [...]}, {"data": [...]} or
// {"content": "<json>"} as returned through proxies.
func ParseBody(body []byte) ([]domain.RawRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '[' && trimmed[0] != '{') {
		return nil, errors.Wrapf(errors.ErrParse, "tradingview: body is not JSON (%d bytes)", len(trimmed))
	}

	if trimmed[0] == '[' {
		return decodeList(trimmed)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, errors.Wrapf(errors.ErrParse, "tradingview: %v", err)
	}

	for _, key := range []string{"result", "data"} {
		if raw, ok := envelope[key]; ok {
			return decodeList(raw)
		}
	}

	if raw, ok := envelope["content"]; ok {
		var content string
		if err := json.Unmarshal(raw, &content); err != nil {
			return nil, errors.Wrapf(errors.ErrParse, "tradingview content: %v", err)
		}
		return ParseBody([]byte(content))
	}

	return nil, errors.Wrap(errors.ErrParse, "tradingview: no event list in response")
}

func decodeList(raw []byte) ([]domain.RawRecord, error) {
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrapf(errors.ErrParse, "tradingview events: %v", err)
	}

	records := make([]domain.RawRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, domain.RawRecord(item))
	}
	return records, nil
}

func dayBounds(r domain.Range, loc *time.Location) (time.Time, time.Time) {
	fromDay := r.From.In(loc)
	toDay := r.To.In(loc)
	if r.To.IsZero() {
		toDay = fromDay
	}

	from := time.Date(fromDay.Year(), fromDay.Month(), fromDay.Day(), 0, 0, 0, 0, loc)
	to := time.Date(toDay.Year(), toDay.Month(), toDay.Day(), 23, 59, 59, 0, loc)
	return from, to
}

func countryCodes(currencies []string) string {
	var codes []string
	for _, ccy := range currencies {
		if code, ok := domain.CountryCode(strings.ToUpper(ccy)); ok {
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, ",")
}
