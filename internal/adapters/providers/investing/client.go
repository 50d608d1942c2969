package investing

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"calendarbot/internal/adapters/providers"
	"calendarbot/internal/calendar"
	domain "calendarbot/internal/domain/calendar"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

const (
	// Name identifies the source in config, cache and metrics
	Name = "investing"

	// DefaultURL is the public economic calendar page
	DefaultURL = "https://www.investing.com/economic-calendar/"

	rowTimeLayout = "2006/01/02 15:04:05"
)

// countryCurrencies maps Investing display names to currencies
var countryCurrencies = map[string]string{
	"United States":  "USD",
	"Euro Zone":      "EUR",
	"Germany":        "EUR",
	"France":         "EUR",
	"Italy":          "EUR",
	"Spain":          "EUR",
	"United Kingdom": "GBP",
	"Japan":          "JPY",
	"Switzerland":    "CHF",
	"Australia":      "AUD",
	"New Zealand":    "NZD",
	"Canada":         "CAD",
	"China":          "CNY",
	"Hong Kong":      "HKD",
}

// Schema maps Investing rows onto events. The datetime field is stored as
// RFC3339 UTC by the parser so the page zone does not leak into normalization.
var Schema = calendar.Schema{
	Name:          Name,
	CountryField:  "country",
	ImpactField:   "impact",
	TitleField:    "event",
	ForecastField: "forecast",
	PreviousField: "previous",
	ActualField:   "actual",
	Countries: func() map[string]string {
		m := make(map[string]string, len(countryCurrencies)*2)
		for name, ccy := range countryCurrencies {
			m[name] = ccy
			m[ccy] = ccy
		}
		return m
	}(),
	Impacts: map[string]domain.Impact{
		"1": domain.ImpactLow,
		"2": domain.ImpactMedium,
		"3": domain.ImpactHigh,
	},
	ParseTime: calendar.ParseISOField("datetime"),
}

// Client scrapes the Investing.com calendar and synthesizes estimates when it cannot
type Client struct {
	fetcher      *providers.Fetcher
	baseURL      string
	location     *time.Location
	pageLocation *time.Location
	log          *logger.Logger
}

// Config configures the client
type Config struct {
	BaseURL  string
	Location *time.Location
	// PageLocation is the zone of data-event-datetime; UTC when nil
	PageLocation   *time.Location
	Timeout        time.Duration
	ScrapingAntKey string
}

// New creates an Investing.com client
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultURL
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.PageLocation == nil {
		cfg.PageLocation = time.UTC
	}

	return &Client{
		fetcher: providers.NewFetcher(providers.FetcherConfig{
			Name:           Name,
			Timeout:        cfg.Timeout,
			ScrapingAntKey: cfg.ScrapingAntKey,
		}),
		baseURL:      cfg.BaseURL,
		location:     cfg.Location,
		pageLocation: cfg.PageLocation,
		log:          logger.Get().With("component", "investing"),
	}
}

// Name implements domain.Source
func (c *Client) Name() string { return Name }

// Schema returns the normalization schema for this source
func (c *Client) Schema() calendar.Schema { return Schema }

// Fetch scrapes the calendar page. An empty result is not an error; callers
// use Fallback for the synthetic estimate.
func (c *Client) Fetch(ctx context.Context, r domain.Range) ([]domain.RawRecord, error) {
	body, err := c.fetcher.Get(ctx, providers.Request{
		URL: c.baseURL,
		Headers: map[string]string{
			"Accept":           "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"X-Requested-With": "XMLHttpRequest",
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "investing fetch")
	}

	records, err := ParsePage(body, c.pageLocation)
	if err != nil {
		return nil, err
	}

	day := r.From.In(c.location).Format(domain.DateLayout)
	for _, rec := range records {
		rec[calendar.DayField] = day
	}

	c.log.Debugw("Fetched Investing events", "day", day, "count", len(records))
	return records, nil
}

// Fallback synthesizes the deterministic estimate for day
func (c *Client) Fallback(day time.Time, currencies []string) []domain.RawRecord {
	day = day.In(c.location)
	records := Synthesize(day, SeededRand(day), currencies)
	c.log.Infow("Using synthetic Investing estimate", "day", day.Format(domain.DateLayout), "count", len(records))
	return records
}

// ParsePage extracts event rows; data-event-datetime is read in pageLoc
func ParsePage(body []byte, pageLoc *time.Location) ([]domain.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrParse, "investing html: %v", err)
	}

	var records []domain.RawRecord
	doc.Find("tr.js-event-item").Each(func(_ int, row *goquery.Selection) {
		rec := domain.RawRecord{
			"country":  rowCountry(row.Find("td.flagCur")),
			"impact":   rowImpact(row.Find("td.sentiment")),
			"event":    text(row.Find("td.event")),
			"actual":   text(row.Find("td.act")),
			"forecast": text(row.Find("td.fore")),
			"previous": text(row.Find("td.prev")),
		}

		if raw, ok := row.Attr("data-event-datetime"); ok {
			if t, err := time.ParseInLocation(rowTimeLayout, strings.TrimSpace(raw), pageLoc); err == nil {
				rec["datetime"] = t.UTC().Format(time.RFC3339)
			}
		}

		records = append(records, rec)
	})

	return records, nil
}

// rowCountry prefers the flag's title (country name) and falls back to the currency text
func rowCountry(cell *goquery.Selection) string {
	if title, ok := cell.Find("span[title]").Attr("title"); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	return text(cell)
}

func rowImpact(cell *goquery.Selection) string {
	switch n := cell.Find("i.grayFullBullishIcon").Length(); {
	case n >= 3:
		return "3"
	case n == 2:
		return "2"
	case n == 1:
		return "1"
	default:
		return ""
	}
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.First().Text()), " ")
}
