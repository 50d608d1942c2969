package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"calendarbot/internal/metrics"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

const (
	// UserAgent mimics a desktop browser; the calendar sites reject library agents
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"

	// ScrapingAntURL is the proxy endpoint used when a ScrapingAnt key is configured
	ScrapingAntURL = "https://api.scrapingant.com/v2/general"

	maxBodyBytes = 10 << 20
)

// BreakerSettings configures the per-provider circuit breaker
type BreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// DefaultBreakerSettings trips at 60% failures over at least 5 requests and stays open 30s
var DefaultBreakerSettings = BreakerSettings{
	MaxRequests:  1,
	Interval:     5 * time.Minute,
	Timeout:      30 * time.Second,
	MinRequests:  5,
	FailureRatio: 0.6,
}

// FetcherConfig configures a provider fetcher
type FetcherConfig struct {
	Name           string
	Timeout        time.Duration
	ScrapingAntKey string
	ScrapingAntURL string // overridable for tests
	Breaker        BreakerSettings
	Client         *http.Client
}

// Request describes one GET against a provider
type Request struct {
	URL     string
	Query   url.Values
	Headers map[string]string
	Cookies []*http.Cookie
}

// FullURL returns the request URL with its query string
func (r Request) FullURL() string {
	if len(r.Query) == 0 {
		return r.URL
	}
	return r.URL + "?" + r.Query.Encode()
}

// Fetcher performs provider HTTP requests behind a circuit breaker.
// It never retries: a failed or short-circuited call returns immediately.
type Fetcher struct {
	name           string
	client         *http.Client
	breaker        *gobreaker.CircuitBreaker
	scrapingAntKey string
	scrapingAntURL string
	log            *logger.Logger
}

var (
	fetchersMu sync.Mutex
	fetchers   = map[string]*Fetcher{}
)

// NewFetcher creates a fetcher and registers its breaker for state reporting
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ScrapingAntURL == "" {
		cfg.ScrapingAntURL = ScrapingAntURL
	}
	if cfg.Breaker == (BreakerSettings{}) {
		cfg.Breaker = DefaultBreakerSettings
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	log := logger.Get().With("component", "provider_fetcher", "provider", cfg.Name)
	settings := cfg.Breaker

	f := &Fetcher{
		name:           cfg.Name,
		client:         client,
		scrapingAntKey: cfg.ScrapingAntKey,
		scrapingAntURL: cfg.ScrapingAntURL,
		log:            log,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: settings.MaxRequests,
			Interval:    settings.Interval,
			Timeout:     settings.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests == 0 || counts.Requests < settings.MinRequests {
					return false
				}
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return failureRatio >= settings.FailureRatio
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Warnw("Circuit breaker state changed", "from", from.String(), "to", to.String())
			},
		}),
	}

	fetchersMu.Lock()
	fetchers[cfg.Name] = f
	fetchersMu.Unlock()

	return f
}

// Name returns the provider name
func (f *Fetcher) Name() string {
	return f.name
}

// State returns the breaker state
func (f *Fetcher) State() gobreaker.State {
	return f.breaker.State()
}

// Get fetches the request body. Non-200 responses are ErrFetch; 429 is also ErrRateLimitExceeded.
func (f *Fetcher) Get(ctx context.Context, req Request) ([]byte, error) {
	start := time.Now()

	res, err := f.breaker.Execute(func() (interface{}, error) {
		if f.scrapingAntKey != "" {
			return f.viaScrapingAnt(ctx, req)
		}
		return f.direct(ctx, req)
	})

	outcome := ""
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "circuit_open"
		err = fmt.Errorf("%w: %s circuit open: %w", errors.ErrUnavailable, f.name, err)
	case errors.Is(err, errors.ErrRateLimitExceeded):
		outcome = "rate_limited"
	}
	metrics.RecordProviderRequest(f.name, time.Since(start), outcome, err)

	if err != nil {
		f.log.Warnw("Provider request failed",
			"url", req.URL,
			"duration", time.Since(start),
			"error", err,
		)
		return nil, err
	}

	body := res.([]byte)
	f.log.Debugw("Provider request succeeded", "url", req.URL, "bytes", len(body), "duration", time.Since(start))
	return body, nil
}

func (f *Fetcher) direct(ctx context.Context, req Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.FullURL(), nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "build request: %v", err)
	}

	httpReq.Header.Set("User-Agent", UserAgent)
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	for _, c := range req.Cookies {
		httpReq.AddCookie(c)
	}

	return f.do(httpReq)
}

type scrapingAntRequest struct {
	URL              string            `json:"url"`
	Browser          bool              `json:"browser"`
	ReturnPageSource bool              `json:"return_page_source"`
	Headers          map[string]string `json:"headers,omitempty"`
	Cookies          string            `json:"cookies,omitempty"`
}

func (f *Fetcher) viaScrapingAnt(ctx context.Context, req Request) ([]byte, error) {
	headers := map[string]string{"User-Agent": UserAgent}
	for k, v := range req.Headers {
		headers[k] = v
	}

	payload := scrapingAntRequest{
		URL:              req.FullURL(),
		Browser:          false,
		ReturnPageSource: true,
		Headers:          headers,
		Cookies:          cookieString(req.Cookies),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal scrapingant request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.scrapingAntURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "build scrapingant request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", f.scrapingAntKey)

	return f.do(httpReq)
}

func (f *Fetcher) do(httpReq *http.Request) ([]byte, error) {
	resp, err := f.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w: %v", errors.ErrFetch, errors.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", errors.ErrFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errors.ErrFetch, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %w: status %d", errors.ErrFetch, errors.ErrRateLimitExceeded, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", errors.ErrFetch, resp.StatusCode)
	}

	return body, nil
}

func cookieString(cookies []*http.Cookie) string {
	var b bytes.Buffer
	for i, c := range cookies {
		if i > 0 {
			b.WriteString(";")
		}
		b.WriteString(c.Name + "=" + c.Value)
	}
	return b.String()
}

// BreakerStates reports every registered provider's breaker state (0=closed, 1=half-open, 2=open)
func BreakerStates() map[string]int {
	fetchersMu.Lock()
	defer fetchersMu.Unlock()

	states := make(map[string]int, len(fetchers))
	for name, f := range fetchers {
		states[name] = int(f.State())
	}
	return states
}
