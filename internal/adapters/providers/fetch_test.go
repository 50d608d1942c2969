package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendarbot/pkg/errors"
)

func TestFetcherDirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "https://www.tradingview.com", r.Header.Get("Origin"))
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		c, err := r.Cookie("gmt_offset")
		require.NoError(t, err)
		assert.Equal(t, "8", c.Value)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	f := NewFetcher(FetcherConfig{Name: "direct-test"})
	body, err := f.Get(context.Background(), Request{
		URL:     server.URL,
		Query:   url.Values{"limit": {"1000"}},
		Headers: map[string]string{"Origin": "https://www.tradingview.com"},
		Cookies: []*http.Cookie{{Name: "gmt_offset", Value: "8"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}

func TestFetcherStatusErrors(t *testing.T) {
	status := http.StatusInternalServerError
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer server.Close()

	f := NewFetcher(FetcherConfig{Name: "status-test"})

	_, err := f.Get(context.Background(), Request{URL: server.URL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrFetch))
	assert.False(t, errors.Is(err, errors.ErrRateLimitExceeded))

	status = http.StatusTooManyRequests
	_, err = f.Get(context.Background(), Request{URL: server.URL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrFetch))
	assert.True(t, errors.Is(err, errors.ErrRateLimitExceeded))
}

func TestFetcherBreakerOpens(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewFetcher(FetcherConfig{
		Name: "breaker-test",
		Breaker: BreakerSettings{
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      time.Minute,
			MinRequests:  3,
			FailureRatio: 0.5,
		},
	})

	for i := 0; i < 3; i++ {
		_, err := f.Get(context.Background(), Request{URL: server.URL})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, f.State())

	_, err := f.Get(context.Background(), Request{URL: server.URL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
	assert.Equal(t, 3, calls, "open breaker must not reach the server")

	assert.Equal(t, int(gobreaker.StateOpen), BreakerStates()["breaker-test"])
}

func TestFetcherScrapingAnt(t *testing.T) {
	var got scrapingAntRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	f := NewFetcher(FetcherConfig{
		Name:           "scrapingant-test",
		ScrapingAntKey: "secret",
		ScrapingAntURL: server.URL,
	})

	body, err := f.Get(context.Background(), Request{
		URL:     "https://www.forexfactory.com/calendar",
		Query:   url.Values{"day": {"may13.2025"}},
		Cookies: []*http.Cookie{{Name: "gmt_offset", Value: "8"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(body))
	assert.Equal(t, "https://www.forexfactory.com/calendar?day=may13.2025", got.URL)
	assert.False(t, got.Browser)
	assert.Equal(t, "gmt_offset=8", got.Cookies)
}
