package enrichment

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"calendarbot/internal/calendar"
	domain "calendarbot/internal/domain/calendar"
	"calendarbot/internal/metrics"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
	"calendarbot/pkg/templates"
)

// DefaultMaxEvents caps how many events go into one prompt
const DefaultMaxEvents = 15

// Config configures the OpenAI enricher
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string // overridable for tests
	Timeout   time.Duration
	MaxEvents int
}

// OpenAIEnricher adds short descriptions and market commentary to Medium and
// High impact events using a chat completion
type OpenAIEnricher struct {
	client    openai.Client // NewClient returns Client (not *Client)
	model     string
	timeout   time.Duration
	maxEvents int
	templates *templates.Registry
	log       *logger.Logger
}

// NewOpenAIEnricher creates an enricher; the API key is required
func NewOpenAIEnricher(cfg Config) (*OpenAIEnricher, error) {
	if cfg.APIKey == "" {
		return nil, errors.Wrapf(errors.ErrConfig, "openai API key is required for enrichment")
	}
	if cfg.Model == "" {
		cfg.Model = "o4-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxEvents == 0 {
		cfg.MaxEvents = DefaultMaxEvents
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIEnricher{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		maxEvents: cfg.MaxEvents,
		templates: templates.Get(),
		log:       logger.Get().With("component", "openai_enrichment", "model", cfg.Model),
	}, nil
}

type promptEvent struct {
	Currency string
	Title    string
	Impact   domain.Impact
	Forecast string
	Previous string
	Change   string
}

// Note is one element of the model reply
type Note struct {
	EventIndex   int    `json:"event_index"`
	Description  string `json:"description"`
	MarketImpact string `json:"market_impact"`
	WatchFor     string `json:"watch_for"`
}

// Enrich returns a copy of events where the selected ones carry an Enrichment.
// On error the input is returned unchanged together with the error.
func (e *OpenAIEnricher) Enrich(ctx context.Context, events []domain.Event) ([]domain.Event, error) {
	selected := selectEvents(events, e.maxEvents)
	if len(selected) == 0 {
		return events, nil
	}

	prompt := make([]promptEvent, len(selected))
	for i, idx := range selected {
		ev := events[idx]
		prompt[i] = promptEvent{
			Currency: ev.Currency,
			Title:    ev.Title,
			Impact:   ev.Impact,
			Forecast: ev.Forecast,
			Previous: ev.Previous,
			Change:   calendar.ExpectedChange(ev),
		}
	}

	system, err := e.templates.Render("prompts/enrichment_system", nil)
	if err != nil {
		return events, errors.Wrap(err, "render enrichment system prompt")
	}
	user, err := e.templates.Render("prompts/enrichment_user", map[string]any{
		"Date":   events[selected[0]].Date,
		"Events": prompt,
	})
	if err != nil {
		return events, errors.Wrap(err, "render enrichment user prompt")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	metrics.RecordEnrichment(e.model, time.Since(start), err)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return events, errors.Wrapf(errors.ErrTimeout, "openai enrichment: %v", err)
		}
		return events, errors.Wrapf(errors.ErrUnavailable, "openai enrichment: %v", err)
	}
	if len(resp.Choices) == 0 {
		return events, errors.Wrap(errors.ErrParse, "openai enrichment: no choices returned")
	}

	notes, err := ParseNotes(resp.Choices[0].Message.Content)
	if err != nil {
		return events, err
	}

	out := make([]domain.Event, len(events))
	copy(out, events)

	applied := 0
	for _, note := range notes {
		if note.EventIndex < 0 || note.EventIndex >= len(selected) {
			continue
		}
		idx := selected[note.EventIndex]
		out[idx] = events[idx].WithEnrichment(domain.Enrichment{
			Description:  strings.TrimSpace(note.Description),
			MarketImpact: strings.TrimSpace(note.MarketImpact),
			WatchFor:     strings.TrimSpace(note.WatchFor),
		})
		applied++
	}

	e.log.Infow("Enriched calendar events",
		"requested", len(selected),
		"applied", applied,
		"duration", time.Since(start),
		"tokens_used", resp.Usage.TotalTokens,
	)
	return out, nil
}

// ParseNotes extracts the JSON array from a model reply, tolerating code fences and prose around it
func ParseNotes(content string) ([]Note, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end < start {
		return nil, errors.Wrap(errors.ErrParse, "enrichment reply has no JSON array")
	}

	var notes []Note
	if err := json.Unmarshal([]byte(content[start:end+1]), &notes); err != nil {
		return nil, errors.Wrapf(errors.ErrParse, "enrichment reply: %v", err)
	}
	return notes, nil
}

// selectEvents picks indexes of Medium and High events, High first, capped at limit
func selectEvents(events []domain.Event, limit int) []int {
	var picked []int
	for _, level := range []domain.Impact{domain.ImpactHigh, domain.ImpactMedium} {
		for i, ev := range events {
			if ev.Impact == level && len(picked) < limit {
				picked = append(picked, i)
			}
		}
	}
	return picked
}
