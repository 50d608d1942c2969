package bootstrap

import (
	"strings"

	"calendarbot/internal/adapters/cache"
	"calendarbot/internal/adapters/chart"
	"calendarbot/internal/adapters/config"
	"calendarbot/internal/adapters/enrichment"
	"calendarbot/internal/adapters/errors/noop"
	"calendarbot/internal/adapters/errors/sentry"
	"calendarbot/internal/adapters/providers/forexfactory"
	"calendarbot/internal/adapters/providers/investing"
	"calendarbot/internal/adapters/providers/tradingview"
	"calendarbot/internal/calendar"
	domain "calendarbot/internal/domain/calendar"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
	"calendarbot/pkg/telegram"
	"calendarbot/pkg/telegram/adapters/tgbotapi"
)

// Container holds the application dependencies in initialization order
type Container struct {
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	Store     domain.Store
	Providers []calendar.Provider
	Enricher  calendar.Enricher
	Service   *calendar.Service

	sender  telegram.Sender
	closers []func() error
}

// InitLogger configures the global logger; debug forces the debug level
func InitLogger(cfg *config.Config, debug bool) error {
	return logger.Init(cfg.App.LogLevel, cfg.App.Env, debug || cfg.App.Debug)
}

// NewContainer wires every dependency that does not need Telegram credentials
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{
		Config: cfg,
		Log:    logger.Get(),
	}

	c.ErrorTracker = initErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)

	store, closeStore, err := cache.New(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init calendar cache")
	}
	c.Store = store
	c.closers = append(c.closers, closeStore)

	providers, err := NewProviders(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Providers = providers

	if cfg.AI.OpenAIKey != "" {
		enricher, err := enrichment.NewOpenAIEnricher(enrichment.Config{
			APIKey:  cfg.AI.OpenAIKey,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		})
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Enricher = enricher
	}

	c.Service = calendar.NewService(calendar.ServiceConfig{
		Location:  cfg.Calendar.Location(),
		Providers: c.Providers,
		Store:     c.Store,
		Enricher:  c.Enricher,
	})

	c.Log.Infow("Calendar pipeline initialized",
		"sources", cfg.Calendar.Sources,
		"cache_backend", cfg.Calendar.CacheBackend,
		"zone", cfg.Calendar.Location().String(),
		"enrichment", c.Enricher != nil,
	)
	return c, nil
}

// NewProviders builds the configured sources in priority order
func NewProviders(cfg *config.Config) ([]calendar.Provider, error) {
	loc := cfg.Calendar.Location()

	var providers []calendar.Provider
	for _, name := range cfg.Calendar.Sources {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case tradingview.Name:
			providers = append(providers, tradingview.New(tradingview.Config{
				Location:       loc,
				Timeout:        cfg.Calendar.HTTPTimeout,
				ScrapingAntKey: cfg.Calendar.ScrapingAntKey,
			}))
		case forexfactory.Name:
			providers = append(providers, forexfactory.New(forexfactory.Config{
				Location:       loc,
				Timeout:        cfg.Calendar.HTTPTimeout,
				ScrapingAntKey: cfg.Calendar.ScrapingAntKey,
				FixtureDir:     cfg.Calendar.FixtureDir,
			}))
		case investing.Name:
			providers = append(providers, investing.New(investing.Config{
				Location:       loc,
				Timeout:        cfg.Calendar.HTTPTimeout,
				ScrapingAntKey: cfg.Calendar.ScrapingAntKey,
			}))
		case "":
		default:
			return nil, errors.NewValidationError("CALENDAR_SOURCES", "unknown source "+name, cfg.Calendar.Sources)
		}
	}

	if len(providers) == 0 {
		return nil, errors.NewValidationError("CALENDAR_SOURCES", "at least one source is required", cfg.Calendar.Sources)
	}
	return providers, nil
}

// Sender returns the Telegram client, creating it on first use.
// Missing credentials yield ErrConfig.
func (c *Container) Sender() (telegram.Sender, error) {
	if c.sender != nil {
		return c.sender, nil
	}
	if err := c.Config.Telegram.Require(); err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBot(tgbotapi.Config{
		Token:          c.Config.Telegram.BotToken,
		Debug:          c.Config.App.Debug,
		RateLimitRate:  c.Config.Telegram.RateLimit,
		RateLimitBurst: c.Config.Telegram.RateBurst,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init telegram bot")
	}

	c.sender = bot
	return bot, nil
}

// SetSender overrides the Telegram client
func (c *Container) SetSender(sender telegram.Sender) {
	c.sender = sender
}

// ChartRunner builds the screenshot runner from the ops settings
func (c *Container) ChartRunner() *chart.Runner {
	return chart.NewRunner(chart.Config{
		Script:    c.Config.Ops.ScreenshotScript,
		OutputDir: c.Config.Ops.ScreenshotDir,
		Timeout:   c.Config.Ops.ScreenshotTimeout,
	})
}

// Close releases backend connections in reverse order
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Log.Warnw("Failed to close resource", "error", err)
		}
	}
	c.closers = nil
}

func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if cfg.ErrorTracking.SentryDSN == "" {
		log.Debugw("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Name)
	if err != nil {
		log.Warnw("Failed to initialize Sentry", "error", err)
		return noop.New()
	}

	log.Infow("Error tracking initialized", "backend", "sentry", "environment", cfg.ErrorTracking.Environment)
	return tracker
}
