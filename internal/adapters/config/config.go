package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"calendarbot/pkg/errors"
)

type Config struct {
	App           AppConfig
	Telegram      TelegramConfig
	AI            AIConfig
	Calendar      CalendarConfig
	Redis         RedisConfig
	ErrorTracking ErrorTrackingConfig
	Deployment    DeploymentConfig
	Workers       WorkerConfig
	Server        ServerConfig
	Ops           OpsConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"calendarbot"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type TelegramConfig struct {
	BotToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID    string `envconfig:"TELEGRAM_CHAT_ID"`
	RateLimit int    `envconfig:"TELEGRAM_RATE_LIMIT" default:"20"`
	RateBurst int    `envconfig:"TELEGRAM_RATE_BURST" default:"30"`
}

// Require returns ErrConfig when a Telegram operation is requested without credentials
func (c TelegramConfig) Require() error {
	if c.BotToken == "" {
		return errors.NewValidationError("TELEGRAM_BOT_TOKEN", "telegram bot token is required", "")
	}
	if c.ChatID == "" {
		return errors.NewValidationError("TELEGRAM_CHAT_ID", "telegram chat id is required", "")
	}
	return nil
}

type AIConfig struct {
	OpenAIKey         string        `envconfig:"OPENAI_API_KEY"`
	Model             string        `envconfig:"OPENAI_MODEL" default:"o4-mini"`
	EnrichmentEnabled bool          `envconfig:"AI_ENRICHMENT_ENABLED" default:"false"`
	Timeout           time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
}

type CalendarConfig struct {
	TZOffset       int           `envconfig:"CALENDAR_TZ_OFFSET" default:"8"`
	Sources        []string      `envconfig:"CALENDAR_SOURCES" default:"tradingview,forexfactory,investing"`
	MinImpact      string        `envconfig:"CALENDAR_MIN_IMPACT" default:"Low"`
	CacheDir       string        `envconfig:"CALENDAR_CACHE_DIR" default:"./data"`
	CacheTTL       time.Duration `envconfig:"CALENDAR_CACHE_TTL" default:"1h"`
	CacheBackend   string        `envconfig:"CALENDAR_CACHE_BACKEND" default:"file"`
	HTTPTimeout    time.Duration `envconfig:"CALENDAR_HTTP_TIMEOUT" default:"30s"`
	ScrapingAntKey string        `envconfig:"SCRAPING_ANT_KEY"`
	FixtureDir     string        `envconfig:"CALENDAR_FIXTURE_DIR"`
}

// Location returns the fixed display zone, e.g. "UTC+8"
func (c CalendarConfig) Location() *time.Location {
	return FixedZone(c.TZOffset)
}

// FixedZone builds the named fixed-offset zone used for all local dates and times
func FixedZone(offsetHours int) *time.Location {
	name := "UTC"
	if offsetHours >= 0 {
		name += "+" + strconv.Itoa(offsetHours)
	} else {
		name += strconv.Itoa(offsetHours)
	}
	return time.FixedZone(name, offsetHours*3600)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ErrorTrackingConfig struct {
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

type DeploymentConfig struct {
	RailwayEnvironment string `envconfig:"RAILWAY_ENVIRONMENT"`
	RailwayServiceName string `envconfig:"RAILWAY_SERVICE_NAME"`
}

// IsRailway reports whether the process runs on Railway
func (c DeploymentConfig) IsRailway() bool {
	return c.RailwayEnvironment != "" || c.RailwayServiceName != ""
}

// WorkerConfig contains intervals for the scheduled Telegram updates
type WorkerConfig struct {
	DailyEnabled   bool          `envconfig:"WORKER_DAILY_ENABLED" default:"true"`
	DailyInterval  time.Duration `envconfig:"WORKER_DAILY_UPDATE_INTERVAL" default:"12h"`
	WeeklyEnabled  bool          `envconfig:"WORKER_WEEKLY_ENABLED" default:"false"`
	WeeklyInterval time.Duration `envconfig:"WORKER_WEEKLY_UPDATE_INTERVAL" default:"168h"`
	WeeklyPause    time.Duration `envconfig:"WORKER_WEEKLY_PAUSE" default:"2s"`
}

type ServerConfig struct {
	Addr string `envconfig:"HTTP_ADDR" default:":8080"`
}

type OpsConfig struct {
	LockFile          string        `envconfig:"BOT_LOCK_FILE" default:"/tmp/telegbot_instance.lock"`
	ProcessPatterns   []string      `envconfig:"BOT_PROCESS_PATTERNS" default:"calendarbot,cmd/main.go"`
	StopGrace         time.Duration `envconfig:"BOT_STOP_GRACE" default:"2s"`
	ScreenshotScript  string        `envconfig:"SCREENSHOT_SCRIPT" default:"scripts/screenshot.js"`
	ScreenshotTimeout time.Duration `envconfig:"SCREENSHOT_TIMEOUT" default:"45s"`
	ScreenshotDir     string        `envconfig:"SCREENSHOT_DIR" default:"./data/screenshots"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfig, err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	return &cfg, nil
}

// Validate checks values envconfig cannot express as tags
func (c *Config) Validate() error {
	if c.Calendar.TZOffset < -12 || c.Calendar.TZOffset > 14 {
		return errors.NewValidationError("CALENDAR_TZ_OFFSET", "must be within [-12, 14]", c.Calendar.TZOffset)
	}

	switch strings.ToLower(c.Calendar.MinImpact) {
	case "low", "medium", "high":
	default:
		return errors.NewValidationError("CALENDAR_MIN_IMPACT", "must be Low, Medium or High", c.Calendar.MinImpact)
	}

	switch c.Calendar.CacheBackend {
	case "file", "redis":
	default:
		return errors.NewValidationError("CALENDAR_CACHE_BACKEND", "must be file or redis", c.Calendar.CacheBackend)
	}

	if c.Calendar.CacheTTL <= 0 {
		return errors.NewValidationError("CALENDAR_CACHE_TTL", "must be positive", c.Calendar.CacheTTL)
	}

	return nil
}
