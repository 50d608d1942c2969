package cache

import (
	"calendarbot/internal/adapters/config"
	redisclient "calendarbot/internal/adapters/redis"
	domain "calendarbot/internal/domain/calendar"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

// New builds the configured snapshot store. The returned close func releases
// backend connections and is never nil.
func New(cfg *config.Config) (domain.Store, func() error, error) {
	loc := cfg.Calendar.Location()

	switch cfg.Calendar.CacheBackend {
	case "redis":
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, func() error { return nil }, errors.Wrap(err, "connect cache backend")
		}
		logger.Get().Infow("Using Redis calendar cache", "addr", cfg.Redis.Addr(), "ttl", cfg.Calendar.CacheTTL)
		return NewRedisStore(client, cfg.Calendar.CacheTTL, loc), client.Close, nil
	default:
		return NewFileStore(cfg.Calendar.CacheDir, cfg.Calendar.CacheTTL, loc), func() error { return nil }, nil
	}
}
