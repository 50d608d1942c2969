package logger

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"calendarbot/pkg/errors"
)

var (
	global  atomic.Pointer[Logger]
	tracker atomic.Pointer[trackerRef]
)

type trackerRef struct{ errors.Tracker }

// Logger is the sugared zap logger shared by the bot's components.
// Entries at error level or above are also reported to the error tracker
// installed with SetErrorTracker, tagged with the logger's scalar fields
// (component, source, chat_id and so on).
type Logger struct {
	*zap.SugaredLogger
}

// Init builds the global logger. env "production" selects JSON output;
// anything else gets the coloured console encoder. debug forces the debug
// level regardless of level.
func Init(level string, env string, debug bool) error {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if env == "production" {
		config = zap.NewProductionConfig()
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.InitialFields = map[string]interface{}{"service": "calendarbot"}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	if debug {
		lvl = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	z, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel), withTracking())
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	global.Store(&Logger{SugaredLogger: z.Sugar()})
	return nil
}

// New wraps an existing zap logger (zap.NewNop, zaptest observers). Error
// reporting is attached the same way Init attaches it.
func New(z *zap.Logger) *Logger {
	return &Logger{SugaredLogger: z.WithOptions(withTracking()).Sugar()}
}

// SetErrorTracker installs the tracker that receives error-level entries.
// It applies to every logger, including children created before the call.
// A nil tracker switches reporting off.
func SetErrorTracker(t errors.Tracker) {
	if t == nil {
		tracker.Store(nil)
		return
	}
	tracker.Store(&trackerRef{Tracker: t})
}

// Get returns the global logger, falling back to a development logger when
// Init has not run (tests, early CLI failures).
func Get() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	z, err := zap.NewDevelopment(withTracking())
	if err != nil {
		z = zap.NewNop()
	}
	global.CompareAndSwap(nil, &Logger{SugaredLogger: z.Sugar()})
	return global.Load()
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}

// Sync flushes the global logger.
func Sync() error {
	if l := global.Load(); l != nil {
		return l.Sync()
	}
	return nil
}

func withTracking() zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, &trackingCore{LevelEnabler: zapcore.ErrorLevel})
	})
}

// trackingCore forwards error-level entries to the installed tracker.
type trackingCore struct {
	zapcore.LevelEnabler
	fields []zapcore.Field
}

func (c *trackingCore) With(fields []zapcore.Field) zapcore.Core {
	return &trackingCore{
		LevelEnabler: c.LevelEnabler,
		fields:       append(slices.Clip(c.fields), fields...),
	}
}

func (c *trackingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) && tracker.Load() != nil {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *trackingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ref := tracker.Load()
	if ref == nil {
		return nil
	}

	all := append(slices.Clip(c.fields), fields...)
	enc := zapcore.NewMapObjectEncoder()
	var cause error
	for _, f := range all {
		if f.Type == zapcore.ErrorType {
			if e, ok := f.Interface.(error); ok {
				cause = e
				continue
			}
		}
		f.AddTo(enc)
	}
	if cause == nil {
		cause = errors.ErrInternal
	}

	tags := map[string]string{"level": ent.Level.String()}
	for k, v := range enc.Fields {
		switch v.(type) {
		case string, bool, int, int32, int64, uint32, uint64, float64:
			tags[k] = fmt.Sprint(v)
		}
	}

	return ref.CaptureError(context.Background(), errors.Wrap(cause, ent.Message), tags)
}

func (c *trackingCore) Sync() error { return nil }
