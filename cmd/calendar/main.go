package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"calendarbot/internal/adapters/config"
	"calendarbot/internal/bootstrap"
	"calendarbot/internal/calendar"
	domain "calendarbot/internal/domain/calendar"
	"calendarbot/internal/ops"
	"calendarbot/internal/workers"
	calendarworkers "calendarbot/internal/workers/calendar"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
	"calendarbot/pkg/telegram"
	"calendarbot/pkg/templates"
)

var knownSources = []string{"tradingview", "forexfactory", "investing"}

type options struct {
	days            int
	span            int
	allCurrencies   bool
	currencies      []string
	minImpact       string
	groupByCurrency bool
	stripQualifiers bool
	source          string
	table           bool
	telegram        bool
	botToken        string
	chatID          string
	debug           bool
	daily           bool
	weekly          bool
	test            bool
	instrument      string
	enrich          bool
	forceKill       bool
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout))
}

func execute(args []string, stdout io.Writer) int {
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)

	err := cmd.Execute()
	code := exitCode(err)
	if err != nil {
		if code != 0 {
			fmt.Fprintln(os.Stderr, "error:", err)
		} else {
			logger.Get().Errorw("Calendar run finished with errors", "error", err)
		}
	}
	_ = logger.Sync()
	return code
}

// exitCode is 1 only for configuration errors
func exitCode(err error) int {
	if err != nil && errors.Is(err, errors.ErrConfig) {
		return 1
	}
	return 0
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "calendar",
		Short:         "Fetch, format and deliver the economic calendar",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, opts, stdout)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Wrap(errors.ErrConfig, err.Error())
	})

	f := cmd.Flags()
	f.IntVar(&opts.days, "days", 0, "offset of the first day from today")
	f.IntVar(&opts.span, "span", 1, "number of days to show")
	f.BoolVar(&opts.allCurrencies, "all-currencies", false, "include every currency, not only the majors")
	f.StringSliceVar(&opts.currencies, "currencies", nil, "comma separated currency allow-list, e.g. USD,EUR")
	f.StringVar(&opts.minImpact, "min-impact", "", "minimum impact: Low, Medium or High (default from CALENDAR_MIN_IMPACT)")
	f.BoolVar(&opts.groupByCurrency, "group-by-currency", false, "group events by currency instead of time")
	f.BoolVar(&opts.stripQualifiers, "strip-qualifiers", false, "remove (MoM), (Q1) style qualifiers from titles")
	f.StringVar(&opts.source, "source", "", "use only this source: "+strings.Join(knownSources, ", "))
	f.BoolVar(&opts.table, "table", false, "print a table instead of the text view")
	f.BoolVar(&opts.telegram, "telegram", false, "send the result to Telegram")
	f.StringVar(&opts.botToken, "bot-token", "", "Telegram bot token (overrides TELEGRAM_BOT_TOKEN)")
	f.StringVar(&opts.chatID, "chat-id", "", "Telegram chat id (overrides TELEGRAM_CHAT_ID)")
	f.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	f.BoolVar(&opts.daily, "daily", false, "send the daily update once and exit")
	f.BoolVar(&opts.weekly, "weekly", false, "send the weekly update once and exit")
	f.BoolVar(&opts.test, "test", false, "send a test message and exit")
	f.StringVar(&opts.instrument, "instrument", "", "show events affecting one instrument, e.g. EURUSD or XAUUSD")
	f.BoolVar(&opts.enrich, "enrich", false, "add AI commentary to Medium and High events")
	f.BoolVar(&opts.forceKill, "force-kill", false, "stop other bot instances first")

	return cmd
}

func run(ctx context.Context, opts *options, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := bootstrap.InitLogger(cfg, opts.debug); err != nil {
		return errors.Wrapf(errors.ErrConfig, "init logger: %v", err)
	}
	log := logger.Get().With("component", "calendar_cli")

	q, err := applyOptions(cfg, opts)
	if err != nil {
		return err
	}

	if opts.forceKill {
		stopped, err := ops.StopAll(ctx, cfg.Ops.ProcessPatterns, ops.NewLockFile(cfg.Ops.LockFile), cfg.Ops.StopGrace)
		if err != nil {
			return errors.Wrapf(errors.ErrConfig, "stop running instances: %v", err)
		}
		log.Infow("Stopped running instances", "pids", stopped)
	}

	c, err := bootstrap.NewContainer(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	format := calendar.FormatOptions{
		GroupByCurrency: opts.groupByCurrency,
		AllCurrencies:   opts.allCurrencies,
		StripQualifiers: opts.stripQualifiers,
	}

	if opts.daily || opts.weekly {
		// scheduled updates always show the whole day
		q.SkipPassed = false
	}

	needsTelegram := opts.telegram || opts.daily || opts.weekly || opts.test
	var publisher *calendarworkers.Publisher
	if needsTelegram {
		sender, err := c.Sender()
		if err != nil {
			return err
		}
		telegram.ClearSessions(ctx, sender)

		publisher, err = c.Publisher(q, format)
		if err != nil {
			return err
		}
	}

	loc := cfg.Calendar.Location()
	switch {
	case opts.test:
		msg, err := templates.Get().Render("notifications/test_message", map[string]any{
			"Source": strings.Join(cfg.Calendar.Sources, ", "),
			"Zone":   loc.String(),
			"SentAt": time.Now().In(loc).Format("2006-01-02 15:04:05"),
		})
		if err != nil {
			return err
		}
		_, err = publisher.Send(ctx, msg)
		return err

	case opts.daily:
		w := calendarworkers.NewDailyUpdateWorker(publisher, loc, cfg.Workers.DailyInterval, true)
		return workers.NewScheduler().Execute(ctx, w)

	case opts.weekly:
		w := calendarworkers.NewWeeklyUpdateWorker(publisher, loc, cfg.Workers.WeeklyInterval, cfg.Workers.WeeklyPause, true)
		return workers.NewScheduler().Execute(ctx, w)

	case opts.instrument != "":
		text, err := c.Service.InstrumentCalendar(ctx, opts.instrument, q)
		if err != nil {
			return err
		}
		if publisher != nil {
			_, err = publisher.Send(ctx, text)
			return err
		}
		fmt.Fprintln(stdout, text)
		return nil
	}

	result, err := c.Service.Events(ctx, q)
	if err != nil {
		return err
	}

	if publisher != nil {
		_, err = publisher.Send(ctx, c.Service.Chunks(result, format)...)
		return err
	}

	if opts.table {
		calendar.RenderTable(stdout, result.Events)
		return nil
	}
	fmt.Fprintln(stdout, c.Service.Render(result, format))
	return nil
}

// applyOptions validates the flags and folds them into cfg and the query.
// Invalid values are configuration errors.
func applyOptions(cfg *config.Config, opts *options) (calendar.Query, error) {
	if opts.botToken != "" {
		cfg.Telegram.BotToken = opts.botToken
	}
	if opts.chatID != "" {
		cfg.Telegram.ChatID = opts.chatID
	}

	if opts.span < 1 {
		return calendar.Query{}, errors.NewValidationError("--span", "must be at least 1", opts.span)
	}
	if opts.daily && opts.weekly {
		return calendar.Query{}, errors.NewValidationError("--daily", "cannot be combined with --weekly", true)
	}

	level := cfg.Calendar.MinImpact
	if opts.minImpact != "" {
		level = opts.minImpact
	}
	minImpact, err := domain.ParseImpact(level)
	if err != nil {
		return calendar.Query{}, errors.NewValidationError("--min-impact", "must be Low, Medium or High", level)
	}

	currencies := make([]string, 0, len(opts.currencies))
	for _, ccy := range opts.currencies {
		ccy = strings.ToUpper(strings.TrimSpace(ccy))
		if ccy == "" {
			continue
		}
		if !domain.IsKnownCurrency(ccy) {
			return calendar.Query{}, errors.NewValidationError("--currencies", "unknown currency", ccy)
		}
		currencies = append(currencies, ccy)
	}

	source := strings.ToLower(strings.TrimSpace(opts.source))
	if source != "" {
		if !contains(knownSources, source) {
			return calendar.Query{}, errors.NewValidationError("--source", "must be one of "+strings.Join(knownSources, ", "), opts.source)
		}
		cfg.Calendar.Sources = []string{source}
	}

	return calendar.Query{
		Days:          opts.days,
		Span:          opts.span,
		Currencies:    currencies,
		AllCurrencies: opts.allCurrencies,
		MinImpact:     minImpact,
		Source:        source,
		SkipPassed:    opts.days == 0,
		Enrich:        opts.enrich,
	}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
