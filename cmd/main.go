package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"calendarbot/internal/adapters/config"
	"calendarbot/internal/adapters/providers"
	"calendarbot/internal/api"
	"calendarbot/internal/api/health"
	"calendarbot/internal/bootstrap"
	"calendarbot/internal/metrics"
	"calendarbot/internal/ops"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
	"calendarbot/pkg/telegram"
)

var version = "dev"

func main() {
	os.Exit(execute(os.Args[1:], os.Stderr))
}

func execute(args []string, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err != nil {
		logger.Get().Errorw("Bot stopped with error", "error", err)
		fmt.Fprintln(stderr, "error:", err)
	}
	_ = logger.Sync()
	if err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var forceKill, debug bool

	cmd := &cobra.Command{
		Use:           "calendarbot",
		Short:         "Run the scheduled calendar updates with health and metrics endpoints",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := bootstrap.InitLogger(cfg, debug); err != nil {
				return errors.Wrapf(errors.ErrConfig, "init logger: %v", err)
			}

			logger.Get().Infow("Starting calendar bot", "name", cfg.App.Name, "env", cfg.App.Env, "version", version)
			return run(cfg, forceKill)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Wrap(errors.ErrConfig, err.Error())
	})

	cmd.Flags().BoolVar(&forceKill, "force-kill", false, "stop other bot instances before starting")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func run(cfg *config.Config, forceKill bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := logger.Get()
	lock := ops.NewLockFile(cfg.Ops.LockFile)

	if forceKill {
		stopped, err := ops.StopAll(ctx, cfg.Ops.ProcessPatterns, lock, cfg.Ops.StopGrace)
		if err != nil {
			return err
		}
		log.Infow("Stopped other instances", "pids", stopped)
	}
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warnw("Failed to release lock", "error", err)
		}
	}()

	c, err := bootstrap.NewContainer(cfg)
	if err != nil {
		return err
	}

	sender, err := c.Sender()
	if err != nil {
		c.Close()
		return err
	}
	telegram.ClearSessions(ctx, sender)

	scheduler, err := c.NewScheduler()
	if err != nil {
		c.Close()
		return err
	}

	metrics.Init()
	metrics.RegisterCustomCollector(metrics.NewCustomCollector(c.Store, providers.BreakerStates))

	checks := map[string]health.Check{
		"cache": func(ctx context.Context) error {
			_, err := c.Store.List(ctx)
			return err
		},
		"telegram": func(context.Context) error {
			return cfg.Telegram.Require()
		},
	}
	server := api.NewServer(api.ServerConfig{
		Addr:        cfg.Server.Addr,
		ServiceName: cfg.App.Name,
		Version:     version,
	}, health.New(cfg.App.Name, version, checks, scheduler))

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	if err := scheduler.Start(ctx); err != nil {
		c.Shutdown(server, nil)
		return err
	}

	log.Infow("Calendar bot running", "addr", cfg.Server.Addr, "deployment", ops.DetectDeployment(cfg.Deployment).String())

	select {
	case <-ctx.Done():
		log.Infow("Shutdown signal received")
	case err = <-serverErr:
		if err != nil {
			log.Errorw("HTTP server failed", "error", err)
		}
	}

	c.Shutdown(server, scheduler)
	return err
}
