package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"calendarbot/internal/adapters/cache"
	"calendarbot/internal/bootstrap"
	"calendarbot/internal/ops"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
	"calendarbot/pkg/telegram"
	"calendarbot/pkg/templates"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the lock holder, running instances, cache files and deployment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.status(cmd.Context())
		},
	}
}

func (a *app) status(ctx context.Context) error {
	lock := ops.NewLockFile(a.cfg.Ops.LockFile)
	holder, _ := lock.Holder()

	procs, err := ops.FindProcesses(a.cfg.Ops.ProcessPatterns)
	if err != nil {
		return err
	}

	text, err := templates.Get().Render("ops/status", map[string]any{
		"Deployment": ops.DetectDeployment(a.cfg.Deployment).String(),
		"LockFile":   lock.Path(),
		"LockPID":    holder,
		"Processes":  procs,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, text)

	store, closeStore, err := cache.New(a.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Get().Warnw("Failed to close cache", "error", err)
		}
	}()

	snapshots, err := store.List(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nCache (%s): %d snapshots\n", a.cfg.Calendar.CacheBackend, len(snapshots))
	if len(snapshots) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(a.out)
	table.SetHeader([]string{"Date", "Saved", "Size", "Location"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	for _, s := range snapshots {
		table.Append([]string{
			s.Date,
			humanize.Time(s.SavedAt),
			humanize.Bytes(uint64(s.Size)),
			s.Location,
		})
	}
	table.Render()
	return nil
}

func (a *app) stopCmd() *cobra.Command {
	var forceKill bool
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the instance holding the lock; --force-kill also stops every matching process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if grace <= 0 {
				grace = a.cfg.Ops.StopGrace
			}

			var patterns []string
			if forceKill {
				patterns = a.cfg.Ops.ProcessPatterns
			}

			stopped, err := ops.StopAll(cmd.Context(), patterns, ops.NewLockFile(a.cfg.Ops.LockFile), grace)
			for _, pid := range stopped {
				fmt.Fprintf(a.out, "stopped %d\n", pid)
			}
			if err != nil {
				return err
			}
			if len(stopped) == 0 {
				fmt.Fprintln(a.out, "no running instances")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&forceKill, "force-kill", false, "stop every process matching BOT_PROCESS_PATTERNS")
	cmd.Flags().DurationVar(&grace, "grace", 0, "time to wait after SIGTERM before SIGKILL (default BOT_STOP_GRACE)")
	return cmd
}

func (a *app) cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete the Telegram webhook and end pending update sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := bootstrap.NewContainer(a.cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			sender, err := c.Sender()
			if err != nil {
				return err
			}
			telegram.ClearSessions(cmd.Context(), sender)
			fmt.Fprintln(a.out, "telegram sessions cleared")
			return nil
		},
	}
}

func (a *app) fixPermissionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-permissions [DIR]",
		Short: "Reset cache directory modes to 0755 and file modes to 0644",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := a.cfg.Calendar.CacheDir
			if len(args) == 1 {
				dir = args[0]
			}

			changed, err := ops.FixPermissions(dir)
			for _, path := range changed {
				fmt.Fprintln(a.out, "fixed", path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d paths updated under %s\n", len(changed), dir)
			return nil
		},
	}
}

func (a *app) screenshotCmd() *cobra.Command {
	var timeframe string

	cmd := &cobra.Command{
		Use:   "screenshot INSTRUMENT",
		Short: "Capture a TradingView chart screenshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap.NewContainer(a.cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			path, err := c.ChartRunner().Capture(cmd.Context(), args[0], timeframe)
			if err != nil {
				if errors.Is(err, errors.ErrInvalidInput) {
					return errors.Wrap(errors.ErrConfig, err.Error())
				}
				return err
			}
			fmt.Fprintln(a.out, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&timeframe, "timeframe", "60", "chart interval, e.g. 15, 60, D")
	return cmd
}
