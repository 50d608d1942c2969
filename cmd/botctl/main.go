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
	"calendarbot/internal/bootstrap"
	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

// app carries state shared by the subcommands
type app struct {
	cfg   *config.Config
	debug bool
	out   io.Writer
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout))
}

func execute(args []string, stdout io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	_ = logger.Sync()
	if err == nil {
		return 0
	}

	fmt.Fprintln(os.Stderr, "error:", err)
	if errors.Is(err, errors.ErrConfig) {
		return 1
	}
	return 2
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	a := &app{out: stdout}

	root := &cobra.Command{
		Use:           "botctl",
		Short:         "Operate the calendar bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := bootstrap.InitLogger(cfg, a.debug); err != nil {
				return errors.Wrapf(errors.ErrConfig, "init logger: %v", err)
			}
			a.cfg = cfg
			return nil
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Wrap(errors.ErrConfig, err.Error())
	})
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.statusCmd(),
		a.stopCmd(),
		a.cleanupCmd(),
		a.fixPermissionsCmd(),
		a.screenshotCmd(),
	)
	return root
}
