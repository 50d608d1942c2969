package chart

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

// DefaultTimeout bounds one screenshot run
const DefaultTimeout = 45 * time.Second

// ChartURL is the TradingView chart page rendered by the script
const ChartURL = "https://www.tradingview.com/chart/"

// Config configures the runner
type Config struct {
	// Command runs Script; "node" when empty
	Command   string
	Script    string
	OutputDir string
	Timeout   time.Duration
}

// Runner captures chart screenshots through an external browser script
type Runner struct {
	command   string
	script    string
	outputDir string
	timeout   time.Duration
	now       func() time.Time
	log       *logger.Logger
}

// NewRunner creates a screenshot runner
func NewRunner(cfg Config) *Runner {
	if cfg.Command == "" {
		cfg.Command = "node"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = os.TempDir()
	}

	return &Runner{
		command:   cfg.Command,
		script:    cfg.Script,
		outputDir: cfg.OutputDir,
		timeout:   cfg.Timeout,
		now:       time.Now,
		log:       logger.Get().With("component", "chart_runner"),
	}
}

// Capture renders the chart for instrument and returns the PNG path.
// The process is killed when the timeout elapses.
func (r *Runner) Capture(ctx context.Context, instrument, timeframe string) (string, error) {
	instrument = strings.ToUpper(strings.TrimSpace(instrument))
	if instrument == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "instrument is required")
	}
	if timeframe == "" {
		timeframe = "60"
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create screenshot dir %s", r.outputDir)
	}

	out := filepath.Join(r.outputDir, instrument+"_"+timeframe+"_"+r.now().Format("20060102_150405")+".png")
	target := ChartURL + "?" + url.Values{"symbol": {instrument}, "interval": {timeframe}}.Encode()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.command, r.script, target, out)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		r.log.Warnw("Screenshot timed out", "instrument", instrument, "timeout", r.timeout)
		return "", errors.Wrapf(errors.ErrTimeout, "screenshot %s after %s", instrument, r.timeout)
	}
	if err != nil {
		return "", errors.Wrapf(errors.ErrFetch, "screenshot %s: %v: %s", instrument, err, strings.TrimSpace(output.String()))
	}

	if st, statErr := os.Stat(out); statErr != nil || st.Size() == 0 {
		return "", errors.Wrapf(errors.ErrFetch, "screenshot %s produced no image", instrument)
	}

	r.log.Infow("Captured chart screenshot", "instrument", instrument, "path", out, "duration", time.Since(start))
	return out, nil
}
