package ops

import (
	"context"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/common"
	"github.com/shirou/gopsutil/v4/process"

	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

// procRoot overrides the procfs mount read by gopsutil; empty means the host default
var procRoot = ""

// killWait is how long Stop waits after SIGKILL before giving up
var killWait = time.Second

// Process is a running process whose command line matched a pattern
type Process struct {
	PID     int
	Cmdline string
}

func procContext(ctx context.Context) context.Context {
	if procRoot == "" {
		return ctx
	}
	return context.WithValue(ctx, common.EnvKey, common.EnvMap{common.HostProcEnvKey: procRoot})
}

// FindProcesses lists processes whose command line contains any of patterns,
// excluding the calling process. Results are ordered by pid.
func FindProcesses(patterns []string) ([]Process, error) {
	ctx := procContext(context.Background())

	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list processes")
	}

	self := int32(os.Getpid())
	var found []Process
	for _, pid := range pids {
		if pid == self {
			continue
		}

		// pids come straight from procfs, so skip the existence check in NewProcess
		p := &process.Process{Pid: pid}
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil || cmdline == "" {
			continue
		}
		cmdline = strings.TrimSpace(cmdline)

		if slices.ContainsFunc(patterns, func(pattern string) bool {
			return pattern != "" && strings.Contains(cmdline, pattern)
		}) {
			found = append(found, Process{PID: int(pid), Cmdline: cmdline})
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].PID < found[j].PID })
	return found, nil
}

// Alive reports whether pid exists and is not a zombie
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}

	ctx := procContext(context.Background())
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false
	}

	status, err := p.StatusWithContext(ctx)
	if err != nil {
		running, err := p.IsRunningWithContext(ctx)
		return err == nil && running
	}
	return !slices.Contains(status, process.Zombie)
}

// Stop sends SIGTERM, waits grace, and escalates to SIGKILL when the process survives.
// It returns ErrInternal when the process is still alive afterwards.
func Stop(ctx context.Context, pid int, grace time.Duration) error {
	log := logger.Get().With("component", "ops", "pid", pid)

	if !Alive(pid) {
		return nil
	}
	p, err := process.NewProcessWithContext(procContext(ctx), int32(pid))
	if err != nil {
		return nil
	}

	log.Infow("Stopping process", "signal", "SIGTERM", "grace", grace)
	if err := p.TerminateWithContext(ctx); err != nil && Alive(pid) {
		return errors.Wrapf(err, "send SIGTERM to %d", pid)
	}

	if err := waitExit(ctx, pid, grace); err != nil {
		return err
	}
	if !Alive(pid) {
		log.Infow("Process stopped")
		return nil
	}

	log.Warnw("Process ignored SIGTERM, sending SIGKILL")
	if err := p.KillWithContext(ctx); err != nil && Alive(pid) {
		return errors.Wrapf(err, "send SIGKILL to %d", pid)
	}

	if err := waitExit(ctx, pid, killWait); err != nil {
		return err
	}
	if Alive(pid) {
		return errors.Wrapf(errors.ErrInternal, "process %d survived SIGKILL", pid)
	}

	log.Infow("Process killed")
	return nil
}

// StopAll stops every process matching patterns plus the lock holder, if any.
// It returns the stopped pids and a combined error for the survivors.
func StopAll(ctx context.Context, patterns []string, lock *LockFile, grace time.Duration) ([]int, error) {
	procs, err := FindProcesses(patterns)
	if err != nil {
		return nil, err
	}

	pids := make([]int, 0, len(procs)+1)
	seen := make(map[int]bool, len(procs)+1)
	for _, p := range procs {
		pids = append(pids, p.PID)
		seen[p.PID] = true
	}
	if lock != nil {
		if holder, ok := lock.Holder(); ok && !seen[holder] && holder != os.Getpid() {
			pids = append(pids, holder)
		}
	}

	var stopped []int
	failures := &errors.MultiError{}
	for _, pid := range pids {
		if err := Stop(ctx, pid, grace); err != nil {
			failures.Add(err)
			continue
		}
		stopped = append(stopped, pid)
	}

	if lock != nil && !failures.HasErrors() {
		lock.Holder() // removes the lock left by a stopped holder
	}
	return stopped, failures.ToError()
}

// waitExit polls until pid is gone or d elapses
func waitExit(ctx context.Context, pid int, d time.Duration) error {
	deadline := time.NewTimer(d)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "wait for process exit")
		case <-deadline.C:
			return nil
		case <-tick.C:
			if !Alive(pid) {
				return nil
			}
		}
	}
}
