// Package launch starts installed versions and keeps a version from running twice.
package launch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	berrors "github.com/berrylauncher/berry/client/errors"
	"github.com/berrylauncher/berry/client/internal/platform"
)

const defaultWaitInterval = time.Second

// SpawnResult describes a started process. The process is not monitored after start.
type SpawnResult struct {
	PID  int
	Path string
	Args []string
}

// Supervisor launches entry points through the host strategy.
type Supervisor struct {
	strategy  platform.Invoker
	processes ProcessLister
}

// NewSupervisor creates a Supervisor. A nil lister reads the host process table.
func NewSupervisor(strategy platform.Invoker, processes ProcessLister) *Supervisor {
	if processes == nil {
		processes = SystemProcesses{}
	}
	return &Supervisor{strategy: strategy, processes: processes}
}

// Launch starts installDir/executable unless an instance of it is already running.
func (s *Supervisor) Launch(ctx context.Context, installDir, executable string, opts platform.LaunchOptions) (SpawnResult, error) {
	path, err := filepath.Abs(filepath.Join(installDir, executable))
	if err != nil {
		return SpawnResult{}, berrors.New(berrors.KindIO, "resolve entry point", err)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return SpawnResult{}, berrors.Newf(berrors.KindNotFound, "launch", "entry point %s does not exist", path)
		}
		return SpawnResult{}, berrors.New(berrors.KindIO, "launch", err)
	}

	running, err := s.Running(ctx, path)
	if err != nil {
		return SpawnResult{}, err
	}
	if len(running) > 0 {
		return SpawnResult{}, berrors.Newf(berrors.KindAlreadyRunning, "launch", "%s is already running (pid %d)", path, running[0].PID)
	}

	cmd, err := s.strategy.Command(installDir, path, opts)
	if err != nil {
		return SpawnResult{}, err
	}

	if err := cmd.Start(); err != nil {
		return SpawnResult{}, berrors.New(berrors.KindSpawn, "launch", err)
	}

	result := SpawnResult{
		PID:  cmd.Process.Pid,
		Path: cmd.Path,
		Args: cmd.Args,
	}
	if err := cmd.Process.Release(); err != nil {
		log.Warnf("failed to release process %d: %v", result.PID, err)
	}

	log.Infof("started %s", result)
	return result, nil
}

// Running returns the processes whose executable image is path, or lies inside
// path when path is a bundle directory.
func (s *Supervisor) Running(ctx context.Context, path string) ([]Process, error) {
	processes, err := s.processes.List(ctx)
	if err != nil {
		return nil, berrors.New(berrors.KindIO, "scan processes", err)
	}

	candidates := []string{path}
	if resolved, err := filepath.EvalSymlinks(path); err == nil && resolved != path {
		candidates = append(candidates, resolved)
	}

	var matches []Process
	for _, p := range processes {
		for _, candidate := range candidates {
			if matchesEntryPoint(p.Exe, candidate) {
				matches = append(matches, p)
				break
			}
		}
	}
	return matches, nil
}

// Wait blocks until no process matches path, or ctx is done.
func (s *Supervisor) Wait(ctx context.Context, path string, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultWaitInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		running, err := s.Running(ctx, path)
		if err != nil {
			return err
		}
		if len(running) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return berrors.New(berrors.KindCancelled, "wait", ctx.Err())
		case <-ticker.C:
		}
	}
}

func matchesEntryPoint(exe, path string) bool {
	exe = filepath.Clean(exe)
	path = filepath.Clean(path)
	if sameFile(exe, path) {
		return true
	}
	rel, err := filepath.Rel(path, exe)
	if err != nil {
		return false
	}
	return rel != "." && filepath.IsLocal(rel) && !strings.HasPrefix(rel, "..")
}

func sameFile(a, b string) bool {
	if a == b {
		return true
	}
	return os.PathSeparator == '\\' && strings.EqualFold(a, b)
}

func (r SpawnResult) String() string {
	return fmt.Sprintf("pid %d: %s", r.PID, strings.Join(r.Args, " "))
}
