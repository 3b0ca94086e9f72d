package install

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/berrylauncher/berry/client/internal/layout"
	"github.com/berrylauncher/berry/util"
)

const statusDirPollInterval = 300 * time.Millisecond

// Status is the last lifecycle event of a version, as stored on disk.
type Status struct {
	Event     EventKind `json:"event"`
	Version   string    `json:"version"`
	RunID     string    `json:"runId,omitempty"`
	State     string    `json:"state"`
	Percent   int       `json:"percent"`
	Error     string    `json:"error,omitempty"`
	Warning   string    `json:"warning,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Terminal reports whether the status ends a run or an uninstall.
func (s Status) Terminal() bool {
	return s.Event.Terminal()
}

// Failed reports whether the status is a failure or a cancellation.
func (s Status) Failed() bool {
	return s.Event == EventFailed || s.Event == EventCancelled || s.Event == EventUninstallFailed
}

func statusFromEvent(e Event) Status {
	s := Status{
		Event:     e.Kind,
		Version:   e.Version,
		RunID:     e.RunID,
		State:     e.State.String(),
		Percent:   e.Percent,
		Warning:   e.Warning,
		UpdatedAt: e.Time,
	}
	if e.Err != nil {
		s.Error = e.Err.Error()
	}
	return s
}

// StatusHandler reads and writes the status file of one version so that
// another process can follow a run.
type StatusHandler struct {
	statusFile string
}

// NewStatusHandler returns the handler for version name under l.
func NewStatusHandler(l *layout.Layout, name string) *StatusHandler {
	return &StatusHandler{statusFile: l.StatusFile(name)}
}

// Write replaces the status file atomically.
func (sh *StatusHandler) Write(ctx context.Context, status Status) error {
	if err := util.WriteJson(ctx, sh.statusFile, status); err != nil {
		return fmt.Errorf("write status %s: %w", sh.statusFile, err)
	}
	return nil
}

// Read returns the current status.
func (sh *StatusHandler) Read() (Status, error) {
	data, err := os.ReadFile(sh.statusFile)
	if err != nil {
		return Status{}, err
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return Status{}, fmt.Errorf("invalid status format: %w", err)
	}
	return status, nil
}

// Cleanup removes the status file if it exists.
func (sh *StatusHandler) Cleanup() error {
	if err := util.RemoveJson(sh.statusFile); err != nil {
		return err
	}
	log.Debugf("deleted status file: %s", sh.statusFile)
	return nil
}

// Watch blocks until the status file holds a terminal event and returns it.
func (sh *StatusHandler) Watch(ctx context.Context) (Status, error) {
	log.Infof("start watching status: %s", sh.statusFile)

	// the run may have finished before we started watching
	if status, err := sh.Read(); err == nil && status.Terminal() {
		return status, nil
	}

	dir := filepath.Dir(sh.statusFile)
	if err := waitForDir(ctx, dir); err != nil {
		return Status{}, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return Status{}, fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Warnf("failed to close watcher: %v", err)
		}
	}()

	// the file is replaced by rename, so watch the directory
	if err := watcher.Add(dir); err != nil {
		return Status{}, fmt.Errorf("failed to watch directory: %w", err)
	}

	// a write may have landed between the first read and watcher.Add
	if status, err := sh.Read(); err == nil && status.Terminal() {
		return status, nil
	}

	for {
		select {
		case <-ctx.Done():
			return Status{}, ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return Status{}, errors.New("watcher closed unexpectedly")
			}
			if filepath.Clean(event.Name) != filepath.Clean(sh.statusFile) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			status, err := sh.Read()
			if err != nil {
				log.Debugf("error while reading status: %v", err)
				continue
			}
			log.Debugf("status update: %s %d%%", status.Event, status.Percent)
			if status.Terminal() {
				return status, nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return Status{}, errors.New("watcher closed unexpectedly")
			}
			return Status{}, fmt.Errorf("watcher error: %w", err)
		}
	}
}

func waitForDir(ctx context.Context, dir string) error {
	ticker := time.NewTicker(statusDirPollInterval)
	defer ticker.Stop()

	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// StatusObserver mirrors lifecycle events into the per-version status files.
// Progress is written only when the percentage changes.
type StatusObserver struct {
	layout *layout.Layout

	mu          sync.Mutex
	lastPercent map[string]int
}

func NewStatusObserver(l *layout.Layout) *StatusObserver {
	return &StatusObserver{
		layout:      l,
		lastPercent: make(map[string]int),
	}
}

func (o *StatusObserver) OnLifecycleEvent(version string, event Event) {
	o.mu.Lock()
	if event.Kind == EventProgress {
		if last, ok := o.lastPercent[version]; ok && last == event.Percent {
			o.mu.Unlock()
			return
		}
		o.lastPercent[version] = event.Percent
	} else if event.Kind.Terminal() || event.Kind == EventStarted {
		delete(o.lastPercent, version)
	}
	o.mu.Unlock()

	if err := NewStatusHandler(o.layout, version).Write(context.Background(), statusFromEvent(event)); err != nil {
		log.Warnf("failed to record status of %s: %v", version, err)
	}
}
