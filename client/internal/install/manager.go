// Package install drives a version through fetch, verify, extract and
// permission fix-up, and keeps the install tree consistent across failures.
package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	berrors "github.com/berrylauncher/berry/client/errors"
	"github.com/berrylauncher/berry/client/internal/install/downloader"
	"github.com/berrylauncher/berry/client/internal/install/extract"
	"github.com/berrylauncher/berry/client/internal/install/verify"
	"github.com/berrylauncher/berry/client/internal/layout"
	"github.com/berrylauncher/berry/client/internal/metrics"
	"github.com/berrylauncher/berry/client/internal/platform"
)

// Fetcher downloads an endpoint into a file.
type Fetcher interface {
	DownloadToFile(ctx context.Context, endpoint downloader.Endpoint, dstFile string, onProgress downloader.ProgressFunc) (int64, error)
}

// Extractor unpacks an archive on a worker and reports on the returned channel.
type Extractor interface {
	Start(ctx context.Context, archive, target string) <-chan error
}

// Request describes one install run.
type Request struct {
	Version    string
	Endpoint   downloader.Endpoint
	Executable string
	// Digest is optional; see verify.ParseDigest for the format.
	Digest      string
	Platform    string
	NeedsRunner bool
}

// Manager runs install pipelines and uninstalls versions.
type Manager struct {
	layout      *layout.Layout
	fetcher     Fetcher
	extractor   Extractor
	permissions platform.PermissionFixer
	registry    *Registry
	observer    Observer
	metrics     *metrics.ClientMetrics
}

// Option configures a Manager.
type Option func(*Manager)

func WithFetcher(f Fetcher) Option {
	return func(m *Manager) { m.fetcher = f }
}

func WithExtractor(e Extractor) Option {
	return func(m *Manager) { m.extractor = e }
}

func WithPermissionFixer(p platform.PermissionFixer) Option {
	return func(m *Manager) { m.permissions = p }
}

func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

func WithMetrics(cm *metrics.ClientMetrics) Option {
	return func(m *Manager) { m.metrics = cm }
}

// NewManager creates a Manager over l. Defaults: a plain downloader, the
// rejecting extractor, the host permission fixer and no observer.
func NewManager(l *layout.Layout, opts ...Option) *Manager {
	m := &Manager{
		layout:      l,
		fetcher:     downloader.New(),
		extractor:   extract.New(extract.PathPolicyReject),
		permissions: platform.Host(),
		registry:    NewRegistry(l.RegistryFile()),
		observer:    nopObserver{},
		metrics:     metrics.NewClientMetrics(false),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.observer == nil {
		m.observer = nopObserver{}
	}
	return m
}

// Registry returns the installed versions registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Run installs req.Version from scratch. Runs for the same version must not
// overlap. The returned error is nil exactly when the version was activated.
func (m *Manager) Run(ctx context.Context, req Request) error {
	if err := layout.ValidateName(req.Version); err != nil {
		return err
	}

	r := &run{
		m:     m,
		req:   req,
		id:    uuid.NewString(),
		state: StateIdle,
	}
	r.log = log.WithFields(log.Fields{
		"version": req.Version,
		"run":     r.id,
	})
	return r.execute(ctx)
}

type run struct {
	m     *Manager
	req   Request
	id    string
	log   *log.Entry
	state State
}

func (r *run) execute(ctx context.Context) error {
	started := time.Now()
	r.log.Infof("install requested from %s", r.req.Endpoint.URL)

	var (
		l       = r.m.layout
		part    = l.PartPath(r.req.Version)
		archive = l.ArchivePath(r.req.Version)
		target  = l.InstallDir(r.req.Version)
	)

	if err := r.prepare(ctx, part, archive, target); err != nil {
		return r.finish(ctx, started, err)
	}

	r.transition(StateFetching)
	r.emit(Event{Kind: EventStarted})

	err := r.stage(ctx, metrics.StageFetch, func() error {
		_, err := r.m.fetcher.DownloadToFile(ctx, r.req.Endpoint, part, func(percent int) {
			r.emit(Event{Kind: EventProgress, Percent: percent})
		})
		return err
	})
	if err != nil {
		if rmErr := removeIfExists(part); rmErr != nil {
			r.log.Warnf("failed to remove partial download: %v", rmErr)
		}
		return r.finish(ctx, started, err)
	}

	if err := os.Rename(part, archive); err != nil {
		return r.finish(ctx, started, berrors.New(berrors.KindIO, "finalize download", err))
	}

	if r.req.Digest != "" {
		r.transition(StateVerifying)
		r.emit(Event{Kind: EventHashChecking})

		err := r.stage(ctx, metrics.StageVerify, func() error {
			return verify.Verify(archive, r.req.Digest)
		})
		if err != nil {
			if berrors.KindOf(err) == berrors.KindIntegrity {
				if rmErr := removeIfExists(archive); rmErr != nil {
					r.log.Warnf("failed to remove rejected archive: %v", rmErr)
				}
			}
			return r.finish(ctx, started, err)
		}
	}

	r.transition(StateExtracting)
	r.emit(Event{Kind: EventFinishing})

	err = r.stage(ctx, metrics.StageExtract, func() error {
		return <-r.m.extractor.Start(ctx, archive, target)
	})
	if err != nil {
		return r.finish(ctx, started, err)
	}
	if err := removeIfExists(archive); err != nil {
		r.log.Warnf("failed to remove extracted archive: %v", err)
	}

	r.transition(StateFixingPermissions)
	var warning string
	if r.req.Executable != "" {
		err := r.stage(ctx, metrics.StagePermissions, func() error {
			return r.m.permissions.MakeExecutable(ctx, filepath.Join(target, r.req.Executable))
		})
		if err != nil {
			if !r.m.permissions.BestEffort() {
				return r.finish(ctx, started, err)
			}
			warning = err.Error()
			r.log.Warnf("permission fix-up failed, continuing: %v", err)
		}
	}

	rec := Record{
		Name:        r.req.Version,
		Executable:  r.req.Executable,
		Platform:    r.req.Platform,
		NeedsRunner: r.req.NeedsRunner,
		InstalledAt: time.Now().UTC(),
	}
	if err := r.m.registry.Put(context.WithoutCancel(ctx), rec); err != nil {
		r.log.Warnf("failed to record installed version: %v", err)
		if warning == "" {
			warning = err.Error()
		}
	}

	r.transition(StateActivated)
	r.emit(Event{Kind: EventDone, Warning: warning})
	r.m.metrics.RecordRun(ctx, metrics.OutcomeSuccess, time.Since(started))
	r.log.Infof("installed in %s", time.Since(started).Round(time.Millisecond))
	return nil
}

// prepare resets the transient artifacts, the install tree and the registry
// record of the version.
func (r *run) prepare(ctx context.Context, part, archive, target string) error {
	if err := r.m.layout.EnsureRoots(); err != nil {
		return err
	}

	var merr *multierror.Error
	for _, stale := range []string{part, archive} {
		if err := removeIfExists(stale); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if err := os.RemoveAll(target); err != nil {
		merr = multierror.Append(merr, err)
	}
	if err := r.m.registry.Remove(context.WithoutCancel(ctx), r.req.Version); err != nil {
		merr = multierror.Append(merr, err)
	}
	if err := berrors.FormatErrorOrNil(merr); err != nil {
		return berrors.New(berrors.KindIO, "reset version", err)
	}

	if err := os.MkdirAll(target, 0o755); err != nil {
		return berrors.New(berrors.KindIO, "create install dir", err)
	}
	return nil
}

func (r *run) stage(ctx context.Context, stage metrics.Stage, fn func() error) error {
	started := time.Now()
	err := fn()
	r.m.metrics.RecordStage(ctx, stage, outcomeOf(err), time.Since(started))
	return err
}

// finish moves the run to Failed or Cancelled and reports err.
func (r *run) finish(ctx context.Context, started time.Time, err error) error {
	err = bindVersion(err, r.req.Version)

	kind, outcome, state := EventFailed, metrics.OutcomeFailure, StateFailed
	if berrors.KindOf(err) == berrors.KindCancelled || (ctx.Err() != nil && errors.Is(err, context.Canceled)) {
		kind, outcome, state = EventCancelled, metrics.OutcomeCancelled, StateCancelled
	}

	r.transition(state)
	r.emit(Event{Kind: kind, Err: err})
	r.m.metrics.RecordRun(context.WithoutCancel(ctx), outcome, time.Since(started))
	r.log.Errorf("install %s: %v", state, err)
	return err
}

func (r *run) transition(to State) {
	r.log.Debugf("state %s -> %s", r.state, to)
	r.state = to
}

func (r *run) emit(e Event) {
	e.Version = r.req.Version
	e.RunID = r.id
	e.State = r.state
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	r.m.observer.OnLifecycleEvent(r.req.Version, e)
}

func outcomeOf(err error) metrics.Outcome {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case berrors.KindOf(err) == berrors.KindCancelled:
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeFailure
	}
}

func bindVersion(err error, version string) error {
	var e *berrors.Error
	if errors.As(err, &e) {
		if top, ok := err.(*berrors.Error); ok && top.Version == "" {
			return top.WithVersion(version)
		}
		return err
	}
	return fmt.Errorf("version %s: %w", version, err)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
