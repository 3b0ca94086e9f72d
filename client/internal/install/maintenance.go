package install

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	berrors "github.com/berrylauncher/berry/client/errors"
	"github.com/berrylauncher/berry/client/internal/layout"
)

// Installed is a version present on disk.
type Installed struct {
	Name string
	// Record is the zero value when the version has no registry entry.
	Record     Record
	Registered bool
	Size       int64
}

// Uninstall deletes the install tree of name together with its registry
// record and status file. A missing tree is not an error.
func (m *Manager) Uninstall(ctx context.Context, name string) error {
	if err := layout.ValidateName(name); err != nil {
		return err
	}

	emit := func(kind EventKind, err error) {
		m.observer.OnLifecycleEvent(name, Event{Kind: kind, Version: name, Err: err, Time: time.Now()})
	}

	if err := NewStatusHandler(m.layout, name).Cleanup(); err != nil {
		log.Warnf("failed to remove the status file of %s: %v", name, err)
	}

	if err := os.RemoveAll(m.layout.InstallDir(name)); err != nil {
		uerr := berrors.New(berrors.KindUninstall, "uninstall", err).WithVersion(name)
		emit(EventUninstallFailed, uerr)
		return uerr
	}

	if err := m.registry.Remove(ctx, name); err != nil {
		log.Warnf("failed to drop %s from the registry: %v", name, err)
	}

	log.Infof("uninstalled %s", name)
	emit(EventUninstalled, nil)
	return nil
}

// UninstallAll removes every installed or registered version and reports all failures together.
func (m *Manager) UninstallAll(ctx context.Context) error {
	names, err := m.layout.InstalledNames()
	if err != nil {
		return berrors.New(berrors.KindIO, "list", err)
	}
	records, err := m.registry.List()
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
	}
	for _, rec := range records {
		if !seen[rec.Name] {
			seen[rec.Name] = true
			names = append(names, rec.Name)
		}
	}

	var merr *multierror.Error
	for _, name := range names {
		if err := m.Uninstall(ctx, name); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return berrors.FormatErrorOrNil(merr)
}

// Size returns the total size in bytes of the regular files in the install tree of name.
func (m *Manager) Size(name string) (int64, error) {
	if err := layout.ValidateName(name); err != nil {
		return 0, err
	}

	root := m.layout.InstallDir(name)
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return 0, berrors.Newf(berrors.KindNotFound, "size", "version %s is not installed", name)
		}
		return 0, berrors.New(berrors.KindIO, "size", err)
	}

	var size int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	if err != nil {
		return 0, berrors.New(berrors.KindIO, "size", err)
	}
	return size, nil
}

// List merges the registry with the install directories on disk. Registered
// versions whose tree is gone are left out.
func (m *Manager) List() ([]Installed, error) {
	names, err := m.layout.InstalledNames()
	if err != nil {
		return nil, berrors.New(berrors.KindIO, "list", err)
	}
	records, err := m.registry.List()
	if err != nil {
		return nil, err
	}

	byName := make(map[string]Record, len(records))
	for _, rec := range records {
		byName[rec.Name] = rec
	}

	result := make([]Installed, 0, len(names))
	for _, name := range names {
		size, err := m.Size(name)
		if err != nil {
			return nil, err
		}
		rec, ok := byName[name]
		result = append(result, Installed{Name: name, Record: rec, Registered: ok, Size: size})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}
