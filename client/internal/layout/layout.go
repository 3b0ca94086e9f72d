// Package layout maps version names to the launcher's on-disk paths.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	berrors "github.com/berrylauncher/berry/client/errors"
)

const (
	downloadsDirName = "downloads"
	gameDirName      = "game"
	statusDirName    = "status"

	partSuffix    = ".part"
	archiveSuffix = ".zip"

	registryFileName = "versions.json"
	settingsFileName = "settings.json"
	logFileName      = "berry.log"
)

// Layout is rooted at the application local data directory.
type Layout struct {
	root string
}

// New returns a layout rooted at root.
func New(root string) *Layout {
	return &Layout{root: root}
}

func (l *Layout) Root() string {
	return l.root
}

func (l *Layout) DownloadsDir() string {
	return filepath.Join(l.root, downloadsDirName)
}

func (l *Layout) GameDir() string {
	return filepath.Join(l.root, gameDirName)
}

func (l *Layout) StatusDir() string {
	return filepath.Join(l.root, statusDirName)
}

func (l *Layout) RegistryFile() string {
	return filepath.Join(l.root, registryFileName)
}

func (l *Layout) SettingsFile() string {
	return filepath.Join(l.root, settingsFileName)
}

func (l *Layout) LogFile() string {
	return filepath.Join(l.root, logFileName)
}

// PartPath is where the in-progress download of name is written.
func (l *Layout) PartPath(name string) string {
	return filepath.Join(l.DownloadsDir(), name+partSuffix)
}

// ArchivePath is where the completed download of name is kept until extracted.
func (l *Layout) ArchivePath(name string) string {
	return filepath.Join(l.DownloadsDir(), name+archiveSuffix)
}

// InstallDir is the durable install tree of name.
func (l *Layout) InstallDir(name string) string {
	return filepath.Join(l.GameDir(), name)
}

// StatusFile holds the last lifecycle event of name.
func (l *Layout) StatusFile(name string) string {
	return filepath.Join(l.StatusDir(), name+".json")
}

// EnsureRoots creates the downloads and game directories if absent.
func (l *Layout) EnsureRoots() error {
	for _, dir := range []string{l.DownloadsDir(), l.GameDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return berrors.New(berrors.KindIO, "prepare storage", err)
		}
	}
	return nil
}

// ValidateName checks that name can be used as a single path element.
func ValidateName(name string) error {
	switch {
	case name == "":
		return berrors.Newf(berrors.KindIO, "validate version", "empty version name")
	case name == "." || name == "..":
		return berrors.Newf(berrors.KindIO, "validate version", "invalid version name %q", name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, os.PathSeparator):
		return berrors.Newf(berrors.KindIO, "validate version", "version name %q contains a path separator", name)
	case filepath.VolumeName(name) != "":
		return berrors.Newf(berrors.KindIO, "validate version", "version name %q contains a volume name", name)
	}
	return nil
}

// IsInstalled reports whether the install directory of name exists and is non-empty.
func (l *Layout) IsInstalled(name string) (bool, error) {
	entries, err := os.ReadDir(l.InstallDir(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read install dir: %w", err)
	}
	return len(entries) > 0, nil
}

// InstalledNames lists the version names with a non-empty install directory.
func (l *Layout) InstalledNames() ([]string, error) {
	entries, err := os.ReadDir(l.GameDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read game dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ok, err := l.IsInstalled(entry.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
