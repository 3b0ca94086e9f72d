// Package settings persists the launcher preferences in settings.json.
package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/berrylauncher/berry/client/internal/catalog"
	"github.com/berrylauncher/berry/client/internal/install"
	"github.com/berrylauncher/berry/client/internal/install/downloader"
	"github.com/berrylauncher/berry/client/internal/install/extract"
	"github.com/berrylauncher/berry/client/internal/platform"
	"github.com/berrylauncher/berry/util"
)

// Settings are the persisted launcher preferences.
type Settings struct {
	CheckForNewVersionOnLoad bool `json:"checkForNewVersionOnLoad"`
	AllowNotifications       bool `json:"allowNotifications"`
	UseWineOnUnixWhenNeeded  bool `json:"useWineOnUnixWhenNeeded"`
	// WineOnUnixCommand is the runner command line, see platform.LaunchOptions.
	WineOnUnixCommand string `json:"wineOnUnixCommand"`

	CatalogURL             string        `json:"catalogUrl"`
	ArchivePathPolicy      string        `json:"archivePathPolicy"`
	StallTimeout           time.Duration `json:"stallTimeout"`
	MaxConcurrentDownloads int           `json:"maxConcurrentDownloads"`
}

// Default returns the settings of a fresh installation.
func Default() Settings {
	return Settings{
		CheckForNewVersionOnLoad: true,
		AllowNotifications:       true,
		UseWineOnUnixWhenNeeded:  false,
		WineOnUnixCommand:        platform.DefaultRunnerCommand,
		CatalogURL:               catalog.DefaultURL,
		ArchivePathPolicy:        extract.PathPolicyReject.String(),
		StallTimeout:             downloader.DefaultStallTimeout,
		MaxConcurrentDownloads:   install.DefaultMaxConcurrentDownloads,
	}
}

// Load reads file. A missing file yields the defaults; fields absent from the
// file keep their default values.
func Load(file string) (Settings, error) {
	s := Default()
	if _, err := util.ReadJson(file, &s); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debugf("no settings at %s, using defaults", file)
			return Default(), nil
		}
		return Default(), fmt.Errorf("read settings %s: %w", file, err)
	}
	s.normalize()
	return s, nil
}

// Save writes s to file atomically.
func Save(ctx context.Context, file string, s Settings) error {
	s.normalize()
	if err := util.WriteJson(ctx, file, s); err != nil {
		return fmt.Errorf("write settings %s: %w", file, err)
	}
	return nil
}

// Validate checks the fields that are parsed later.
func (s Settings) Validate() error {
	if _, err := extract.ParsePathPolicy(s.ArchivePathPolicy); err != nil {
		return err
	}
	if s.StallTimeout < 0 {
		return fmt.Errorf("stall timeout must not be negative: %s", s.StallTimeout)
	}
	return nil
}

// LaunchOptions maps the runner preferences.
func (s Settings) LaunchOptions() platform.LaunchOptions {
	return platform.LaunchOptions{
		UseRunner:     s.UseWineOnUnixWhenNeeded,
		RunnerCommand: s.WineOnUnixCommand,
	}
}

func (s *Settings) normalize() {
	d := Default()
	if s.WineOnUnixCommand == "" {
		s.WineOnUnixCommand = d.WineOnUnixCommand
	}
	if s.CatalogURL == "" {
		s.CatalogURL = d.CatalogURL
	}
	if s.ArchivePathPolicy == "" {
		s.ArchivePathPolicy = d.ArchivePathPolicy
	}
	if s.StallTimeout <= 0 {
		s.StallTimeout = d.StallTimeout
	}
	if s.MaxConcurrentDownloads < 1 {
		s.MaxConcurrentDownloads = d.MaxConcurrentDownloads
	}
}
