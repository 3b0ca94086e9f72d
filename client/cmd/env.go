package cmd

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/berrylauncher/berry/client/internal/install"
	"github.com/berrylauncher/berry/client/internal/install/downloader"
	"github.com/berrylauncher/berry/client/internal/install/extract"
	"github.com/berrylauncher/berry/client/internal/layout"
	"github.com/berrylauncher/berry/client/internal/metrics"
	"github.com/berrylauncher/berry/client/internal/platform"
	"github.com/berrylauncher/berry/client/internal/settings"
)

// env is the state shared by the commands of one invocation.
type env struct {
	layout   *layout.Layout
	settings settings.Settings
	strategy platform.Strategy
}

func loadEnv() (*env, error) {
	l := layout.New(dataDir)

	s, err := settings.Load(l.SettingsFile())
	if err != nil {
		log.Warnf("falling back to default settings: %v", err)
	}

	if unsafeArchivePaths {
		s.ArchivePathPolicy = extract.PathPolicyJoin.String()
	}
	if stallTimeout > 0 {
		s.StallTimeout = stallTimeout
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &env{
		layout:   l,
		settings: s,
		strategy: platform.Host(),
	}, nil
}

func (e *env) manager(cm *metrics.ClientMetrics, observers ...install.Observer) (*install.Manager, error) {
	policy, err := extract.ParsePathPolicy(e.settings.ArchivePathPolicy)
	if err != nil {
		return nil, err
	}

	all := install.Observers{install.NewStatusObserver(e.layout)}
	all = append(all, observers...)

	return install.NewManager(e.layout,
		install.WithFetcher(downloader.New(downloader.WithStallTimeout(e.settings.StallTimeout))),
		install.WithExtractor(extract.New(policy)),
		install.WithPermissionFixer(e.strategy),
		install.WithObserver(all),
		install.WithMetrics(cm),
	), nil
}

func printObserver(cmd *cobra.Command, legacy bool) install.Observer {
	out := cmd.OutOrStdout()
	var mu sync.Mutex
	return install.ObserverFunc(func(_ string, event install.Event) {
		mu.Lock()
		defer mu.Unlock()
		if legacy {
			_, _ = fmt.Fprintf(out, "%s %s\n", event.Kind, event.LegacyPayload())
			return
		}
		_, _ = fmt.Fprintln(out, event.String())
	})
}
