package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	berrors "github.com/berrylauncher/berry/client/errors"
	"github.com/berrylauncher/berry/client/internal/catalog"
	"github.com/berrylauncher/berry/client/internal/install"
	"github.com/berrylauncher/berry/client/internal/install/downloader"
	"github.com/berrylauncher/berry/client/internal/metrics"
	"github.com/berrylauncher/berry/version"
)

const updateCheckTimeout = 5 * time.Second

var (
	downloadURL          string
	downloadExecutable   string
	downloadDigest       string
	downloadSize         int64
	downloadCatalog      string
	downloadPlatform     string
	downloadMetricsFile  string
	downloadLegacyEvents bool

	downloadCmd = &cobra.Command{
		Use:   "download <version> [version...]",
		Short: "Download and install versions",
		Long: `Download and install one or more versions.

With --url a single version is installed from the given archive. Otherwise every
version is looked up in the catalog and the build for this platform is chosen.`,
		Args: cobra.MinimumNArgs(1),
		RunE: downloadFunc,
	}
)

func init() {
	downloadCmd.Flags().StringVar(&downloadURL, "url", "", "archive URL, bypasses the catalog")
	downloadCmd.Flags().StringVar(&downloadExecutable, "executable", "", "entry point inside the archive, used with --url")
	downloadCmd.Flags().StringVar(&downloadDigest, "digest", "", "expected archive digest, [sha512:|blake2b:|blake3:]<hex>")
	downloadCmd.Flags().Int64Var(&downloadSize, "size", 0, "advisory archive size in bytes, used when the server does not send one")
	downloadCmd.Flags().StringVar(&downloadCatalog, "catalog", "", "catalog URL or file (default from settings)")
	downloadCmd.Flags().StringVar(&downloadPlatform, "platform", catalog.HostPlatform(), "catalog platform to install")
	downloadCmd.Flags().StringVar(&downloadMetricsFile, "metrics-file", "", "write install timings in Prometheus text format to this file")
	downloadCmd.Flags().BoolVar(&downloadLegacyEvents, "legacy-events", false, "print events as <event> <name>[:<percent>]")
}

func downloadFunc(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}

	if downloadURL != "" && len(args) != 1 {
		return errors.New("--url installs exactly one version")
	}

	ctx := cmd.Context()
	requests, err := downloadRequests(ctx, e, args)
	if err != nil {
		return err
	}

	cm := metrics.NewClientMetrics(downloadMetricsFile != "")
	mgr, err := e.manager(cm, printObserver(cmd, downloadLegacyEvents))
	if err != nil {
		return err
	}

	var update version.UpdateInfo
	g, gctx := errgroup.WithContext(ctx)
	if e.settings.CheckForNewVersionOnLoad {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(gctx, updateCheckTimeout)
			defer cancel()
			info, err := version.NewChecker("", nil).Check(checkCtx)
			if err != nil {
				log.Debugf("launcher update check failed: %v", err)
				return nil
			}
			update = info
			return nil
		})
	}

	var runErr *multierror.Error
	queue := install.NewQueue(mgr, e.settings.MaxConcurrentDownloads)
	g.Go(func() error {
		for res := range queue.Results() {
			if res.Err != nil {
				runErr = multierror.Append(runErr, res.Err)
			}
		}
		return nil
	})

	var enqueueErrs []error
	for _, req := range requests {
		if err := queue.Enqueue(ctx, req); err != nil {
			enqueueErrs = append(enqueueErrs, err)
		}
	}
	queue.Wait()

	if err := g.Wait(); err != nil {
		return err
	}
	runErr = multierror.Append(runErr, enqueueErrs...)

	if downloadMetricsFile != "" {
		if err := writeMetrics(cm, downloadMetricsFile); err != nil {
			log.Warnf("failed to write metrics: %v", err)
		}
	}

	if update.UpdateAvailable {
		cmd.Printf("A new launcher version is available: %s (running %s)\n", update.Latest, update.Current)
	}

	if err := berrors.FormatErrorOrNil(runErr); err != nil {
		if e.settings.AllowNotifications {
			cmd.PrintErrln("Some downloads have failed.")
		}
		return err
	}
	if e.settings.AllowNotifications {
		cmd.Println("All downloads have completed.")
	}
	return nil
}

func downloadRequests(ctx context.Context, e *env, names []string) ([]install.Request, error) {
	if downloadURL != "" {
		return []install.Request{{
			Version:    names[0],
			Endpoint:   downloader.Endpoint{URL: downloadURL, ContentLength: downloadSize},
			Executable: downloadExecutable,
			Digest:     downloadDigest,
			Platform:   downloadPlatform,
		}}, nil
	}

	source := downloadCatalog
	if source == "" {
		source = e.settings.CatalogURL
	}
	c, err := catalog.NewLoader(nil).Load(ctx, source)
	if err != nil {
		return nil, err
	}

	requests := make([]install.Request, 0, len(names))
	for _, name := range names {
		entry, err := c.Select(name, downloadPlatform, e.settings.UseWineOnUnixWhenNeeded)
		if err != nil {
			return nil, err
		}

		digest := entry.Digest
		if downloadDigest != "" && len(names) == 1 {
			digest = downloadDigest
		}

		requests = append(requests, install.Request{
			Version:     name,
			Endpoint:    downloader.Endpoint{URL: entry.URL, ContentLength: downloadSize},
			Executable:  entry.Executable,
			Digest:      digest,
			Platform:    entry.Platform,
			NeedsRunner: entry.NeedsRunner,
		})
	}
	return requests, nil
}

func writeMetrics(cm *metrics.ClientMetrics, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warnf("failed to close metrics file: %v", err)
		}
	}()
	return cm.Export(f)
}
