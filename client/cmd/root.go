package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/berrylauncher/berry/client/internal/layout"
	"github.com/berrylauncher/berry/util"
)

const (
	dataDirFlag            = "data-dir"
	logLevelFlag           = "log-level"
	logFileFlag            = "log-file"
	stallTimeoutFlag       = "stall-timeout"
	unsafeArchivePathsFlag = "unsafe-archive-paths"
)

var (
	dataDir            string
	logLevel           string
	logFile            string
	stallTimeout       time.Duration
	unsafeArchivePaths bool

	rootCmd = &cobra.Command{
		Use:          "berry",
		Short:        "Installs and launches game versions",
		Long:         "berry downloads versioned game bundles, keeps their install directories consistent and starts them.",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	SetupCloseHandler(ctx, cancel)

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentPreRunE = initRoot

	rootCmd.PersistentFlags().StringVarP(&dataDir, dataDirFlag, "d", layout.DefaultRoot(), "launcher data directory holding downloads, installed versions and settings")
	rootCmd.PersistentFlags().StringVarP(&logLevel, logLevelFlag, "l", "info", "sets berry log level")
	rootCmd.PersistentFlags().StringVar(&logFile, logFileFlag, "", "sets berry log path (default <data-dir>/berry.log). If console is specified the log will be output to stderr")
	rootCmd.PersistentFlags().DurationVar(&stallTimeout, stallTimeoutFlag, 0, "maximum wait for the next chunk of a download (default from settings, 5s)")
	rootCmd.PersistentFlags().BoolVar(&unsafeArchivePaths, unsafeArchivePathsFlag, false, "join archive entry names to the install directory without rejecting entries that escape it")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(permissionsCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(versionCmd)

	leaderboardCmd.AddCommand(leaderboardSaveCmd)
}

func initRoot(cmd *cobra.Command, _ []string) error {
	util.SetFlagsFromEnvVars(rootCmd)
	util.SetFlagsFromEnvVars(cmd)

	if dataDir == "" {
		return fmt.Errorf("unable to determine the data directory, set --%s", dataDirFlag)
	}

	path := logFile
	if path == "" {
		path = layout.New(dataDir).LogFile()
	}
	if err := util.InitLog(logLevel, path); err != nil {
		return fmt.Errorf("failed initializing log %v", err)
	}

	cmd.SetOut(cmd.OutOrStdout())
	return nil
}

// SetupCloseHandler cancels ctx on SIGINT or SIGTERM
func SetupCloseHandler(ctx context.Context, cancel context.CancelFunc) {
	termCh := make(chan os.Signal, 1)
	signal.Notify(termCh, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		done := ctx.Done()
		select {
		case <-done:
		case <-termCh:
		}

		log.Info("shutdown signal received")
		cancel()
	}()
}
