package cmd

import (
	"github.com/spf13/cobra"

	"github.com/berrylauncher/berry/client/internal/install/extract"
	"github.com/berrylauncher/berry/client/internal/layout"
	"github.com/berrylauncher/berry/client/internal/settings"
)

const (
	useWineFlag           = "use-wine"
	wineCommandFlag       = "wine-command"
	catalogURLFlag        = "catalog-url"
	archivePathPolicyFlag = "archive-path-policy"
	maxDownloadsFlag      = "max-downloads"
	notificationsFlag     = "notifications"
	checkUpdatesFlag      = "check-updates"
	downloadStallFlag     = "download-stall-timeout"
)

var (
	setFlags settings.Settings

	setCmd = &cobra.Command{
		Use:   "set",
		Short: "Update berry settings",
		Long:  "Update the persisted launcher settings. Only the given flags are changed.",
		Args:  cobra.NoArgs,
		RunE:  setFunc,
	}
)

func init() {
	d := settings.Default()
	setCmd.Flags().BoolVar(&setFlags.UseWineOnUnixWhenNeeded, useWineFlag, d.UseWineOnUnixWhenNeeded, "install and start Windows builds through the runner on Linux when no Linux build exists")
	setCmd.Flags().StringVar(&setFlags.WineOnUnixCommand, wineCommandFlag, d.WineOnUnixCommand, "runner command line, %path% is replaced with the entry point")
	setCmd.Flags().StringVar(&setFlags.CatalogURL, catalogURLFlag, d.CatalogURL, "catalog URL or file")
	setCmd.Flags().StringVar(&setFlags.ArchivePathPolicy, archivePathPolicyFlag, d.ArchivePathPolicy, "archive entry path policy: reject or join")
	setCmd.Flags().IntVar(&setFlags.MaxConcurrentDownloads, maxDownloadsFlag, d.MaxConcurrentDownloads, "maximum number of concurrent downloads")
	setCmd.Flags().BoolVar(&setFlags.AllowNotifications, notificationsFlag, d.AllowNotifications, "print a summary when downloads finish")
	setCmd.Flags().BoolVar(&setFlags.CheckForNewVersionOnLoad, checkUpdatesFlag, d.CheckForNewVersionOnLoad, "check for a new launcher version while downloading")
	setCmd.Flags().DurationVar(&setFlags.StallTimeout, downloadStallFlag, d.StallTimeout, "maximum wait for the next chunk of a download")
}

func setFunc(cmd *cobra.Command, _ []string) error {
	file := layout.New(dataDir).SettingsFile()

	s, err := settings.Load(file)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed(useWineFlag) {
		s.UseWineOnUnixWhenNeeded = setFlags.UseWineOnUnixWhenNeeded
	}
	if flags.Changed(wineCommandFlag) {
		s.WineOnUnixCommand = setFlags.WineOnUnixCommand
	}
	if flags.Changed(catalogURLFlag) {
		s.CatalogURL = setFlags.CatalogURL
	}
	if flags.Changed(archivePathPolicyFlag) {
		if _, err := extract.ParsePathPolicy(setFlags.ArchivePathPolicy); err != nil {
			return err
		}
		s.ArchivePathPolicy = setFlags.ArchivePathPolicy
	}
	if flags.Changed(maxDownloadsFlag) {
		s.MaxConcurrentDownloads = setFlags.MaxConcurrentDownloads
	}
	if flags.Changed(notificationsFlag) {
		s.AllowNotifications = setFlags.AllowNotifications
	}
	if flags.Changed(checkUpdatesFlag) {
		s.CheckForNewVersionOnLoad = setFlags.CheckForNewVersionOnLoad
	}
	if flags.Changed(downloadStallFlag) {
		s.StallTimeout = setFlags.StallTimeout
	}

	if err := s.Validate(); err != nil {
		return err
	}
	if err := settings.Save(cmd.Context(), file, s); err != nil {
		return err
	}

	cmd.Println("Settings updated")
	return nil
}
