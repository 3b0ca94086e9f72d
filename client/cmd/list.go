package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/berrylauncher/berry/client/internal/catalog"
	"github.com/berrylauncher/berry/client/internal/layout"
)

var (
	listAvailable bool
	listCatalog   string
	listPlatform  string

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List installed versions and their size on disk",
		Long: `List installed versions and their size on disk.

With --available the catalog is listed instead, limited to the versions that
have a build for the platform.`,
		Args: cobra.NoArgs,
		RunE: listFunc,
	}
)

func init() {
	listCmd.Flags().BoolVar(&listAvailable, "available", false, "list the versions of the catalog that can be installed")
	listCmd.Flags().StringVar(&listCatalog, "catalog", "", "catalog URL or file (default from settings)")
	listCmd.Flags().StringVar(&listPlatform, "platform", catalog.HostPlatform(), "catalog platform to list")
}

func listFunc(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	if listAvailable {
		return listAvailableVersions(cmd, e)
	}

	mgr, err := e.manager(nil)
	if err != nil {
		return err
	}

	installed, err := mgr.List()
	if err != nil {
		return err
	}
	if len(installed) == 0 {
		cmd.Println("No versions installed")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VERSION\tSIZE\tEXECUTABLE\tPLATFORM\tINSTALLED")
	for _, v := range installed {
		executable, platform, installedAt := "-", "-", "-"
		if v.Registered {
			executable = v.Record.Executable
			platform = v.Record.Platform
			if v.Record.NeedsRunner {
				platform += " (runner)"
			}
			installedAt = v.Record.InstalledAt.Local().Format(time.DateTime)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.Name, formatSize(v.Size), executable, platform, installedAt)
	}
	return w.Flush()
}

func listAvailableVersions(cmd *cobra.Command, e *env) error {
	source := listCatalog
	if source == "" {
		source = e.settings.CatalogURL
	}
	c, err := catalog.NewLoader(nil).Load(cmd.Context(), source)
	if err != nil {
		return err
	}

	useRunner := e.settings.UseWineOnUnixWhenNeeded
	versions := c.Available(listPlatform, useRunner)
	if len(versions) == 0 {
		cmd.Printf("No versions available for %s\n", listPlatform)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tVERSION\tPLATFORM\tRELEASED\tINSTALLED")
	for _, v := range versions {
		entry, err := v.Entry(listPlatform, useRunner)
		if err != nil {
			return err
		}
		platform := entry.Platform
		if entry.NeedsRunner {
			platform += " (runner)"
		}
		released := "-"
		if v.ReleaseDate > 0 {
			released = time.Unix(v.ReleaseDate, 0).Local().Format(time.DateOnly)
		}
		installed := false
		if layout.ValidateName(v.ID) == nil {
			if installed, err = e.layout.IsInstalled(v.ID); err != nil {
				return err
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", v.ID, v.VersionName, platform, released, installed)
	}
	return w.Flush()
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
