package cmd

import (
	"errors"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	berrors "github.com/berrylauncher/berry/client/errors"
)

var (
	uninstallAll bool

	uninstallCmd = &cobra.Command{
		Use:   "uninstall <version> [version...]",
		Short: "Remove installed versions",
		RunE:  uninstallFunc,
	}
)

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallAll, "all", false, "remove every installed version")
}

func uninstallFunc(cmd *cobra.Command, args []string) error {
	if !uninstallAll && len(args) == 0 {
		return errors.New("no version given, pass a version or --all")
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	mgr, err := e.manager(nil, printObserver(cmd, false))
	if err != nil {
		return err
	}

	if uninstallAll {
		return mgr.UninstallAll(cmd.Context())
	}

	var merr *multierror.Error
	for _, name := range args {
		if err := mgr.Uninstall(cmd.Context(), name); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return berrors.FormatErrorOrNil(merr)
}
