package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/berrylauncher/berry/client/internal/install"
	"github.com/berrylauncher/berry/client/internal/layout"
)

var (
	waitTimeout time.Duration

	waitCmd = &cobra.Command{
		Use:   "wait <version>",
		Short: "Wait until the running install or uninstall of a version finished",
		Long:  "Blocks until the status file of the version reports done, failed, cancelled, uninstalled or uninstall failure. Exits with an error unless the outcome was a success.",
		Args:  cobra.ExactArgs(1),
		RunE:  waitFunc,
	}
)

func init() {
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 0, "give up after this long (default no limit)")
}

func waitFunc(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := layout.ValidateName(name); err != nil {
		return err
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, waitTimeout)
		defer cancel()
	}

	status, err := install.NewStatusHandler(e.layout, name).Watch(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("%s %s\n", status.Event, status.Version)
	if status.Failed() {
		return errors.New(status.Error)
	}
	if status.Warning != "" {
		cmd.PrintErrf("warning: %s\n", status.Warning)
	}
	return nil
}
