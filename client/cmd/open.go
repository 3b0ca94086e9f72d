package cmd

import (
	"github.com/spf13/cobra"

	"github.com/berrylauncher/berry/client/internal/desktop"
)

var openCmd = &cobra.Command{
	Use:   "open <version>",
	Short: "Open the install folder of a version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		return desktop.New(nil).OpenFolder(e.layout, args[0])
	},
}
