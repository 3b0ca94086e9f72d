package cmd

import (
	"github.com/spf13/cobra"

	"github.com/berrylauncher/berry/version"
)

var (
	versionCheck    bool
	versionCheckURL string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the berry version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetOut(cmd.OutOrStdout())
			cmd.Println(version.LauncherVersion())
			if !versionCheck {
				return nil
			}

			info, err := version.NewChecker(versionCheckURL, nil).Check(cmd.Context())
			if err != nil {
				return err
			}
			if info.UpdateAvailable {
				cmd.Printf("A new version is available: %s\n", info.Latest)
			} else {
				cmd.Printf("Latest published version: %s\n", info.Latest)
			}
			return nil
		},
	}
)

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "compare with the latest published launcher version")
	versionCmd.Flags().StringVar(&versionCheckURL, "check-url", version.DefaultLatestURL, "URL serving the latest launcher version")
}
