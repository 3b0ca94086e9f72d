package cmd

import (
	"github.com/spf13/cobra"

	"github.com/berrylauncher/berry/client/internal/install/verify"
)

var (
	digestAlgorithm string

	digestCmd = &cobra.Command{
		Use:   "digest <file>",
		Short: "Print the digest of an archive in the format accepted by download --digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := verify.Sum(args[0], digestAlgorithm)
			if err != nil {
				return err
			}
			if digestAlgorithm == verify.SHA512 {
				cmd.Println(sum)
				return nil
			}
			cmd.Printf("%s:%s\n", digestAlgorithm, sum)
			return nil
		},
	}
)

func init() {
	digestCmd.Flags().StringVarP(&digestAlgorithm, "algorithm", "a", verify.SHA512, "sha512, blake2b or blake3")
}
