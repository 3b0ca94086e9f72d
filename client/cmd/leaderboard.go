package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/berrylauncher/berry/client/internal/desktop"
)

var (
	leaderboardInput  string
	leaderboardOutput string

	leaderboardCmd = &cobra.Command{
		Use:   "leaderboard",
		Short: "Leaderboard commands",
	}

	leaderboardSaveCmd = &cobra.Command{
		Use:   "save",
		Short: "Save leaderboard content to a file and open it",
		Long:  "Reads leaderboard CSV content from --input or stdin, writes it to --output and opens the written file.",
		RunE:  leaderboardSaveFunc,
	}
)

func init() {
	leaderboardSaveCmd.Flags().StringVarP(&leaderboardInput, "input", "i", "", "file to read the content from (default stdin)")
	leaderboardSaveCmd.Flags().StringVarP(&leaderboardOutput, "output", "o", "leaderboard.csv", "file to write")
}

func leaderboardSaveFunc(cmd *cobra.Command, _ []string) error {
	var (
		content []byte
		err     error
	)
	if leaderboardInput == "" {
		content, err = io.ReadAll(cmd.InOrStdin())
	} else {
		content, err = os.ReadFile(leaderboardInput)
	}
	if err != nil {
		return fmt.Errorf("read leaderboard content: %w", err)
	}
	if len(content) == 0 {
		return errors.New("empty leaderboard content")
	}

	return desktop.New(nil).SaveLeaderboard(cmd.Context(), content, leaderboardOutput)
}
