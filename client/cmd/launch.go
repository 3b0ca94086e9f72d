package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	berrors "github.com/berrylauncher/berry/client/errors"
	"github.com/berrylauncher/berry/client/internal/install"
	"github.com/berrylauncher/berry/client/internal/launch"
	"github.com/berrylauncher/berry/client/internal/layout"
)

var (
	launchExecutable    string
	launchRunner        bool
	launchRunnerCommand string
	launchWait          bool

	launchCmd = &cobra.Command{
		Use:   "launch <version>",
		Short: "Start an installed version",
		Long: `Start an installed version unless it is already running.

The entry point and whether the compatibility runner is needed are taken from
the install registry when not given.`,
		Args: cobra.ExactArgs(1),
		RunE: launchFunc,
	}
)

func init() {
	launchCmd.Flags().StringVar(&launchExecutable, "executable", "", "entry point relative to the install directory")
	launchCmd.Flags().BoolVar(&launchRunner, "runner", false, "start the entry point through the compatibility runner")
	launchCmd.Flags().StringVar(&launchRunnerCommand, "runner-command", "", "runner command line, %path% is replaced with the entry point (default from settings)")
	launchCmd.Flags().BoolVar(&launchWait, "wait", false, "block until the started version exits")
}

func launchFunc(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := layout.ValidateName(name); err != nil {
		return err
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}

	installed, err := e.layout.IsInstalled(name)
	if err != nil {
		return berrors.New(berrors.KindIO, "launch", err).WithVersion(name)
	}
	if !installed {
		return berrors.Newf(berrors.KindNotFound, "launch", "version %s is not installed", name).WithVersion(name)
	}

	opts := e.settings.LaunchOptions()
	opts.UseRunner = false
	executable := launchExecutable

	rec, ok, err := install.NewRegistry(e.layout.RegistryFile()).Get(name)
	if err != nil {
		return err
	}
	if ok {
		if executable == "" {
			executable = rec.Executable
		}
		opts.UseRunner = rec.NeedsRunner
	}
	if cmd.Flag("runner").Changed {
		opts.UseRunner = launchRunner
	}
	if launchRunnerCommand != "" {
		opts.RunnerCommand = launchRunnerCommand
	}
	if executable == "" {
		return fmt.Errorf("no entry point recorded for %s, pass --executable", name)
	}

	s := launch.NewSupervisor(e.strategy, nil)
	installDir := e.layout.InstallDir(name)
	res, err := s.Launch(cmd.Context(), installDir, executable, opts)
	if err != nil {
		return err
	}
	cmd.Printf("Started %s (pid %d)\n", name, res.PID)

	if !launchWait {
		return nil
	}
	path, err := filepath.Abs(filepath.Join(installDir, executable))
	if err != nil {
		return err
	}
	if err := s.Wait(cmd.Context(), path, 0); err != nil {
		return err
	}
	cmd.Printf("%s exited\n", name)
	return nil
}
