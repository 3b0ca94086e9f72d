package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/berrylauncher/berry/client/internal/install"
	"github.com/berrylauncher/berry/client/internal/layout"
)

var (
	permissionsExecutable string

	permissionsCmd = &cobra.Command{
		Use:   "permissions <version>",
		Short: "Make the entry point of an installed version executable again",
		Args:  cobra.ExactArgs(1),
		RunE:  permissionsFunc,
	}
)

func init() {
	permissionsCmd.Flags().StringVar(&permissionsExecutable, "executable", "", "entry point relative to the install directory (default from the registry)")
}

func permissionsFunc(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := layout.ValidateName(name); err != nil {
		return err
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}

	executable := permissionsExecutable
	if executable == "" {
		rec, ok, err := install.NewRegistry(e.layout.RegistryFile()).Get(name)
		if err != nil {
			return err
		}
		if !ok || rec.Executable == "" {
			return fmt.Errorf("no entry point recorded for %s, pass --executable", name)
		}
		executable = rec.Executable
	}

	path := filepath.Join(e.layout.InstallDir(name), executable)
	if err := e.strategy.MakeExecutable(cmd.Context(), path); err != nil {
		return err
	}
	cmd.Printf("Permissions fixed for %s using %s\n", name, e.strategy.Name())
	return nil
}
