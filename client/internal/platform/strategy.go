// Package platform hides how the host makes an entry point executable and how it starts one.
package platform

import (
	"context"
	"os/exec"
)

// LaunchOptions tune how an installed version is started.
type LaunchOptions struct {
	// UseRunner starts the entry point through a compatibility runner.
	UseRunner bool
	// RunnerCommand is the runner command line. %path% is replaced with the
	// entry point; without it the entry point is appended.
	RunnerCommand string
}

// DefaultRunnerCommand starts Windows builds through wine.
const DefaultRunnerCommand = "wine %path%"

// PermissionFixer makes an installed entry point executable.
type PermissionFixer interface {
	MakeExecutable(ctx context.Context, path string) error
	// BestEffort reports whether MakeExecutable failures may be ignored.
	BestEffort() bool
}

// Invoker builds the command that starts an installed entry point.
// The returned command has its working directory set to installDir.
type Invoker interface {
	Command(installDir, path string, opts LaunchOptions) (*exec.Cmd, error)
}

// Strategy is the host capability set, selected once at startup.
type Strategy interface {
	PermissionFixer
	Invoker
	Name() string
}

type composed struct {
	name string
	PermissionFixer
	Invoker
}

func (c composed) Name() string {
	return c.name
}

// Compose builds a Strategy from a permission fixer and an invoker.
func Compose(name string, p PermissionFixer, i Invoker) Strategy {
	return composed{name: name, PermissionFixer: p, Invoker: i}
}
