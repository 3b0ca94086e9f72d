package platform

import (
	"os/exec"
	"strings"

	berrors "github.com/berrylauncher/berry/client/errors"
)

const pathPlaceholder = "%path%"

// LookPathFunc resolves a command name to a binary.
type LookPathFunc func(file string) (string, error)

// DirectExec starts the entry point itself, or through the configured runner.
type DirectExec struct {
	LookPath LookPathFunc
}

func (d DirectExec) Command(installDir, path string, opts LaunchOptions) (*exec.Cmd, error) {
	var cmd *exec.Cmd
	if opts.UseRunner {
		args, err := d.runnerArgs(path, opts.RunnerCommand)
		if err != nil {
			return nil, err
		}
		cmd = exec.Command(args[0], args[1:]...)
	} else {
		cmd = exec.Command(path)
	}

	cmd.Dir = installDir
	setDetachedProcAttr(cmd)
	return cmd, nil
}

func (d DirectExec) runnerArgs(path, template string) ([]string, error) {
	if strings.TrimSpace(template) == "" {
		template = DefaultRunnerCommand
	}

	fields := strings.Fields(template)
	replaced := false
	for i, f := range fields {
		if strings.Contains(f, pathPlaceholder) {
			fields[i] = strings.ReplaceAll(f, pathPlaceholder, path)
			replaced = true
		}
	}
	if !replaced {
		fields = append(fields, path)
	}

	lookPath := d.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	bin, err := lookPath(fields[0])
	if err != nil {
		return nil, berrors.Newf(berrors.KindRunnerMissing, "resolve runner", "%s is not installed: %w", fields[0], err)
	}
	fields[0] = bin
	return fields, nil
}

// OpenLauncher hands the entry point to the platform's generic open command,
// which is how application bundles have to be started.
type OpenLauncher struct {
	OpenCommand string
}

func (o OpenLauncher) Command(installDir, path string, _ LaunchOptions) (*exec.Cmd, error) {
	name := o.OpenCommand
	if name == "" {
		name = "open"
	}

	cmd := exec.Command(name, path)
	cmd.Dir = installDir
	setDetachedProcAttr(cmd)
	return cmd, nil
}
