package platform

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	berrors "github.com/berrylauncher/berry/client/errors"
)

// ExecBit sets the execute bits in-process.
type ExecBit struct{}

func (ExecBit) BestEffort() bool {
	return false
}

// MakeExecutable adds execute bits to path, or to every regular file below it
// when path is a bundle directory.
func (ExecBit) MakeExecutable(_ context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return berrors.New(berrors.KindIO, "make executable", err)
	}

	if !info.IsDir() {
		return chmodExec(path, info.Mode())
	}

	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		return chmodExec(p, fi.Mode())
	})
	if err != nil {
		return berrors.New(berrors.KindIO, "make executable", err)
	}
	return nil
}

func chmodExec(path string, mode os.FileMode) error {
	if err := os.Chmod(path, mode.Perm()|0o111); err != nil {
		return berrors.New(berrors.KindIO, "make executable", err)
	}
	if err := checkExecutable(path); err != nil {
		return berrors.Newf(berrors.KindIO, "make executable", "%s is still not executable: %w", path, err)
	}
	return nil
}

// HelperFunc runs an out-of-process helper and returns its combined output.
type HelperFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runHelper(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// PrivilegedHelper changes permissions through an elevated helper process.
// Failures are reported but are not fatal to an install.
type PrivilegedHelper struct {
	Run HelperFunc
}

func (PrivilegedHelper) BestEffort() bool {
	return true
}

// MakeExecutable asks for administrator privileges and runs chmod -R +x on path.
func (h PrivilegedHelper) MakeExecutable(ctx context.Context, path string) error {
	run := h.Run
	if run == nil {
		run = runHelper
	}

	script := fmt.Sprintf(`do shell script "chmod -R +x " & quoted form of "%s" with administrator privileges`, appleScriptEscape(path))
	out, err := run(ctx, "osascript", "-e", script)
	if err != nil {
		log.Debugf("privileged helper output: %s", strings.TrimSpace(string(out)))
		return berrors.Newf(berrors.KindIO, "make executable", "privileged helper failed: %w", err)
	}
	return nil
}

func appleScriptEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// NoPermissions is used where files are executable by extension.
type NoPermissions struct{}

func (NoPermissions) BestEffort() bool {
	return true
}

func (NoPermissions) MakeExecutable(context.Context, string) error {
	return nil
}
