// Package desktop hands files and folders to the user's desktop environment.
package desktop

import (
	"bytes"
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"

	berrors "github.com/berrylauncher/berry/client/errors"
	"github.com/berrylauncher/berry/client/internal/layout"
	"github.com/berrylauncher/berry/util"
)

// OpenFunc opens a path or URL with the default application.
type OpenFunc func(input string) error

// Desktop opens files and folders.
type Desktop struct {
	open OpenFunc
}

// New returns a Desktop. A nil opener uses the system default application.
func New(opener OpenFunc) *Desktop {
	if opener == nil {
		opener = open.Run
	}
	return &Desktop{open: opener}
}

// OpenFolder opens the install directory of name in the file manager.
func (d *Desktop) OpenFolder(l *layout.Layout, name string) error {
	if err := layout.ValidateName(name); err != nil {
		return err
	}

	dir := l.InstallDir(name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return berrors.Newf(berrors.KindNotFound, "open folder", "version %s is not installed", name).WithVersion(name)
	}

	log.Debugf("opening %s", dir)
	if err := d.open(dir); err != nil {
		return berrors.New(berrors.KindSpawn, "open folder", err).WithVersion(name)
	}
	return nil
}

// SaveLeaderboard writes content to path without trailing newlines and opens
// the written file.
func (d *Desktop) SaveLeaderboard(ctx context.Context, content []byte, path string) error {
	content = bytes.TrimRight(content, "\r\n")

	if err := util.WriteBytes(ctx, path, content); err != nil {
		return berrors.New(berrors.KindIO, "save leaderboard", err)
	}
	log.Infof("leaderboard saved to %s", path)

	if err := d.open(path); err != nil {
		return berrors.New(berrors.KindSpawn, "open leaderboard", err)
	}
	return nil
}
