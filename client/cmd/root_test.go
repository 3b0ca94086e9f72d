package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/berrylauncher/berry/client/errors"
	"github.com/berrylauncher/berry/client/internal/layout"
	"github.com/berrylauncher/berry/client/internal/settings"
	"github.com/berrylauncher/berry/util"
)

func TestInitCommands(t *testing.T) {
	helpFlag := "-h"
	commandArgs := [][]string{{"root", helpFlag}}
	for _, command := range rootCmd.Commands() {
		commandArgs = append(commandArgs, []string{command.Name(), command.Name(), helpFlag})
		for _, subcommand := range command.Commands() {
			commandArgs = append(commandArgs, []string{command.Name() + " " + subcommand.Name(), command.Name(), subcommand.Name(), helpFlag})
		}
	}

	for _, args := range commandArgs {
		t.Run(fmt.Sprintf("Testing Command %s", args[0]), func(t *testing.T) {
			defer func() {
				err := recover()
				if err != nil {
					t.Fatalf("got an panic error while running the command: %s -h. Error: %s", args[0], err)
				}
			}()

			resetFlags(rootCmd)
			rootCmd.SetArgs(args[1:])
			rootCmd.SetOut(io.Discard)
			if err := rootCmd.Execute(); err != nil {
				t.Errorf("expected no error while running %s command, got %v", args[0], err)
				return
			}
		})
	}
}

func TestSetFlagsFromEnvVars(t *testing.T) {
	var level, dir string
	var cmd = &cobra.Command{
		Use:          "berry",
		Long:         "test",
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			util.SetFlagsFromEnvVars(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&level, logLevelFlag, "info", "")
	cmd.PersistentFlags().StringVar(&dir, dataDirFlag, "/default", "")

	t.Setenv("BERRY_LOG_LEVEL", "debug")
	t.Setenv("BERRY_DATA_DIR", "/from/env")

	cmd.SetArgs([]string{"--data-dir", "/from/flag"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "debug", level)
	assert.Equal(t, "/from/flag", dir, "flags given on the command line win over the environment")
}

func gameArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{"game": "#!/bin/sh\nexit 0\n", "data/level.txt": "level 1"} {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		hdr.SetMode(0o755)
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDownloadListUninstall(t *testing.T) {
	payload := gameArchive(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	base := []string{"--data-dir", dir, "--log-file", "console"}

	_, err := executeCmd(t, append([]string{"set", "--check-updates=false", "--notifications=false"}, base...)...)
	require.NoError(t, err)

	out, err := executeCmd(t, append([]string{"download", "1.0", "--url", srv.URL, "--executable", "game", "--legacy-events"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "download-started 1.0")
	assert.Contains(t, out, "download-progress 1.0:100")
	assert.Contains(t, out, "download-done 1.0")

	l := layout.New(dir)
	assert.FileExists(t, filepath.Join(l.InstallDir("1.0"), "data", "level.txt"))
	assert.NoFileExists(t, l.ArchivePath("1.0"))

	out, err = executeCmd(t, append([]string{"list"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "1.0")
	assert.Contains(t, out, "game")

	out, err = executeCmd(t, append([]string{"wait", "1.0"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "download-done 1.0")

	out, err = executeCmd(t, append([]string{"uninstall", "1.0"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "version-uninstalled 1.0")
	assert.NoDirExists(t, l.InstallDir("1.0"))

	_, err = executeCmd(t, append([]string{"launch", "1.0", "--executable", "game"}, base...)...)
	assert.ErrorIs(t, err, berrors.NotFoundError)

	_, err = executeCmd(t, append([]string{"launch", "1.0"}, base...)...)
	assert.ErrorIs(t, err, berrors.NotFoundError, "an uninstalled version has no entry point to fall back to")
}

func TestDownloadDigestMismatch(t *testing.T) {
	payload := gameArchive(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	base := []string{"--data-dir", dir, "--log-file", "console"}
	require.NoError(t, settings.Save(context.Background(), layout.New(dir).SettingsFile(), settings.Settings{CheckForNewVersionOnLoad: false}))

	out, err := executeCmd(t, append([]string{"download", "1.0", "--url", srv.URL, "--digest", "sha512:00"}, base...)...)
	assert.ErrorIs(t, err, berrors.IntegrityError)
	assert.Contains(t, out, "download-failed 1.0")

	installed, err := layout.New(dir).IsInstalled("1.0")
	require.NoError(t, err)
	assert.False(t, installed)
}

func TestDownloadFromCatalog(t *testing.T) {
	payload := gameArchive(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	catalogFile := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalogFile, []byte(fmt.Sprintf(`
versions:
  - id: "2.0"
    versionName: 2.0.0
    downloadUrls: [%q]
    platforms: [windows]
    executables: [game.exe]
`, srv.URL)), 0o644))

	base := []string{"--data-dir", dir, "--log-file", "console"}
	_, err := executeCmd(t, append([]string{"set", "--check-updates=false", "--use-wine"}, base...)...)
	require.NoError(t, err)

	out, err := executeCmd(t, append([]string{"list", "--available", "--catalog", catalogFile, "--platform", "linux"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "2.0.0")
	assert.Contains(t, out, "windows (runner)")
	assert.Contains(t, out, "false")

	out, err = executeCmd(t, append([]string{"list", "--available", "--catalog", catalogFile, "--platform", "macos"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "No versions available for macos")

	_, err = executeCmd(t, append([]string{"download", "2.0", "--catalog", catalogFile, "--platform", "linux"}, base...)...)
	require.NoError(t, err)

	out, err = executeCmd(t, append([]string{"list"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "game.exe")
	assert.Contains(t, out, "windows (runner)")

	_, err = executeCmd(t, append([]string{"download", "2.0", "--catalog", catalogFile, "--platform", "macos"}, base...)...)
	assert.ErrorIs(t, err, berrors.NotFoundError)
}

func TestSetAndDigest(t *testing.T) {
	dir := t.TempDir()
	base := []string{"--data-dir", dir, "--log-file", "console"}

	_, err := executeCmd(t, append([]string{"set", "--archive-path-policy", "sometimes"}, base...)...)
	assert.Error(t, err)

	_, err = executeCmd(t, append([]string{"set", "--wine-command", "proton %path%", "--max-downloads", "5"}, base...)...)
	require.NoError(t, err)

	s, err := settings.Load(layout.New(dir).SettingsFile())
	require.NoError(t, err)
	assert.Equal(t, "proton %path%", s.WineOnUnixCommand)
	assert.Equal(t, 5, s.MaxConcurrentDownloads)
	assert.Equal(t, "reject", s.ArchivePathPolicy)

	file := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(file, []byte("abc"), 0o644))
	out, err := executeCmd(t, append([]string{"digest", file, "--algorithm", "blake3"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "blake3:6437b3ac38465133ffb63b75273a8db548c558465d79db03fd359c6cd5bd9d85")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KiB", formatSize(1536))
	assert.Equal(t, "2.0 MiB", formatSize(2<<20))
}
