package extract

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/berrylauncher/berry/client/errors"
)

type entry struct {
	name    string
	content string
	mode    os.FileMode
}

func writeZip(t *testing.T, entries []entry) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		if e.mode != 0 {
			hdr.SetMode(e.mode)
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		if e.content != "" {
			_, err = w.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "archive.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestExtract_PreservesTree(t *testing.T) {
	archive := writeZip(t, []entry{
		{name: "a.txt", content: "alpha"},
		{name: "sub/b.txt", content: "bravo"},
		{name: "empty/"},
	})
	target := t.TempDir()

	require.NoError(t, New(PathPolicyReject).Extract(context.Background(), archive, target))

	a, err := os.ReadFile(filepath.Join(target, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(a))

	b, err := os.ReadFile(filepath.Join(target, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bravo", string(b))

	assert.DirExists(t, filepath.Join(target, "empty"))
}

func TestExtract_OverwritesExistingFiles(t *testing.T) {
	archive := writeZip(t, []entry{{name: "a.txt", content: "new"}})
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "a.txt"), []byte("old and longer"), 0o644))

	require.NoError(t, New(PathPolicyReject).Extract(context.Background(), archive, target))

	a, err := os.ReadFile(filepath.Join(target, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(a))
}

func TestExtract_PathPolicy(t *testing.T) {
	archive := writeZip(t, []entry{
		{name: "ok.txt", content: "ok"},
		{name: "../escaped.txt", content: "bad"},
	})

	t.Run("reject", func(t *testing.T) {
		root := t.TempDir()
		target := filepath.Join(root, "game", "1.0")
		require.NoError(t, os.MkdirAll(target, 0o755))

		err := New(PathPolicyReject).Extract(context.Background(), archive, target)
		require.Error(t, err)
		assert.ErrorIs(t, err, berrors.ExtractError)
		assert.NoFileExists(t, filepath.Join(root, "game", "escaped.txt"))
		assert.FileExists(t, filepath.Join(target, "ok.txt"), "entries before the failure stay in place")
	})

	t.Run("join", func(t *testing.T) {
		root := t.TempDir()
		target := filepath.Join(root, "game", "1.0")
		require.NoError(t, os.MkdirAll(target, 0o755))

		require.NoError(t, New(PathPolicyJoin).Extract(context.Background(), archive, target))
		assert.FileExists(t, filepath.Join(root, "game", "escaped.txt"))
	})
}

func TestExtract_KeepsExecutableBit(t *testing.T) {
	archive := writeZip(t, []entry{{name: "bin/game", content: "#!/bin/sh\n", mode: 0o755}})
	target := t.TempDir()

	require.NoError(t, New(PathPolicyReject).Extract(context.Background(), archive, target))

	info, err := os.Stat(filepath.Join(target, "bin", "game"))
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o755)&^umask(), info.Mode().Perm())
	}
}

func TestExtract_Errors(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.zip")
		require.NoError(t, os.WriteFile(path, []byte("definitely not a zip"), 0o644))
		err := New(PathPolicyReject).Extract(context.Background(), path, t.TempDir())
		assert.ErrorIs(t, err, berrors.ExtractError)
	})

	t.Run("cancelled", func(t *testing.T) {
		archive := writeZip(t, []entry{{name: "a.txt", content: "alpha"}})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		target := t.TempDir()
		err := New(PathPolicyReject).Extract(ctx, archive, target)
		assert.ErrorIs(t, err, berrors.Cancelled)
		assert.NoFileExists(t, filepath.Join(target, "a.txt"))
	})
}

func TestStart_RunsOnWorker(t *testing.T) {
	archive := writeZip(t, []entry{{name: "a.txt", content: "alpha"}})
	target := t.TempDir()

	err := <-New(PathPolicyReject).Start(context.Background(), archive, target)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, "a.txt"))
}

func TestParsePathPolicy(t *testing.T) {
	p, err := ParsePathPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PathPolicyReject, p)

	p, err = ParsePathPolicy("JOIN")
	require.NoError(t, err)
	assert.Equal(t, PathPolicyJoin, p)

	_, err = ParsePathPolicy("sanitize")
	assert.Error(t, err)
}
