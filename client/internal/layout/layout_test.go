package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/berrylauncher/berry/client/errors"
)

func TestLayout_Paths(t *testing.T) {
	root := t.TempDir()
	l := New(root)

	assert.Equal(t, filepath.Join(root, "downloads", "1.2.part"), l.PartPath("1.2"))
	assert.Equal(t, filepath.Join(root, "downloads", "1.2.zip"), l.ArchivePath("1.2"))
	assert.Equal(t, filepath.Join(root, "game", "1.2"), l.InstallDir("1.2"))
	assert.Equal(t, filepath.Join(root, "status", "1.2.json"), l.StatusFile("1.2"))
	assert.Equal(t, filepath.Join(root, "versions.json"), l.RegistryFile())
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"1.0.0", "beta-3", "v2_final"} {
		assert.NoError(t, ValidateName(name), name)
	}

	for _, name := range []string{"", ".", "..", "a/b", `a\b`, "../escape"} {
		err := ValidateName(name)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, berrors.IoError, name)
	}
}

func TestLayout_InstalledNames(t *testing.T) {
	l := New(t.TempDir())

	names, err := l.InstalledNames()
	require.NoError(t, err)
	assert.Empty(t, names, "missing game dir means nothing is installed")

	require.NoError(t, l.EnsureRoots())
	require.NoError(t, os.MkdirAll(l.InstallDir("empty"), 0o755))
	require.NoError(t, os.MkdirAll(l.InstallDir("full"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(l.InstallDir("full"), "game"), []byte("x"), 0o644))

	names, err = l.InstalledNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"full"}, names)

	ok, err := l.IsInstalled("empty")
	require.NoError(t, err)
	assert.False(t, ok)
}
