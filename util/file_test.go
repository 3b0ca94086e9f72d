package util

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	SomeMap   map[string]string
	SomeArray []string
	SomeField int
}

func TestWriteJson_ReadJson(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "config.json")
	in := &testConfig{
		SomeMap:   map[string]string{"key1": "value1"},
		SomeArray: []string{"value1", "value2"},
		SomeField: 99,
	}

	require.NoError(t, WriteJson(context.Background(), file, in))

	out := &testConfig{}
	_, err := ReadJson(file, out)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	entries, err := os.ReadDir(filepath.Dir(file))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should not survive the rename")
}

func TestWriteJson_CancelledContext(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WriteJson(ctx, file, &testConfig{})
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, file)
}

func TestWriteBytes(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, WriteBytes(context.Background(), file, []byte("first")))
	require.NoError(t, WriteBytes(context.Background(), file, []byte("second")))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestRemoveJson(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, RemoveJson(file), "missing file is not an error")

	require.NoError(t, WriteJson(context.Background(), file, &testConfig{}))
	require.NoError(t, RemoveJson(file))
	assert.NoFileExists(t, file)
}

func TestFlagNameToEnvVar(t *testing.T) {
	assert.Equal(t, "BERRY_DATA_DIR", FlagNameToEnvVar("data-dir"))
	assert.Equal(t, "BERRY_LOG_LEVEL", FlagNameToEnvVar("log-level"))
}
