package downloader

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/berrylauncher/berry/client/errors"
)

func chunkedHandler(payload []byte, chunks int, declareLength bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if declareLength {
			w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		}
		flusher := w.(http.Flusher)
		step := len(payload) / chunks
		for i := 0; i < len(payload); i += step {
			end := i + step
			if end > len(payload) {
				end = len(payload)
			}
			_, _ = w.Write(payload[i:end])
			flusher.Flush()
		}
	}
}

func TestDownloadToFile_Success(t *testing.T) {
	payload := bytes.Repeat([]byte("berry"), 20000)
	srv := httptest.NewServer(chunkedHandler(payload, 10, true))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "1.0.part")
	require.NoError(t, os.WriteFile(dst, []byte("stale content that is longer than nothing"), 0o644))

	var progress []int
	n, err := New().DownloadToFile(context.Background(), Endpoint{URL: srv.URL}, dst, func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, payload, data, "destination must be truncated before writing")

	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	assert.Equal(t, 100, progress[len(progress)-1])
}

func TestDownloadToFile_UnknownLengthPinsProgressAtZero(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 4096)
	srv := httptest.NewServer(chunkedHandler(payload, 4, false))
	defer srv.Close()

	var progress []int
	_, err := New().DownloadToFile(context.Background(), Endpoint{URL: srv.URL}, filepath.Join(t.TempDir(), "a.part"), func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	require.NotEmpty(t, progress)
	for _, p := range progress {
		assert.Equal(t, 0, p)
	}
}

func TestDownloadToFile_AdvisoryLength(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 1000)
	srv := httptest.NewServer(chunkedHandler(payload, 2, false))
	defer srv.Close()

	var last int
	_, err := New().DownloadToFile(context.Background(), Endpoint{URL: srv.URL, ContentLength: 1000},
		filepath.Join(t.TempDir(), "a.part"), func(p int) { last = p })
	require.NoError(t, err)
	assert.Equal(t, 100, last)
}

func TestDownloadToFile_IncompleteTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write(bytes.Repeat([]byte("x"), 600))
	}))
	defer srv.Close()

	n, err := New().DownloadToFile(context.Background(), Endpoint{URL: srv.URL}, filepath.Join(t.TempDir(), "a.part"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, berrors.IncompleteTransferError)
	assert.Equal(t, int64(600), n)
}

func TestDownloadToFile_AdvisoryLengthShortfall(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 600)
	srv := httptest.NewServer(chunkedHandler(payload, 2, false))
	defer srv.Close()

	_, err := New().DownloadToFile(context.Background(), Endpoint{URL: srv.URL, ContentLength: 1000},
		filepath.Join(t.TempDir(), "a.part"), nil)
	assert.ErrorIs(t, err, berrors.IncompleteTransferError)
}

func TestDownloadToFile_StallTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("first chunk"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "a.part")
	start := time.Now()
	_, err := New(WithStallTimeout(100*time.Millisecond)).DownloadToFile(context.Background(), Endpoint{URL: srv.URL}, dst, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, berrors.TimeoutError)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.FileExists(t, dst, "partial file is left for the caller")
}

func TestDownloadToFile_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("first chunk"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := New().DownloadToFile(ctx, Endpoint{URL: srv.URL}, filepath.Join(t.TempDir(), "a.part"), func(int) {
		cancel()
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, berrors.Cancelled)
}

func TestDownloadToFile_NetworkErrors(t *testing.T) {
	t.Run("bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		_, err := New().DownloadToFile(context.Background(), Endpoint{URL: srv.URL}, filepath.Join(t.TempDir(), "a.part"), nil)
		assert.ErrorIs(t, err, berrors.NetworkError)
		assert.True(t, strings.Contains(err.Error(), "404"))
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := New().DownloadToFile(context.Background(), Endpoint{URL: url}, filepath.Join(t.TempDir(), "a.part"), nil)
		assert.ErrorIs(t, err, berrors.NetworkError)
	})
}

func TestDownloadToFile_WriteError(t *testing.T) {
	srv := httptest.NewServer(chunkedHandler([]byte("payload"), 1, true))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "missing-dir", "a.part")
	_, err := New().DownloadToFile(context.Background(), Endpoint{URL: srv.URL}, dst, nil)
	assert.ErrorIs(t, err, berrors.IoError)
}

func TestPercent(t *testing.T) {
	testCases := []struct {
		downloaded, total int64
		want              int
	}{
		{0, 1000, 0},
		{9, 1000, 0},
		{10, 1000, 1},
		{999, 1000, 99},
		{1000, 1000, 100},
		{1500, 1000, 100},
		{500, 0, 0},
		{500, -1, 0},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, Percent(tc.downloaded, tc.total), "%d/%d", tc.downloaded, tc.total)
	}
}
