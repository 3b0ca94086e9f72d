package version

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVersion(t *testing.T, v string) {
	t.Helper()
	old := version
	version = v
	t.Cleanup(func() { version = old })
}

func TestChecker_Check(t *testing.T) {
	testCases := []struct {
		name      string
		current   string
		latest    string
		available bool
	}{
		{name: "newer release", current: "1.0.0", latest: "1.1.0", available: true},
		{name: "same release", current: "1.1.0", latest: "1.1.0", available: false},
		{name: "older release", current: "1.2.0", latest: "1.1.0\n", available: false},
		{name: "development build", current: "development", latest: "1.1.0", available: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			withVersion(t, tc.current)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, tc.latest)
			}))
			defer srv.Close()

			info, err := NewChecker(srv.URL, srv.Client()).Check(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.available, info.UpdateAvailable)
			assert.Equal(t, tc.current, info.Current)
		})
	}
}

func TestChecker_RetriesTransientFailures(t *testing.T) {
	withVersion(t, "1.0.0")
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "2.0.0")
	}))
	defer srv.Close()

	info, err := NewChecker(srv.URL, srv.Client()).Check(context.Background())
	require.NoError(t, err)
	assert.True(t, info.UpdateAvailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChecker_InvalidVersionIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, "not a version")
	}))
	defer srv.Close()

	c := NewChecker(srv.URL, srv.Client())
	c.maxElapsed = time.Second
	_, err := c.Check(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
