package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	berrors "github.com/berrylauncher/berry/client/errors"
	"github.com/berrylauncher/berry/version"
)

const (
	userAgent = "berry launcher/%s"

	// DefaultStallTimeout bounds the wait for the next chunk of a download.
	DefaultStallTimeout = 5 * time.Second

	chunkSize = 32 * 1024
)

// Endpoint is a remote artifact. ContentLength is advisory and may be zero.
type Endpoint struct {
	URL           string
	ContentLength int64
}

// ProgressFunc receives the truncated download percentage after every chunk.
type ProgressFunc func(percent int)

// HTTPClient is the part of *http.Client the downloader needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client HTTPClient) Option {
	return func(d *Downloader) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithStallTimeout sets the per-chunk stall window.
func WithStallTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		if timeout > 0 {
			d.stallTimeout = timeout
		}
	}
}

// Downloader streams HTTP resources to files. It never retries; a failed
// download is restarted from byte zero by the caller.
type Downloader struct {
	httpClient   HTTPClient
	stallTimeout time.Duration
}

// New creates a Downloader.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		httpClient:   http.DefaultClient,
		stallTimeout: DefaultStallTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DownloadToFile streams endpoint into dstFile, truncating it first, and returns
// the number of bytes written. On failure the partial file is left in place.
func (d *Downloader) DownloadToFile(ctx context.Context, endpoint Endpoint, dstFile string, onProgress ProgressFunc) (int64, error) {
	log.Debugf("starting download from %s", endpoint.URL)

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stalled atomic.Bool
	stallTimer := time.AfterFunc(d.stallTimeout, func() {
		stalled.Store(true)
		cancel()
	})
	defer stallTimer.Stop()

	classify := func(kind berrors.Kind, op string, err error) error {
		switch {
		case stalled.Load():
			return berrors.Newf(berrors.KindTimeout, op, "no data received for %s: %w", d.stallTimeout, err)
		case parent.Err() != nil:
			return berrors.New(berrors.KindCancelled, op, parent.Err())
		default:
			return berrors.New(kind, op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.URL, nil)
	if err != nil {
		return 0, berrors.New(berrors.KindNetwork, "create request", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf(userAgent, version.LauncherVersion()))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, classify(berrors.KindNetwork, "perform request", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, berrors.Newf(berrors.KindNetwork, "perform request", "unexpected HTTP status: %d", resp.StatusCode)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = endpoint.ContentLength
	}

	out, err := os.OpenFile(dstFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, berrors.Newf(berrors.KindIO, "create destination", "%q: %w", dstFile, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			log.Warnf("error closing file %q: %v", dstFile, cerr)
		}
	}()

	var downloaded int64
	buf := make([]byte, chunkSize)
	for {
		if parent.Err() != nil {
			return downloaded, berrors.New(berrors.KindCancelled, "read body", parent.Err())
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			stallTimer.Reset(d.stallTimeout)

			if _, werr := out.Write(buf[:n]); werr != nil {
				return downloaded, berrors.Newf(berrors.KindIO, "write destination", "%q: %w", dstFile, werr)
			}
			downloaded += int64(n)

			if onProgress != nil {
				onProgress(Percent(downloaded, total))
			}
		}

		if rerr == nil {
			continue
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if errors.Is(rerr, io.ErrUnexpectedEOF) && !stalled.Load() && parent.Err() == nil {
			return downloaded, berrors.Newf(berrors.KindIncompleteTransfer, "read body",
				"connection closed after %d of %d bytes", downloaded, total)
		}
		return downloaded, classify(berrors.KindNetwork, "read body", rerr)
	}

	if total > 0 && downloaded < total {
		return downloaded, berrors.Newf(berrors.KindIncompleteTransfer, "read body",
			"received %d of %d bytes", downloaded, total)
	}

	log.Infof("downloaded %d bytes to %s", downloaded, dstFile)
	return downloaded, nil
}

// Percent is floor(downloaded*100/total) clamped to [0,100]; 0 when total is unknown.
func Percent(downloaded, total int64) int {
	if total <= 0 || downloaded <= 0 {
		return 0
	}
	p := downloaded * 100 / total
	if p > 100 {
		return 100
	}
	return int(p)
}
