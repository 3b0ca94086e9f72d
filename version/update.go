package version

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultLatestURL serves the latest published launcher version as plain text.
	DefaultLatestURL = "https://berrydash.lncvrt.xyz/database/launcher/latest.php"

	maxVersionResponse = 100
	fetchMaxElapsed    = 15 * time.Second
)

// UpdateInfo is the outcome of comparing the running launcher with the latest release.
type UpdateInfo struct {
	Current         string
	Latest          string
	UpdateAvailable bool
}

// Checker fetches the latest launcher version.
type Checker struct {
	url        string
	httpClient *http.Client
	maxElapsed time.Duration
}

// NewChecker creates a Checker for url. An empty url selects DefaultLatestURL.
func NewChecker(url string, client *http.Client) *Checker {
	if url == "" {
		url = DefaultLatestURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Checker{
		url:        url,
		httpClient: client,
		maxElapsed: fetchMaxElapsed,
	}
}

// Check compares the running launcher version with the latest published one.
// A development build never reports an update.
func (c *Checker) Check(ctx context.Context) (UpdateInfo, error) {
	info := UpdateInfo{Current: LauncherVersion()}

	latest, err := c.fetchLatest(ctx)
	if err != nil {
		return info, err
	}
	info.Latest = latest.String()

	current, err := goversion.NewVersion(info.Current)
	if err != nil {
		log.Debugf("running version %q is not a release version: %v", info.Current, err)
		return info, nil
	}

	info.UpdateAvailable = latest.GreaterThan(current)
	return info, nil
}

func (c *Checker) fetchLatest(ctx context.Context) (*goversion.Version, error) {
	var latest *goversion.Version

	operation := func() error {
		v, err := c.fetchOnce(ctx)
		if err != nil {
			return err
		}
		latest = v
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.maxElapsed
	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), func(err error, d time.Duration) {
		log.Debugf("fetching latest launcher version failed, retrying in %s: %v", d, err)
	})
	if err != nil {
		return nil, err
	}
	return latest, nil
}

func (c *Checker) fetchOnce(ctx context.Context) (*goversion.Version, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch version info: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnf("error closing response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("invalid status code: %d", resp.StatusCode)
	}

	if resp.ContentLength > maxVersionResponse {
		return nil, backoff.Permanent(fmt.Errorf("too large response: %d", resp.ContentLength))
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxVersionResponse))
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	latest, err := goversion.NewVersion(strings.TrimSpace(string(content)))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parse version string: %w", err))
	}
	return latest, nil
}
