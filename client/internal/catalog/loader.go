package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	berrors "github.com/berrylauncher/berry/client/errors"
)

const (
	// DefaultURL serves the official catalog.
	DefaultURL = "https://berrydash.lncvrt.xyz/database/launcher/versions.php"

	maxCatalogSize  = 10 << 20
	fetchMaxElapsed = 30 * time.Second
)

// Loader reads catalogs from HTTP(S) URLs or local JSON and YAML files.
type Loader struct {
	httpClient *http.Client
	maxElapsed time.Duration
}

// NewLoader creates a Loader. A nil client gets a 30 second timeout.
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{httpClient: client, maxElapsed: fetchMaxElapsed}
}

// Load reads the catalog at source, an http(s) URL or a file path.
func (l *Loader) Load(ctx context.Context, source string) (*Catalog, error) {
	if source == "" {
		source = DefaultURL
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.fetch(ctx, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, berrors.New(berrors.KindIO, "read catalog", err)
	}

	switch strings.ToLower(filepath.Ext(source)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

func (l *Loader) fetch(ctx context.Context, url string) (*Catalog, error) {
	var c *Catalog
	operation := func() error {
		fetched, err := l.fetchOnce(ctx, url)
		if err != nil {
			return err
		}
		c = fetched
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = l.maxElapsed
	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), func(err error, d time.Duration) {
		log.Debugf("fetching catalog failed, retrying in %s: %v", d, err)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, berrors.New(berrors.KindCancelled, "fetch catalog", err)
		}
		return nil, berrors.New(berrors.KindNetwork, "fetch catalog", err)
	}
	return c, nil
}

func (l *Loader) fetchOnce(ctx context.Context, url string) (*Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnf("error closing response body: %v", err)
		}
	}()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("invalid status code: %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("invalid status code: %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogSize))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	c, err := ParseJSON(data)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return c, nil
}

// ParseJSON decodes a catalog. A bare array of versions is accepted as well.
func ParseJSON(data []byte) (*Catalog, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var versions []Version
		if err := json.Unmarshal(data, &versions); err != nil {
			return nil, berrors.New(berrors.KindIO, "parse catalog", err)
		}
		return &Catalog{Versions: versions}, nil
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, berrors.New(berrors.KindIO, "parse catalog", err)
	}
	return &c, nil
}

func ParseYAML(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, berrors.New(berrors.KindIO, "parse catalog", err)
	}
	return &c, nil
}
