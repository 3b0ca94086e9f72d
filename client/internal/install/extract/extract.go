// Package extract unpacks zip archives into an install directory.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	log "github.com/sirupsen/logrus"

	berrors "github.com/berrylauncher/berry/client/errors"
)

// PathPolicy decides how archive entry names are mapped below the target directory.
type PathPolicy int

const (
	// PathPolicyReject fails the extraction on entries that would land outside the target.
	PathPolicyReject PathPolicy = iota
	// PathPolicyJoin joins entry names to the target without any check.
	PathPolicyJoin
)

func (p PathPolicy) String() string {
	if p == PathPolicyJoin {
		return "join"
	}
	return "reject"
}

const defaultFileMode = 0o644

// Extractor unpacks zip archives.
type Extractor struct {
	policy PathPolicy
}

// New creates an Extractor with the given entry path policy.
func New(policy PathPolicy) *Extractor {
	return &Extractor{policy: policy}
}

// Start runs Extract on its own goroutine and delivers the result on the returned channel.
func (e *Extractor) Start(ctx context.Context, archive, target string) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- e.Extract(ctx, archive, target)
	}()
	return done
}

// Extract writes every entry of archive below target in archive order. Failures
// abort the extraction and leave whatever was written in place.
func (e *Extractor) Extract(ctx context.Context, archive, target string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return berrors.New(berrors.KindExtract, "open archive", err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Warnf("failed to close archive %s: %v", archive, err)
		}
	}()

	log.Debugf("extracting %d entries from %s to %s", len(r.File), archive, target)

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return berrors.New(berrors.KindCancelled, "extract", err)
		}

		dest, err := e.entryPath(target, f.Name)
		if err != nil {
			return err
		}

		if isDir(f) {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return berrors.Newf(berrors.KindExtract, "create directory", "%s: %w", f.Name, err)
			}
			continue
		}

		if err := writeEntry(f, dest); err != nil {
			return err
		}
	}

	return nil
}

func (e *Extractor) entryPath(target, name string) (string, error) {
	rel := filepath.FromSlash(name)
	if e.policy == PathPolicyJoin {
		return filepath.Join(target, rel), nil
	}

	if !filepath.IsLocal(strings.TrimSuffix(rel, string(filepath.Separator))) {
		return "", berrors.Newf(berrors.KindExtract, "map entry", "entry %q escapes the target directory", name)
	}
	return filepath.Join(target, rel), nil
}

func writeEntry(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return berrors.Newf(berrors.KindExtract, "create directory", "%s: %w", filepath.Dir(dest), err)
	}

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = defaultFileMode
	}

	src, err := f.Open()
	if err != nil {
		return berrors.Newf(berrors.KindExtract, "read entry", "%s: %w", f.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return berrors.Newf(berrors.KindExtract, "create file", "%s: %w", dest, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return berrors.Newf(berrors.KindExtract, "write file", "%s: %w", dest, err)
	}

	if err := out.Close(); err != nil {
		return berrors.Newf(berrors.KindExtract, "close file", "%s: %w", dest, err)
	}
	return nil
}

func isDir(f *zip.File) bool {
	return strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
}

// ParsePathPolicy maps a settings value to a PathPolicy.
func ParsePathPolicy(s string) (PathPolicy, error) {
	switch strings.ToLower(s) {
	case "", "reject":
		return PathPolicyReject, nil
	case "join":
		return PathPolicyJoin, nil
	default:
		return PathPolicyReject, fmt.Errorf("unknown archive path policy %q", s)
	}
}
