// Package catalog reads the published version catalog and picks the build to
// install for a host platform.
package catalog

import (
	"runtime"
	"sort"

	goversion "github.com/hashicorp/go-version"

	berrors "github.com/berrylauncher/berry/client/errors"
)

// Platform names as published in the catalog.
const (
	PlatformWindows = "windows"
	PlatformLinux   = "linux"
	PlatformMacOS   = "macos"
)

// Version is a published build set of one game version.
// DownloadURLs, Executables and Digests are indexed like Platforms.
type Version struct {
	ID           string   `json:"id" yaml:"id"`
	VersionName  string   `json:"versionName" yaml:"versionName"`
	ReleaseDate  int64    `json:"releaseDate" yaml:"releaseDate"`
	DownloadURLs []string `json:"downloadUrls" yaml:"downloadUrls"`
	Platforms    []string `json:"platforms" yaml:"platforms"`
	Executables  []string `json:"executables" yaml:"executables"`
	Digests      []string `json:"digests,omitempty" yaml:"digests,omitempty"`
	Game         int      `json:"game" yaml:"game"`
	Place        int      `json:"place" yaml:"place"`
}

type Game struct {
	ID        int     `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	Official  bool    `json:"official" yaml:"official"`
	Verified  bool    `json:"verified" yaml:"verified"`
	Developer *string `json:"developer" yaml:"developer"`
	CutOff    *int    `json:"cutOff" yaml:"cutOff"`
}

type Catalog struct {
	Versions []Version `json:"versions" yaml:"versions"`
	Games    []Game    `json:"games" yaml:"games"`
}

// Entry is the concrete build chosen for a platform.
type Entry struct {
	Version    Version
	URL        string
	Executable string
	Platform   string
	Digest     string
	// NeedsRunner is set when a Windows build was chosen for a Linux host.
	NeedsRunner bool
}

// HostPlatform returns the catalog platform name of the running host.
func HostPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	default:
		return PlatformLinux
	}
}

// Find looks a version up by id, then by version name.
func (c *Catalog) Find(id string) (Version, bool) {
	for _, v := range c.Versions {
		if v.ID == id {
			return v, true
		}
	}
	for _, v := range c.Versions {
		if v.VersionName == id {
			return v, true
		}
	}
	return Version{}, false
}

// Select picks the build of version id for platform.
func (c *Catalog) Select(id, platform string, useRunner bool) (Entry, error) {
	v, ok := c.Find(id)
	if !ok {
		return Entry{}, berrors.Newf(berrors.KindNotFound, "select version", "version %s is not in the catalog", id)
	}
	return v.Entry(platform, useRunner)
}

// Entry picks the build for platform. On Linux with the runner enabled a
// Windows build is used when no Linux build exists.
func (v Version) Entry(platform string, useRunner bool) (Entry, error) {
	chosen := platform
	if platform == PlatformLinux && useRunner && !v.supports(PlatformLinux) && v.supports(PlatformWindows) {
		chosen = PlatformWindows
	}

	idx := v.index(chosen)
	url := at(v.DownloadURLs, idx)
	if url == "" {
		return Entry{}, berrors.Newf(berrors.KindNotFound, "select version", "version %s has no download for %s", v.ID, platform)
	}

	return Entry{
		Version:     v,
		URL:         url,
		Executable:  at(v.Executables, idx),
		Platform:    chosen,
		Digest:      at(v.Digests, idx),
		NeedsRunner: chosen != platform,
	}, nil
}

// Available returns the versions installable on platform, newest first.
func (c *Catalog) Available(platform string, useRunner bool) []Version {
	var result []Version
	for _, v := range c.Versions {
		if _, err := v.Entry(platform, useRunner); err == nil {
			result = append(result, v)
		}
	}
	SortNewestFirst(result)
	return result
}

// SortNewestFirst orders by semantic version when both names parse, by
// release date otherwise.
func SortNewestFirst(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		a, aerr := goversion.NewVersion(versions[i].VersionName)
		b, berr := goversion.NewVersion(versions[j].VersionName)
		if aerr == nil && berr == nil && !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return versions[i].ReleaseDate > versions[j].ReleaseDate
	})
}

func (v Version) supports(platform string) bool {
	return v.index(platform) >= 0
}

func (v Version) index(platform string) int {
	for i, p := range v.Platforms {
		if p == platform {
			return i
		}
	}
	return -1
}

func at(list []string, idx int) string {
	if idx < 0 || idx >= len(list) {
		return ""
	}
	return list[idx]
}
