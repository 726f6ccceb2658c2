// Package update checks for, downloads, and installs new releases of the desktop app.
//
// Releases are described by a latest.json manifest:
//
//	{
//	  "version": "1.2.0",
//	  "notes": "...",
//	  "pub_date": "2025-06-01T00:00:00Z",
//	  "platforms": {
//	    "linux-x86_64": {"url": "https://...", "signature": "..."}
//	  }
//	}
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// checkInterval is how long a check result is reused before hitting the endpoint again.
var checkInterval = 24 * time.Hour

// SetCheckInterval changes the check interval. Non-positive values are ignored.
func SetCheckInterval(hours int) {
	if hours > 0 {
		checkInterval = time.Duration(hours) * time.Hour
	}
}

// Package-level hooks for testing.
var (
	now    = time.Now
	goos   = runtime.GOOS
	goarch = runtime.GOARCH
)

// Info is the result of an update check.
type Info struct {
	Available      bool   `json:"available"`
	CurrentVersion string `json:"currentVersion"`
	LatestVersion  string `json:"latestVersion,omitempty"`
	Notes          string `json:"notes,omitempty"`
	PubDate        string `json:"pubDate,omitempty"`
	URL            string `json:"url,omitempty"`
	Signature      string `json:"signature,omitempty"`
}

// Manifest is the decoded latest.json.
type Manifest struct {
	Version   string              `json:"version"`
	Notes     string              `json:"notes"`
	PubDate   string              `json:"pub_date"`
	Platforms map[string]Platform `json:"platforms"`
}

// Platform is one downloadable artifact in the manifest.
type Platform struct {
	URL       string `json:"url"`
	Signature string `json:"signature"`
}

// Updater is the "updater" plugin.
type Updater struct {
	endpoint string
	pubkey   string
	client   *http.Client
	log      zerolog.Logger

	mu        sync.Mutex
	cached    *Info
	checkedAt time.Time
}

// New creates the updater plugin. An empty endpoint disables update checks.
func New(endpoint, pubkey string, log zerolog.Logger) *Updater {
	return &Updater{
		endpoint: strings.TrimSpace(endpoint),
		pubkey:   pubkey,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log.With().Str("plugin", "updater").Logger(),
	}
}

func (u *Updater) Name() string { return "updater" }

func (u *Updater) Init(ctx context.Context) error { return nil }

// Close drops idle connections kept by the HTTP client.
func (u *Updater) Close() error {
	u.client.CloseIdleConnections()
	return nil
}

// Enabled reports whether an endpoint is configured.
func (u *Updater) Enabled() bool {
	return u.endpoint != ""
}

// Check compares currentVersion with the published manifest. Results are
// cached for the check interval unless force is set.
func (u *Updater) Check(ctx context.Context, currentVersion string, force bool) (*Info, error) {
	if !u.Enabled() {
		return &Info{CurrentVersion: currentVersion}, nil
	}

	u.mu.Lock()
	if !force && u.cached != nil && u.cached.CurrentVersion == currentVersion && now().Sub(u.checkedAt) < checkInterval {
		info := *u.cached
		u.mu.Unlock()
		return &info, nil
	}
	u.mu.Unlock()

	manifest, err := u.fetchManifest(ctx)
	if err != nil {
		return nil, err
	}

	info := &Info{
		CurrentVersion: currentVersion,
		LatestVersion:  strings.TrimPrefix(manifest.Version, "v"),
		Notes:          manifest.Notes,
		PubDate:        manifest.PubDate,
	}

	if CompareVersions(currentVersion, manifest.Version) < 0 {
		key := PlatformKey()
		platform, ok := manifest.Platforms[key]
		if !ok || platform.URL == "" {
			return nil, fmt.Errorf("release %s has no artifact for %s", manifest.Version, key)
		}
		info.Available = true
		info.URL = platform.URL
		info.Signature = platform.Signature
	}

	u.mu.Lock()
	cached := *info
	u.cached = &cached
	u.checkedAt = now()
	u.mu.Unlock()

	u.log.Info().
		Str("current", currentVersion).
		Str("latest", info.LatestVersion).
		Bool("available", info.Available).
		Msg("update check finished")
	return info, nil
}

// CheckAsync runs Check in the background. Failures are logged and reported
// as "no update available".
func (u *Updater) CheckAsync(ctx context.Context, currentVersion string) <-chan Info {
	ch := make(chan Info, 1)
	go func() {
		defer close(ch)
		info, err := u.Check(ctx, currentVersion, false)
		if err != nil {
			u.log.Warn().Err(err).Msg("update check failed")
			ch <- Info{CurrentVersion: currentVersion}
			return
		}
		ch <- *info
	}()
	return ch
}

func (u *Updater) fetchManifest(ctx context.Context) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid update endpoint: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch update manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch update manifest: %s", resp.Status)
	}

	var manifest Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to parse update manifest: %w", err)
	}
	if manifest.Version == "" {
		return nil, fmt.Errorf("update manifest has no version")
	}
	return &manifest, nil
}

// PlatformKey returns the manifest key for the running OS and architecture,
// e.g. "linux-x86_64" or "darwin-aarch64".
func PlatformKey() string {
	arch := goarch
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	case "386":
		arch = "i686"
	case "arm":
		arch = "armv7"
	}
	return goos + "-" + arch
}

// CompareVersions compares two dotted versions with an optional "v" prefix.
// Missing components count as zero and pre-release suffixes are ignored.
// Returns -1 if v1 < v2, 0 if equal, 1 if v1 > v2.
func CompareVersions(v1, v2 string) int {
	p1 := versionParts(v1)
	p2 := versionParts(v2)

	for len(p1) < len(p2) {
		p1 = append(p1, 0)
	}
	for len(p2) < len(p1) {
		p2 = append(p2, 0)
	}

	for i := range p1 {
		switch {
		case p1[i] < p2[i]:
			return -1
		case p1[i] > p2[i]:
			return 1
		}
	}
	return 0
}

func versionParts(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}

	fields := strings.Split(v, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			n = 0
		}
		parts = append(parts, n)
	}
	return parts
}
