// Package update talks to the VS Code update service, the source of the
// ordered build feed.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DovieW/vscode-insiders-release-notes/internal/feed"
	"github.com/DovieW/vscode-insiders-release-notes/internal/metrics"
)

const (
	// DefaultEndpoint is the public VS Code update service.
	DefaultEndpoint = "https://update.code.visualstudio.com"

	// DefaultPlatform is the platform whose build feed is tracked. Every
	// platform ships the same commits, so any one of them works.
	DefaultPlatform = "linux-x64"

	// quality pins the feed to Insiders builds.
	quality = "insider"
)

// ErrUpstream indicates the update service call failed.
var ErrUpstream = errors.New("update service unavailable")

// Client queries the update service for known builds.
type Client struct {
	endpoint string
	platform string
	http     *http.Client
	metrics  *metrics.Collector
}

// NewClient creates an update service client. Empty endpoint or platform
// fall back to the public service defaults.
func NewClient(endpoint, platform string, collector *metrics.Collector) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if platform == "" {
		platform = DefaultPlatform
	}
	return &Client{
		endpoint: endpoint,
		platform: platform,
		http:     &http.Client{Timeout: 30 * time.Second},
		metrics:  collector,
	}
}

// latestResponse is the update service's build descriptor. The service
// reports the commit hash in the "version" field and the human-readable
// version in "productVersion".
type latestResponse struct {
	Version        string `json:"version"`
	ProductVersion string `json:"productVersion"`
	Timestamp      int64  `json:"timestamp"`
}

// KnownBuilds returns the ordered feed of Insiders builds, newest first.
// The commits endpoint provides the ordering; the latest-build descriptor
// decorates the head with its display version and timestamp.
func (c *Client) KnownBuilds(ctx context.Context) (*feed.Feed, error) {
	if c.metrics != nil {
		defer c.metrics.Observe(metrics.OpFeedList, time.Now())
	}

	commits, err := c.commits(ctx)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("%w: empty commit feed", ErrUpstream)
	}

	markers := make([]feed.Marker, len(commits))
	for i, sha := range commits {
		markers[i] = feed.Marker{Commit: sha}
	}

	// Best effort: the feed is usable without head metadata.
	if latest, err := c.latest(ctx); err == nil && latest.Version == markers[0].Commit {
		markers[0].Version = latest.ProductVersion
		markers[0].Date = time.UnixMilli(latest.Timestamp).UTC()
	}

	return feed.New(markers), nil
}

// commits fetches the newest-first commit list for the tracked platform.
func (c *Client) commits(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/api/commits/%s/%s", c.endpoint, quality, c.platform)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: list commits: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: list commits: status %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	var commits []string
	if err := json.NewDecoder(resp.Body).Decode(&commits); err != nil {
		return nil, fmt.Errorf("%w: decode commit feed: %v", ErrUpstream, err)
	}
	return commits, nil
}

// latest fetches the descriptor of the newest build. The service only
// answers with a build when the commit in the path is not the latest, so
// a placeholder is used.
func (c *Client) latest(ctx context.Context) (*latestResponse, error) {
	url := fmt.Sprintf("%s/api/update/%s/%s/unknown", c.endpoint, c.platform, quality)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: latest build: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: latest build: status %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	var latest latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		return nil, fmt.Errorf("%w: decode latest build: %v", ErrUpstream, err)
	}
	return &latest, nil
}
