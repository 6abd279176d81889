package github

import (
	"context"
	"fmt"
	"time"

	"github.com/DovieW/vscode-insiders-release-notes/internal/metrics"
)

// ReleaseInput describes the release entry to publish on the notes repo.
type ReleaseInput struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	Body    string `json:"body"`
}

// Release is the published release entry.
type Release struct {
	ID      int64  `json:"id"`
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// CreateRelease publishes a release on owner/repo.
func (c *Client) CreateRelease(ctx context.Context, owner, repo string, input ReleaseInput) (*Release, error) {
	if c.metrics != nil {
		defer c.metrics.Observe(metrics.OpRelease, time.Now())
	}

	var rel Release
	path := fmt.Sprintf("/repos/%s/%s/releases", owner, repo)
	if err := c.post(ctx, path, input, &rel); err != nil {
		return nil, fmt.Errorf("create release %s: %w", input.TagName, err)
	}
	return &rel, nil
}
