package github

import (
	"context"
	"fmt"
	"time"

	"github.com/DovieW/vscode-insiders-release-notes/internal/metrics"
)

// Comparison is the result of comparing two commits: the commits strictly
// after base up to and including head, in upstream order.
type Comparison struct {
	Commits    []string
	TotalCount int
	Truncated  bool
}

// compareResponse mirrors the fields of the compare endpoint this
// pipeline reads. GitHub caps the commits list at 250 entries; TotalCount
// still reports the full range size.
type compareResponse struct {
	TotalCommits int `json:"total_commits"`
	Commits      []struct {
		SHA string `json:"sha"`
	} `json:"commits"`
}

// Compare lists the commits between base (exclusive) and head (inclusive)
// in owner/repo.
func (c *Client) Compare(ctx context.Context, owner, repo, base, head string) (*Comparison, error) {
	if c.metrics != nil {
		defer c.metrics.Observe(metrics.OpCompare, time.Now())
	}

	var resp compareResponse
	path := fmt.Sprintf("/repos/%s/%s/compare/%s...%s", owner, repo, base, head)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("compare %s...%s: %w", base, head, err)
	}

	shas := make([]string, len(resp.Commits))
	for i, commit := range resp.Commits {
		shas[i] = commit.SHA
	}

	return &Comparison{
		Commits:    shas,
		TotalCount: resp.TotalCommits,
		Truncated:  resp.TotalCommits > len(resp.Commits),
	}, nil
}
