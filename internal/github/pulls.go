package github

import (
	"context"
	"fmt"
	"time"

	"github.com/DovieW/vscode-insiders-release-notes/internal/metrics"
)

// PullRequest is one merged contribution as reported by GitHub.
type PullRequest struct {
	Number   int
	Title    string
	Author   string
	Body     string
	Labels   []string
	MergedAt time.Time
	Merged   bool
}

// pullResponse mirrors the pull-request fields this pipeline reads.
type pullResponse struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	MergedAt *time.Time `json:"merged_at"`
}

func (p pullResponse) toPullRequest() PullRequest {
	pr := PullRequest{
		Number: p.Number,
		Title:  p.Title,
		Body:   p.Body,
		Author: p.User.Login,
	}
	for _, l := range p.Labels {
		pr.Labels = append(pr.Labels, l.Name)
	}
	if p.MergedAt != nil {
		pr.MergedAt = *p.MergedAt
		pr.Merged = true
	}
	return pr
}

// PullsForCommit lists the pull requests associated with a commit. A
// commit that belongs to no PR (a direct push) yields an empty list.
func (c *Client) PullsForCommit(ctx context.Context, owner, repo, sha string) ([]PullRequest, error) {
	if c.metrics != nil {
		defer c.metrics.Observe(metrics.OpPulls, time.Now())
	}

	var resp []pullResponse
	path := fmt.Sprintf("/repos/%s/%s/commits/%s/pulls", owner, repo, sha)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("pulls for %s: %w", sha, err)
	}

	pulls := make([]PullRequest, len(resp))
	for i, p := range resp {
		pulls[i] = p.toPullRequest()
	}
	return pulls, nil
}

// PullDetail fetches one pull request with its full narrative body.
func (c *Client) PullDetail(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	if c.metrics != nil {
		defer c.metrics.Observe(metrics.OpPulls, time.Now())
	}

	var resp pullResponse
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("pull #%d: %w", number, err)
	}

	pr := resp.toPullRequest()
	return &pr, nil
}
