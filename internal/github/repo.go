package github

import "context"

// Repo binds a Client to one repository so callers don't carry owner and
// name through every signature.
type Repo struct {
	client *Client
	owner  string
	name   string
}

// Repo returns a repository-scoped view of the client.
func (c *Client) Repo(owner, name string) *Repo {
	return &Repo{client: c, owner: owner, name: name}
}

// Compare lists the commits between base (exclusive) and head (inclusive).
func (r *Repo) Compare(ctx context.Context, base, head string) (*Comparison, error) {
	return r.client.Compare(ctx, r.owner, r.name, base, head)
}

// PullsForCommit lists the pull requests associated with a commit.
func (r *Repo) PullsForCommit(ctx context.Context, sha string) ([]PullRequest, error) {
	return r.client.PullsForCommit(ctx, r.owner, r.name, sha)
}

// PullDetail fetches one pull request with its full narrative body.
func (r *Repo) PullDetail(ctx context.Context, number int) (*PullRequest, error) {
	return r.client.PullDetail(ctx, r.owner, r.name, number)
}

// CreateRelease publishes a release on the repository.
func (r *Repo) CreateRelease(ctx context.Context, input ReleaseInput) (*Release, error) {
	return r.client.CreateRelease(ctx, r.owner, r.name, input)
}
