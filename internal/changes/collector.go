// Package changes collects the deduplicated set of merged pull requests
// inside a build range.
package changes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DovieW/vscode-insiders-release-notes/internal/feed"
	"github.com/DovieW/vscode-insiders-release-notes/internal/github"
)

// DefaultMaxChanges is the ceiling on deduplicated changes per run.
// Exceeding it fails the run outright: a report that large needs a human,
// not an oversized page.
const DefaultMaxChanges = 100

// ErrTooManyChanges indicates the range contains more merged changes than
// the configured ceiling allows.
var ErrTooManyChanges = errors.New("too many changes in range")

// PullSource fetches the pull requests associated with a commit.
type PullSource interface {
	PullsForCommit(ctx context.Context, sha string) ([]github.PullRequest, error)
}

// Change is one deduplicated merged contribution found within a range.
type Change struct {
	Number   int
	Title    string
	Author   string
	Body     string
	Labels   []string
	MergedAt time.Time
}

// Skipped records a commit whose PR lookup failed and was tolerated.
type Skipped struct {
	SHA    string
	Reason string
}

// Snapshot is the immutable output of one collection pass.
type Snapshot struct {
	ID           string
	Range        feed.Range
	Changes      []Change
	Skipped      []Skipped
	TotalCommits int
	Truncated    bool
}

// Options configures a Collector.
type Options struct {
	// MaxChanges is the dedup ceiling; 0 uses DefaultMaxChanges.
	MaxChanges int
	// Concurrency sets the number of parallel lookup workers (default 4).
	Concurrency int
}

// Collector turns a commit comparison into a deduplicated change set.
type Collector struct {
	source      PullSource
	maxChanges  int
	concurrency int
	logger      *slog.Logger
}

// NewCollector creates a collector over the given pull source.
func NewCollector(source PullSource, opts Options, logger *slog.Logger) *Collector {
	if opts.MaxChanges <= 0 {
		opts.MaxChanges = DefaultMaxChanges
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		source:      source,
		maxChanges:  opts.MaxChanges,
		concurrency: opts.Concurrency,
		logger:      logger,
	}
}

// Collect fans out PR lookups for every commit in the comparison and
// accumulates them keyed by PR number, so a change spanning many commits
// collapses to a single entry. Only merged PRs are retained. Individual
// lookup failures are logged and recorded in Skipped; they never abort
// the run. Exceeding the change ceiling does.
func (c *Collector) Collect(ctx context.Context, rng feed.Range, cmp *github.Comparison) (*Snapshot, error) {
	var (
		mu      sync.Mutex
		byNum   = make(map[int]Change)
		skipped []Skipped
	)

	shaChan := make(chan string, len(cmp.Commits))
	var wg sync.WaitGroup

	for i := 0; i < c.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sha := range shaChan {
				if ctx.Err() != nil {
					return
				}

				pulls, err := c.source.PullsForCommit(ctx, sha)
				if err != nil {
					c.logger.Warn("pull lookup failed, skipping commit", "sha", sha, "error", err)
					mu.Lock()
					skipped = append(skipped, Skipped{SHA: sha, Reason: err.Error()})
					mu.Unlock()
					continue
				}

				mu.Lock()
				for _, pr := range pulls {
					if !pr.Merged {
						continue
					}
					byNum[pr.Number] = Change{
						Number:   pr.Number,
						Title:    pr.Title,
						Author:   pr.Author,
						Body:     pr.Body,
						Labels:   pr.Labels,
						MergedAt: pr.MergedAt,
					}
				}
				mu.Unlock()
			}
		}()
	}

	for _, sha := range cmp.Commits {
		shaChan <- sha
	}
	close(shaChan)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(byNum) > c.maxChanges {
		return nil, fmt.Errorf("%w: %d changes, ceiling is %d", ErrTooManyChanges, len(byNum), c.maxChanges)
	}

	collected := make([]Change, 0, len(byNum))
	for _, ch := range byNum {
		collected = append(collected, ch)
	}
	// Deterministic narrative ordering: newest merge first, ties by
	// number descending.
	sort.Slice(collected, func(i, j int) bool {
		if !collected[i].MergedAt.Equal(collected[j].MergedAt) {
			return collected[i].MergedAt.After(collected[j].MergedAt)
		}
		return collected[i].Number > collected[j].Number
	})

	// Deterministic skip ordering for reporting.
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].SHA < skipped[j].SHA })

	return &Snapshot{
		ID:           uuid.NewString(),
		Range:        rng,
		Changes:      collected,
		Skipped:      skipped,
		TotalCommits: cmp.TotalCount,
		Truncated:    cmp.Truncated,
	}, nil
}
