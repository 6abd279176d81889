package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DovieW/vscode-insiders-release-notes/internal/changes"
	"github.com/DovieW/vscode-insiders-release-notes/internal/feed"
	"github.com/DovieW/vscode-insiders-release-notes/internal/github"
	"github.com/DovieW/vscode-insiders-release-notes/internal/site"
	"github.com/DovieW/vscode-insiders-release-notes/internal/state"
)

const (
	shaHead  = "aaaa000000000000000000000000000000000000"
	shaMid   = "bbbb000000000000000000000000000000000000"
	shaOld   = "cccc000000000000000000000000000000000000"
	shaFirst = "dddd000000000000000000000000000000000000"
)

type fakeFeedSource struct {
	feed *feed.Feed
	err  error
}

func (f *fakeFeedSource) KnownBuilds(ctx context.Context) (*feed.Feed, error) {
	return f.feed, f.err
}

type fakeRangeSource struct {
	cmp  *github.Comparison
	err  error
	base string
	head string
}

func (f *fakeRangeSource) Compare(ctx context.Context, base, head string) (*github.Comparison, error) {
	f.base, f.head = base, head
	return f.cmp, f.err
}

type fakePullSource struct {
	pulls map[string][]github.PullRequest
}

func (f *fakePullSource) PullsForCommit(ctx context.Context, sha string) ([]github.PullRequest, error) {
	return f.pulls[sha], nil
}

type fakeNarrator struct {
	out   string
	err   error
	calls int
}

func (f *fakeNarrator) Summarize(ctx context.Context, rng feed.Range, changeSet []changes.Change) (string, error) {
	f.calls++
	return f.out, f.err
}

type fakePublisher struct {
	err   error
	input *github.ReleaseInput
}

func (f *fakePublisher) CreateRelease(ctx context.Context, input github.ReleaseInput) (*github.Release, error) {
	f.input = &input
	if f.err != nil {
		return nil, f.err
	}
	return &github.Release{ID: 1, TagName: input.TagName, HTMLURL: "https://example.invalid/releases/" + input.TagName}, nil
}

// harness bundles a pipeline with its fakes and temp dirs.
type harness struct {
	pipeline  *Pipeline
	store     *state.Store
	siteDir   string
	narrator  *fakeNarrator
	publisher *fakePublisher
	ranges    *fakeRangeSource
}

func newHarness(t *testing.T, pulls map[string][]github.PullRequest) *harness {
	t.Helper()

	builds := feed.New([]feed.Marker{
		{Commit: shaHead, Version: "1.95.0-insider", Date: time.Date(2024, 10, 4, 6, 0, 0, 0, time.UTC)},
		{Commit: shaMid, Version: "1.95.0-insider"},
		{Commit: shaOld, Version: "1.94.0-insider"},
		{Commit: shaFirst, Version: "1.94.0-insider"},
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	siteDir := t.TempDir()

	ranges := &fakeRangeSource{cmp: &github.Comparison{
		Commits:    []string{"r1", "r2"},
		TotalCount: 2,
	}}
	narrator := &fakeNarrator{out: "## Notes\n\n- things changed"}
	publisher := &fakePublisher{}
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"))

	p := New(
		&fakeFeedSource{feed: builds},
		ranges,
		changes.NewCollector(&fakePullSource{pulls: pulls}, changes.Options{}, logger),
		narrator,
		site.NewBuilder(siteDir, site.NewRenderer("microsoft", "vscode"), logger),
		store,
		publisher,
		filepath.Join(t.TempDir(), "no-templates"),
		logger,
	)

	return &harness{
		pipeline:  p,
		store:     store,
		siteDir:   siteDir,
		narrator:  narrator,
		publisher: publisher,
		ranges:    ranges,
	}
}

func defaultPulls() map[string][]github.PullRequest {
	merged := time.Date(2024, 10, 3, 12, 0, 0, 0, time.UTC)
	return map[string][]github.PullRequest{
		"r1": {{Number: 42, Title: "Fix terminal", Author: "alice", MergedAt: merged, Merged: true}},
		"r2": {{Number: 7, Title: "Add setting", Author: "bob", MergedAt: merged.Add(-time.Hour), Merged: true}},
	}
}

func TestRunBootstrap(t *testing.T) {
	h := newHarness(t, defaultPulls())

	outcome, err := h.pipeline.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeBootstrap, outcome.Kind)
	assert.Nil(t, outcome.Snapshot, "bootstrap produces no snapshot")
	assert.Zero(t, h.narrator.calls)

	rec, err := h.store.Load()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, shaHead, rec.Commit, "bootstrap persists the feed head")
	assert.Equal(t, "1.95.0-insider", rec.Version)
}

func TestRunSkipsProcessedTarget(t *testing.T) {
	h := newHarness(t, defaultPulls())
	require.NoError(t, h.store.Save(state.Record{Commit: shaHead, Version: "1.95.0-insider", UpdatedAt: time.Now()}))

	before, err := os.ReadFile(h.store.Path())
	require.NoError(t, err)

	outcome, err := h.pipeline.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome.Kind)
	assert.Zero(t, h.narrator.calls)

	after, err := os.ReadFile(h.store.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after, "a skipped run must not rewrite state")
}

func TestRunSkipIsIdempotent(t *testing.T) {
	h := newHarness(t, defaultPulls())
	require.NoError(t, h.store.Save(state.Record{Commit: shaHead, Version: "1.95.0-insider", UpdatedAt: time.Now()}))

	for i := 0; i < 3; i++ {
		outcome, err := h.pipeline.Run(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, outcome.Kind, "run %d", i)
	}
}

func TestRunProcessesNewBuild(t *testing.T) {
	h := newHarness(t, defaultPulls())
	require.NoError(t, h.store.Save(state.Record{Commit: shaMid, Version: "1.95.0-insider", UpdatedAt: time.Now()}))

	outcome, err := h.pipeline.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeProcessed, outcome.Kind)
	require.NotNil(t, outcome.Range)
	assert.Equal(t, shaMid, outcome.Range.From.Commit, "previous boundary is the direct feed predecessor")
	assert.Equal(t, shaHead, outcome.Range.To.Commit)
	assert.Equal(t, shaMid, h.ranges.base)
	assert.Equal(t, shaHead, h.ranges.head)

	require.Len(t, outcome.Snapshot.Changes, 2)
	assert.FileExists(t, outcome.DocumentPath)
	assert.FileExists(t, outcome.IndexPath)

	index, err := os.ReadFile(outcome.IndexPath)
	require.NoError(t, err)
	assert.Contains(t, string(index), "Insiders 1.95.0-insider")

	require.NotNil(t, h.publisher.input)
	assert.Equal(t, "insiders-"+shaHead[:10], h.publisher.input.TagName)
	assert.NotEmpty(t, outcome.ReleaseURL)

	rec, err := h.store.Load()
	require.NoError(t, err)
	assert.Equal(t, shaHead, rec.Commit)
}

func TestRunForcedOlderTargetNeverRegressesState(t *testing.T) {
	h := newHarness(t, defaultPulls())
	require.NoError(t, h.store.Save(state.Record{Commit: shaHead, Version: "1.95.0-insider", UpdatedAt: time.Now()}))

	outcome, err := h.pipeline.Run(context.Background(), Options{Target: "cccc", Force: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome.Kind)

	rec, err := h.store.Load()
	require.NoError(t, err)
	assert.Equal(t, shaHead, rec.Commit, "forced reprocessing of an older build must not move the pointer backward")
}

func TestRunDryRunWritesNothing(t *testing.T) {
	h := newHarness(t, defaultPulls())
	require.NoError(t, h.store.Save(state.Record{Commit: shaMid, Version: "1.95.0-insider", UpdatedAt: time.Now()}))
	before, err := os.ReadFile(h.store.Path())
	require.NoError(t, err)

	outcome, err := h.pipeline.Run(context.Background(), Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome.Kind)
	assert.Equal(t, 1, h.narrator.calls, "dry run still exercises the narrative call")
	assert.Empty(t, outcome.DocumentPath)
	assert.Nil(t, h.publisher.input)

	after, err := os.ReadFile(h.store.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(h.siteDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "dry run must not touch the site dir")
}

func TestRunEmptyRangeAdvancesWithoutReport(t *testing.T) {
	h := newHarness(t, map[string][]github.PullRequest{})
	require.NoError(t, h.store.Save(state.Record{Commit: shaMid, Version: "1.95.0-insider", UpdatedAt: time.Now()}))

	outcome, err := h.pipeline.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, OutcomeProcessed, outcome.Kind)
	assert.Empty(t, outcome.Snapshot.Changes)
	assert.Zero(t, h.narrator.calls, "the narrator must not see an empty change set")
	assert.Empty(t, outcome.DocumentPath)

	rec, err := h.store.Load()
	require.NoError(t, err)
	assert.Equal(t, shaHead, rec.Commit, "pointer still advances past an empty range")
}

func TestRunSkipRelease(t *testing.T) {
	h := newHarness(t, defaultPulls())
	require.NoError(t, h.store.Save(state.Record{Commit: shaMid, Version: "1.95.0-insider", UpdatedAt: time.Now()}))

	outcome, err := h.pipeline.Run(context.Background(), Options{SkipRelease: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome.Kind)
	assert.FileExists(t, outcome.DocumentPath)
	assert.Nil(t, h.publisher.input)
	assert.Empty(t, outcome.ReleaseURL)
}

func TestRunReleaseFailureLeavesNothingBehind(t *testing.T) {
	h := newHarness(t, defaultPulls())
	require.NoError(t, h.store.Save(state.Record{Commit: shaMid, Version: "1.95.0-insider", UpdatedAt: time.Now()}))
	h.publisher.err = errors.New("secondary rate limit")

	_, err := h.pipeline.Run(context.Background(), Options{})
	require.Error(t, err)

	rec, loadErr := h.store.Load()
	require.NoError(t, loadErr)
	assert.Equal(t, shaMid, rec.Commit, "state must not advance on a failed run")

	entries, readErr := os.ReadDir(h.siteDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "no site files before all upstream calls succeed")
}

func TestRunTooManyChangesFailsWithoutPersisting(t *testing.T) {
	pulls := make(map[string][]github.PullRequest)
	var commits []string
	for i := 0; i < 101; i++ {
		sha := fmt.Sprintf("r%03d", i)
		commits = append(commits, sha)
		pulls[sha] = []github.PullRequest{{Number: i + 1, Title: "x", Author: "a", MergedAt: time.Now(), Merged: true}}
	}
	h := newHarness(t, pulls)
	h.ranges.cmp = &github.Comparison{Commits: commits, TotalCount: len(commits)}
	require.NoError(t, h.store.Save(state.Record{Commit: shaMid, Version: "1.95.0-insider", UpdatedAt: time.Now()}))

	_, err := h.pipeline.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, changes.ErrTooManyChanges)

	rec, loadErr := h.store.Load()
	require.NoError(t, loadErr)
	assert.Equal(t, shaMid, rec.Commit)
}

func TestRunResolvesTargetPrefix(t *testing.T) {
	h := newHarness(t, defaultPulls())
	require.NoError(t, h.store.Save(state.Record{Commit: shaFirst, Version: "1.94.0-insider", UpdatedAt: time.Now()}))

	outcome, err := h.pipeline.Run(context.Background(), Options{Target: "bbbb"})
	require.NoError(t, err)
	assert.Equal(t, shaMid, outcome.Target.Commit)
	assert.Equal(t, shaOld, outcome.Range.From.Commit)
}

func TestRunUnknownTargetFails(t *testing.T) {
	h := newHarness(t, defaultPulls())
	require.NoError(t, h.store.Save(state.Record{Commit: shaFirst, Version: "1.94.0-insider", UpdatedAt: time.Now()}))

	_, err := h.pipeline.Run(context.Background(), Options{Target: "ffff"})
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrUnknownBuild)
}

func TestRunPreviousOverride(t *testing.T) {
	h := newHarness(t, defaultPulls())
	require.NoError(t, h.store.Save(state.Record{Commit: shaFirst, Version: "1.94.0-insider", UpdatedAt: time.Now()}))

	outcome, err := h.pipeline.Run(context.Background(), Options{Target: "aaaa", Previous: "dddd"})
	require.NoError(t, err)
	assert.Equal(t, shaFirst, outcome.Range.From.Commit, "explicit previous override wins over feed predecessor")
}

func TestRunNoPreviousBuild(t *testing.T) {
	h := newHarness(t, defaultPulls())
	require.NoError(t, h.store.Save(state.Record{Commit: shaFirst, Version: "1.94.0-insider", UpdatedAt: time.Now()}))

	_, err := h.pipeline.Run(context.Background(), Options{Target: "dddd", Force: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrNoPreviousBuild)
}
