// Package pipeline orchestrates one end-to-end processing run: feed
// fetch, range resolution, change collection, narrative generation, site
// rendering, release publishing, and state advancement.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DovieW/vscode-insiders-release-notes/internal/changes"
	"github.com/DovieW/vscode-insiders-release-notes/internal/feed"
	"github.com/DovieW/vscode-insiders-release-notes/internal/github"
	"github.com/DovieW/vscode-insiders-release-notes/internal/site"
	"github.com/DovieW/vscode-insiders-release-notes/internal/state"
)

// FeedSource lists the known builds, newest first.
type FeedSource interface {
	KnownBuilds(ctx context.Context) (*feed.Feed, error)
}

// RangeSource compares two commits in the upstream repository.
type RangeSource interface {
	Compare(ctx context.Context, base, head string) (*github.Comparison, error)
}

// Narrator writes the release notes narrative for a change set.
type Narrator interface {
	Summarize(ctx context.Context, rng feed.Range, changeSet []changes.Change) (string, error)
}

// Publisher creates the platform release entry.
type Publisher interface {
	CreateRelease(ctx context.Context, input github.ReleaseInput) (*github.Release, error)
}

// Options control a single run.
type Options struct {
	// Target selects the build to process (full commit or prefix).
	// Empty means the feed head.
	Target string
	// Previous overrides the computed previous boundary.
	Previous string
	// Force reprocesses a build the state says is already done.
	Force bool
	// DryRun performs all reads and the LLM call but writes nothing:
	// no site files, no release, no state.
	DryRun bool
	// SkipRelease renders the site but publishes no release entry.
	SkipRelease bool
}

// OutcomeKind names the terminal state of a run.
type OutcomeKind string

const (
	// OutcomeBootstrap recorded the feed head as the new baseline with
	// no report produced.
	OutcomeBootstrap OutcomeKind = "bootstrap"
	// OutcomeSkipped means the target was already processed.
	OutcomeSkipped OutcomeKind = "skipped"
	// OutcomeProcessed means a report was produced.
	OutcomeProcessed OutcomeKind = "processed"
)

// Outcome describes what a run did.
type Outcome struct {
	Kind         OutcomeKind
	Target       feed.Marker
	Range        *feed.Range
	Snapshot     *changes.Snapshot
	DocumentPath string
	IndexPath    string
	ReleaseURL   string
	Persisted    *state.Record
}

// Pipeline wires the collaborators for a run.
type Pipeline struct {
	feedSource  FeedSource
	upstream    RangeSource
	collector   *changes.Collector
	narrator    Narrator
	builder     *site.Builder
	store       *state.Store
	publisher   Publisher
	templateDir string
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a pipeline. publisher may be nil when release publishing is
// not configured.
func New(
	feedSource FeedSource,
	upstream RangeSource,
	collector *changes.Collector,
	narrator Narrator,
	builder *site.Builder,
	store *state.Store,
	publisher Publisher,
	templateDir string,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		feedSource:  feedSource,
		upstream:    upstream,
		collector:   collector,
		narrator:    narrator,
		builder:     builder,
		store:       store,
		publisher:   publisher,
		templateDir: templateDir,
		logger:      logger,
		now:         time.Now,
	}
}

// Run executes one pass. Nothing is persisted until every upstream call
// has succeeded, so a failed run never leaves a half-advanced pointer or
// a document without its index entry.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Outcome, error) {
	builds, err := p.feedSource.KnownBuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch build feed: %w", err)
	}
	p.logger.Info("fetched build feed", "builds", builds.Len())

	target, err := p.resolveTarget(builds, opts.Target)
	if err != nil {
		return nil, err
	}

	rec, err := p.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	// Bootstrap: record the current head as the baseline and stop.
	// Reporting "everything since the beginning of time" helps nobody.
	if rec == nil {
		return p.bootstrap(target, opts)
	}

	if builds.ShouldSkip(rec.Commit, target, opts.Force) {
		p.logger.Info("target already processed, skipping",
			"target", target.ShortCommit(), "persisted", rec.Commit[:min(10, len(rec.Commit))])
		return &Outcome{Kind: OutcomeSkipped, Target: target, Persisted: rec}, nil
	}

	var previousOverride *feed.Marker
	if opts.Previous != "" {
		prev, err := builds.Resolve(opts.Previous)
		if err != nil {
			return nil, fmt.Errorf("resolve previous: %w", err)
		}
		previousOverride = &prev
	}

	rng, err := builds.ComputeRange(target, previousOverride)
	if err != nil {
		return nil, fmt.Errorf("compute range: %w", err)
	}
	p.logger.Info("processing range", "from", rng.From.ShortCommit(), "to", rng.To.ShortCommit())

	cmp, err := p.upstream.Compare(ctx, rng.From.Commit, rng.To.Commit)
	if err != nil {
		return nil, fmt.Errorf("compare range: %w", err)
	}

	snap, err := p.collector.Collect(ctx, rng, cmp)
	if err != nil {
		return nil, fmt.Errorf("collect changes: %w", err)
	}
	p.logger.Info("collected changes",
		"changes", len(snap.Changes), "skipped", len(snap.Skipped), "truncated", snap.Truncated)

	outcome := &Outcome{
		Kind:     OutcomeProcessed,
		Target:   target,
		Range:    &rng,
		Snapshot: snap,
	}

	// An empty change set produces no document and no release; the
	// pointer still advances so the build is not reprocessed forever.
	if len(snap.Changes) > 0 {
		narrative, err := p.narrator.Summarize(ctx, rng, snap.Changes)
		if err != nil {
			return nil, fmt.Errorf("generate narrative: %w", err)
		}

		if opts.DryRun {
			p.logger.Info("dry run: skipping site, release, and state writes")
			return outcome, nil
		}

		if err := p.publish(ctx, outcome, narrative, opts); err != nil {
			return nil, err
		}
	} else {
		p.logger.Info("no merged changes in range, nothing to report")
		if opts.DryRun {
			return outcome, nil
		}
	}

	next := builds.NextPersisted(rec.Commit, target)
	persisted := state.Record{
		Commit:    next.Commit,
		Version:   p.versionFor(next, rec),
		UpdatedAt: p.now().UTC(),
	}
	if err := p.store.Save(persisted); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	outcome.Persisted = &persisted
	p.logger.Info("advanced state", "commit", persisted.Commit, "version", persisted.Version)

	return outcome, nil
}

// resolveTarget picks the feed head or resolves the user-supplied ref.
func (p *Pipeline) resolveTarget(builds *feed.Feed, ref string) (feed.Marker, error) {
	if ref == "" {
		head, ok := builds.Head()
		if !ok {
			return feed.Marker{}, fmt.Errorf("build feed is empty")
		}
		return head, nil
	}
	target, err := builds.Resolve(ref)
	if err != nil {
		return feed.Marker{}, fmt.Errorf("resolve target: %w", err)
	}
	return target, nil
}

// bootstrap persists the target as the new baseline without producing a
// report.
func (p *Pipeline) bootstrap(target feed.Marker, opts Options) (*Outcome, error) {
	p.logger.Info("no prior state, bootstrapping", "target", target.ShortCommit())
	outcome := &Outcome{Kind: OutcomeBootstrap, Target: target}
	if opts.DryRun {
		return outcome, nil
	}

	rec := state.Record{
		Commit:    target.Commit,
		Version:   target.Version,
		UpdatedAt: p.now().UTC(),
	}
	if err := p.store.Save(rec); err != nil {
		return nil, fmt.Errorf("save bootstrap state: %w", err)
	}
	outcome.Persisted = &rec
	return outcome, nil
}

// publish creates the release entry, then writes the document, index,
// and assets. The release goes first: local files are only written once
// every upstream call has succeeded.
func (p *Pipeline) publish(ctx context.Context, outcome *Outcome, narrative string, opts Options) error {
	if !opts.SkipRelease && p.publisher != nil {
		rel, err := p.publisher.CreateRelease(ctx, github.ReleaseInput{
			TagName: "insiders-" + outcome.Target.ShortCommit(),
			Name:    site.Title(outcome.Snapshot),
			Body:    narrative,
		})
		if err != nil {
			return fmt.Errorf("create release: %w", err)
		}
		outcome.ReleaseURL = rel.HTMLURL
	}

	docPath, err := p.builder.WriteDocument(outcome.Snapshot, narrative, p.now())
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	outcome.DocumentPath = docPath

	indexPath, err := p.builder.RebuildIndex()
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	outcome.IndexPath = indexPath

	if err := p.builder.CopyAssets(p.templateDir); err != nil {
		return fmt.Errorf("copy assets: %w", err)
	}
	return nil
}

// versionFor picks the display version for the persisted record: the
// advanced marker's own version when known, otherwise whatever was
// already recorded for that commit.
func (p *Pipeline) versionFor(next feed.Marker, prev *state.Record) string {
	if next.Version != "" {
		return next.Version
	}
	if prev != nil && prev.Commit == next.Commit {
		return prev.Version
	}
	return ""
}
