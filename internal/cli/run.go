package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/DovieW/vscode-insiders-release-notes/internal/changes"
	"github.com/DovieW/vscode-insiders-release-notes/internal/config"
	"github.com/DovieW/vscode-insiders-release-notes/internal/feed"
	"github.com/DovieW/vscode-insiders-release-notes/internal/github"
	"github.com/DovieW/vscode-insiders-release-notes/internal/metrics"
	"github.com/DovieW/vscode-insiders-release-notes/internal/notes"
	"github.com/DovieW/vscode-insiders-release-notes/internal/pipeline"
	"github.com/DovieW/vscode-insiders-release-notes/internal/site"
	"github.com/DovieW/vscode-insiders-release-notes/internal/state"
	"github.com/DovieW/vscode-insiders-release-notes/internal/update"
)

var (
	runTarget      string
	runPrevious    string
	runForce       bool
	runDryRun      bool
	runSkipRelease bool
	runSiteDir     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process the newest build and publish its release notes",
	Long: `Run one processing pass: fetch the build feed, figure out what is new
since the last run, collect the merged pull requests, generate the
narrative, render the site, and publish the release.

The first ever run only records the current build as a baseline and
produces no report.

Examples:
  insidersnotes run
  insidersnotes run --dry-run
  insidersnotes run --target a1b2c3 --force
  insidersnotes run --target a1b2c3 --previous deadbeef`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runTarget, "target", "", "build to process (commit or unambiguous prefix, default: feed head)")
	runCmd.Flags().StringVar(&runPrevious, "previous", "", "override the previous boundary (commit or prefix)")
	runCmd.Flags().BoolVar(&runForce, "force", false, "reprocess a build even if already processed")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "do everything except write files, state, and the release")
	runCmd.Flags().BoolVar(&runSkipRelease, "skip-release", false, "render the site but publish no GitHub release")
	runCmd.Flags().StringVar(&runSiteDir, "site-dir", "", "override the site output directory")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	siteDir := cfg.SiteDir
	if runSiteDir != "" {
		siteDir = runSiteDir
	}

	collector := metrics.NewCollector()
	gh := github.NewClient(cfg.GitHubBaseURL, cfg.GitHubToken, collector)
	upstream := gh.Repo(cfg.UpstreamOwner, cfg.UpstreamRepo)
	notesRepo := gh.Repo(cfg.NotesOwner, cfg.NotesRepo)

	p := pipeline.New(
		update.NewClient(cfg.UpdateEndpoint, cfg.Platform, collector),
		upstream,
		changes.NewCollector(upstream, changes.Options{
			MaxChanges:  cfg.MaxChanges,
			Concurrency: cfg.Concurrency,
		}, logger),
		newLazyNarrator(cfg, collector),
		site.NewBuilder(siteDir, site.NewRenderer(cfg.UpstreamOwner, cfg.UpstreamRepo), logger),
		state.NewStore(cfg.StatePath),
		notesRepo,
		cfg.TemplateDir,
		logger,
	)

	outcome, err := p.Run(ctx, pipeline.Options{
		Target:      runTarget,
		Previous:    runPrevious,
		Force:       runForce,
		DryRun:      runDryRun,
		SkipRelease: runSkipRelease,
	})
	if err != nil {
		return err
	}

	fmt.Print(renderSummary(outcome, collector.Snapshot()))
	return nil
}

// lazyNarrator defers LLM construction until a narrative is actually
// needed, so bootstrap and skip runs work without any LLM credentials.
type lazyNarrator struct {
	cfg     config.Config
	metrics *metrics.Collector

	once sync.Once
	gen  *notes.Generator
	err  error
}

func newLazyNarrator(cfg config.Config, collector *metrics.Collector) *lazyNarrator {
	return &lazyNarrator{cfg: cfg, metrics: collector}
}

func (l *lazyNarrator) Summarize(ctx context.Context, rng feed.Range, changeSet []changes.Change) (string, error) {
	l.once.Do(func() {
		model, err := notes.NewModel(ctx, l.cfg, l.metrics)
		if err != nil {
			l.err = fmt.Errorf("init LLM: %w", err)
			return
		}
		l.gen = notes.NewGenerator(model)
	})
	if l.err != nil {
		return "", l.err
	}
	return l.gen.Summarize(ctx, rng, changeSet)
}
