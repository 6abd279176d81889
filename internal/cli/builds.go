package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DovieW/vscode-insiders-release-notes/internal/metrics"
	"github.com/DovieW/vscode-insiders-release-notes/internal/state"
	"github.com/DovieW/vscode-insiders-release-notes/internal/update"
)

var buildsLimit int

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "List the known builds, newest first",
	Long: `List the builds the update service currently knows about, newest
first. The persisted build, if it appears in the window, is marked.

Examples:
  insidersnotes builds
  insidersnotes builds --limit 50`,
	Args: cobra.NoArgs,
	RunE: runBuilds,
}

func init() {
	buildsCmd.Flags().IntVar(&buildsLimit, "limit", 20, "maximum builds to list (0 for all)")
}

func runBuilds(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	collector := metrics.NewCollector()
	feedClient := update.NewClient(cfg.UpdateEndpoint, cfg.Platform, collector)

	builds, err := feedClient.KnownBuilds(ctx)
	if err != nil {
		return fmt.Errorf("fetch build feed: %w", err)
	}

	persisted := ""
	if rec, err := state.NewStore(cfg.StatePath).Load(); err == nil && rec != nil {
		persisted = rec.Commit
	}

	markers := builds.Markers()
	shown := len(markers)
	if buildsLimit > 0 && buildsLimit < shown {
		shown = buildsLimit
	}

	theme := defaultTheme
	for _, m := range markers[:shown] {
		line := "  " + m.ShortCommit()
		if m.Version != "" {
			line += "  " + m.Version
		}
		if !m.Date.IsZero() {
			line += "  " + m.Date.Format("2006-01-02 15:04")
		}
		if m.Commit == persisted {
			line += "  " + theme.successStyle().Render("← last processed")
		}
		fmt.Println(line)
	}
	if shown < len(markers) {
		fmt.Println(theme.hintStyle().Render(fmt.Sprintf("  … %d more (--limit 0 to list all)", len(markers)-shown)))
	}
	return nil
}
