package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DovieW/vscode-insiders-release-notes/internal/metrics"
	"github.com/DovieW/vscode-insiders-release-notes/internal/state"
	"github.com/DovieW/vscode-insiders-release-notes/internal/update"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted pointer and how far behind the feed it is",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	theme := defaultTheme

	rec, err := state.NewStore(cfg.StatePath).Load()
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if rec == nil {
		fmt.Println(theme.infoStyle().Render("No state yet."))
		fmt.Println(theme.hintStyle().Render("The first 'run' records the current build as a baseline."))
		return nil
	}

	fmt.Printf("Last processed:  %s", rec.Commit)
	if rec.Version != "" {
		fmt.Printf(" (%s)", rec.Version)
	}
	fmt.Printf("\nUpdated at:      %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05 MST"))

	collector := metrics.NewCollector()
	builds, err := update.NewClient(cfg.UpdateEndpoint, cfg.Platform, collector).KnownBuilds(ctx)
	if err != nil {
		return fmt.Errorf("fetch build feed: %w", err)
	}

	head, ok := builds.Head()
	if !ok {
		fmt.Println(theme.warnStyle().Render("The build feed is empty."))
		return nil
	}
	fmt.Printf("Feed head:       %s", head.ShortCommit())
	if head.Version != "" {
		fmt.Printf(" (%s)", head.Version)
	}
	fmt.Println()

	pos, known := builds.Position(rec.Commit)
	switch {
	case !known:
		fmt.Println(theme.warnStyle().Render("The persisted build is no longer in the feed window; the next run will proceed anyway."))
	case pos == 0:
		fmt.Println(theme.successStyle().Render("Up to date."))
	default:
		fmt.Println(theme.infoStyle().Render(fmt.Sprintf("%d newer build(s) available.", pos)))
	}
	return nil
}
