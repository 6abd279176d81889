package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/DovieW/vscode-insiders-release-notes/internal/metrics"
	"github.com/DovieW/vscode-insiders-release-notes/internal/pipeline"
)

// Theme holds the color scheme for terminal output.
type Theme struct {
	Success lipgloss.Color
	Info    lipgloss.Color
	Warn    lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Success: lipgloss.Color("#00D787"), // green
	Info:    lipgloss.Color("#5FAFD7"), // light blue
	Warn:    lipgloss.Color("#FFAF00"), // amber
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) infoStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Info)
}

func (t Theme) warnStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Warn)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// renderSummary builds the human-readable summary of a finished run.
func renderSummary(outcome *pipeline.Outcome, snap metrics.Snapshot) string {
	theme := defaultTheme
	var sb strings.Builder

	switch outcome.Kind {
	case pipeline.OutcomeBootstrap:
		sb.WriteString(theme.successStyle().Render("✓ Bootstrapped") + "\n\n")
		fmt.Fprintf(&sb, "  Baseline build:  %s", outcome.Target.ShortCommit())
		if outcome.Target.Version != "" {
			fmt.Fprintf(&sb, " (%s)", outcome.Target.Version)
		}
		sb.WriteString("\n")
		sb.WriteString(theme.hintStyle().Render("  No report produced for the baseline; the next new build will be reported.") + "\n")

	case pipeline.OutcomeSkipped:
		sb.WriteString(theme.infoStyle().Render("• Nothing to do") + "\n\n")
		fmt.Fprintf(&sb, "  Build %s is already processed.\n", outcome.Target.ShortCommit())
		sb.WriteString(theme.hintStyle().Render("  Use --force to reprocess it.") + "\n")

	case pipeline.OutcomeProcessed:
		sb.WriteString(theme.successStyle().Render("✓ Processed") + "\n\n")
		fmt.Fprintf(&sb, "  Range:    %s → %s\n", outcome.Range.From.ShortCommit(), outcome.Range.To.ShortCommit())
		fmt.Fprintf(&sb, "  Changes:  %d\n", len(outcome.Snapshot.Changes))
		if len(outcome.Snapshot.Skipped) > 0 {
			sb.WriteString(theme.warnStyle().Render(fmt.Sprintf("  Skipped commits: %d (report may be incomplete)", len(outcome.Snapshot.Skipped))) + "\n")
		}
		if outcome.Snapshot.Truncated {
			sb.WriteString(theme.warnStyle().Render("  Upstream truncated the commit range") + "\n")
		}
		if outcome.DocumentPath != "" {
			fmt.Fprintf(&sb, "  Document: %s\n", outcome.DocumentPath)
		}
		if outcome.ReleaseURL != "" {
			fmt.Fprintf(&sb, "  Release:  %s\n", outcome.ReleaseURL)
		}
	}

	if timings := renderTimings(snap); timings != "" {
		sb.WriteString("\n" + defaultTheme.hintStyle().Render(timings) + "\n")
	}

	return sb.String()
}

// renderTimings formats the per-operation API timings, skipping
// operations that never ran.
func renderTimings(snap metrics.Snapshot) string {
	type row struct {
		name string
		op   *metrics.OperationSnapshot
	}
	rows := []row{
		{"feed", snap.FeedList},
		{"compare", snap.Compare},
		{"pulls", snap.Pulls},
		{"llm", snap.LLMGenerate},
		{"release", snap.Release},
	}

	var parts []string
	for _, r := range rows {
		if r.op == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %dx %dms", r.name, r.op.Count, r.op.TotalTimeMs))
	}
	if len(parts) == 0 {
		return ""
	}
	return "timings: " + strings.Join(parts, ", ")
}
