package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DovieW/vscode-insiders-release-notes/internal/changes"
	"github.com/DovieW/vscode-insiders-release-notes/internal/feed"
)

// ErrNoChanges indicates the generator was asked to narrate an empty
// change set. Callers must not invoke the LLM in that case.
var ErrNoChanges = errors.New("no changes to summarize")

// TextGenerator produces text from a system and user prompt.
type TextGenerator interface {
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Generator turns a change set into narrative release notes.
type Generator struct {
	model TextGenerator
}

// NewGenerator creates a generator over the given model.
func NewGenerator(model TextGenerator) *Generator {
	return &Generator{model: model}
}

const summarizeSystemPrompt = `You are a release notes writer for the VS Code Insiders builds.
Write concise, user-facing release notes from the merged pull requests provided.

Guidelines:
- Group related changes under short thematic headings (e.g. "Editor", "Terminal", "Extensions")
- Lead each item with what changed for the user, not how it was implemented
- Reference pull requests as #<number>
- Credit authors as @<login> where the change is community-contributed
- Skip pure chore/CI changes unless nothing else is present
- Output Markdown only, no preamble and no closing remarks`

// Summarize asks the LLM to narrate the change set for a range. It
// refuses to run with zero changes.
func (g *Generator) Summarize(ctx context.Context, rng feed.Range, changeSet []changes.Change) (string, error) {
	if len(changeSet) == 0 {
		return "", ErrNoChanges
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Insiders build range: %s -> %s", rng.From.ShortCommit(), rng.To.ShortCommit())
	if rng.To.Version != "" {
		fmt.Fprintf(&sb, " (%s)", rng.To.Version)
	}
	sb.WriteString("\n\nMerged pull requests:\n")

	for _, ch := range changeSet {
		fmt.Fprintf(&sb, "\n#%d %q by @%s", ch.Number, ch.Title, ch.Author)
		if len(ch.Labels) > 0 {
			fmt.Fprintf(&sb, " [%s]", strings.Join(ch.Labels, ", "))
		}
		if body := strings.TrimSpace(ch.Body); body != "" {
			fmt.Fprintf(&sb, "\n%s\n", truncate(body, 1500))
		} else {
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nRelease notes:")

	text, err := g.model.GenerateWithSystem(ctx, summarizeSystemPrompt, sb.String())
	if err != nil {
		return "", fmt.Errorf("summarize range: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// truncate bounds a PR body so one essay of a description cannot crowd
// everything else out of the prompt.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[truncated]"
}
