// Package site renders the static release-notes pages and their index.
package site

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DovieW/vscode-insiders-release-notes/internal/changes"
)

// Frontmatter is the YAML header of one rendered notes document. The
// index is rebuilt from these headers alone, so everything the index
// shows must live here.
type Frontmatter struct {
	Title     string    `yaml:"title"`
	Version   string    `yaml:"version,omitempty"`
	From      string    `yaml:"from"`
	To        string    `yaml:"to"`
	Date      time.Time `yaml:"date"`
	Changes   int       `yaml:"changes"`
	Skipped   int       `yaml:"skipped,omitempty"`
	Truncated bool      `yaml:"truncated,omitempty"`
}

// Renderer produces Markdown documents for processed ranges.
type Renderer struct {
	upstreamOwner string
	upstreamRepo  string
}

// NewRenderer creates a renderer linking changes back to owner/repo.
func NewRenderer(upstreamOwner, upstreamRepo string) *Renderer {
	return &Renderer{upstreamOwner: upstreamOwner, upstreamRepo: upstreamRepo}
}

// DocumentName returns the file name for a snapshot's document.
func DocumentName(snap *changes.Snapshot) string {
	to := snap.Range.To
	if to.Version != "" {
		return fmt.Sprintf("%s-%s.md", to.Version, to.ShortCommit())
	}
	return fmt.Sprintf("%s.md", to.ShortCommit())
}

// Title returns the human-readable document title for a snapshot.
func Title(snap *changes.Snapshot) string {
	to := snap.Range.To
	if to.Version != "" {
		return fmt.Sprintf("Insiders %s (%s)", to.Version, to.ShortCommit())
	}
	return fmt.Sprintf("Insiders build %s", to.ShortCommit())
}

// Render produces the full Markdown document for one processed range:
// YAML frontmatter, the LLM narrative, and the verbatim change list.
func (r *Renderer) Render(snap *changes.Snapshot, narrative string, generatedAt time.Time) ([]byte, error) {
	fm := Frontmatter{
		Title:     Title(snap),
		Version:   snap.Range.To.Version,
		From:      snap.Range.From.Commit,
		To:        snap.Range.To.Commit,
		Date:      generatedAt.UTC(),
		Changes:   len(snap.Changes),
		Skipped:   len(snap.Skipped),
		Truncated: snap.Truncated,
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(header)
	sb.WriteString("---\n\n")

	fmt.Fprintf(&sb, "# %s\n\n", fm.Title)
	fmt.Fprintf(&sb, "Changes from `%s` to `%s`.\n\n", snap.Range.From.ShortCommit(), snap.Range.To.ShortCommit())

	if snap.Truncated {
		fmt.Fprintf(&sb, "> Note: the commit range was truncated upstream (%d commits total); this report may be incomplete.\n\n", snap.TotalCommits)
	}

	sb.WriteString(strings.TrimSpace(narrative))
	sb.WriteString("\n\n## Merged pull requests\n\n")

	for _, ch := range snap.Changes {
		fmt.Fprintf(&sb, "- [#%d](https://github.com/%s/%s/pull/%d) %s (@%s)\n",
			ch.Number, r.upstreamOwner, r.upstreamRepo, ch.Number, ch.Title, ch.Author)
	}

	if len(snap.Skipped) > 0 {
		sb.WriteString("\n## Skipped commits\n\n")
		sb.WriteString("Lookups for these commits failed; their changes may be missing above.\n\n")
		for _, sk := range snap.Skipped {
			fmt.Fprintf(&sb, "- `%s`\n", sk.SHA)
		}
	}

	return []byte(sb.String()), nil
}
