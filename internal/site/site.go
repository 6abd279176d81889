package site

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DovieW/vscode-insiders-release-notes/internal/changes"
)

// notesSubdir is where per-build documents live inside the site dir.
const notesSubdir = "notes"

// Builder writes documents, the index, and static assets into the site
// directory.
type Builder struct {
	dir      string
	renderer *Renderer
	logger   *slog.Logger
}

// NewBuilder creates a site builder rooted at dir.
func NewBuilder(dir string, renderer *Renderer, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{dir: dir, renderer: renderer, logger: logger}
}

// Dir returns the site root directory.
func (b *Builder) Dir() string {
	return b.dir
}

// WriteDocument renders and writes one notes document, returning its path.
func (b *Builder) WriteDocument(snap *changes.Snapshot, narrative string, generatedAt time.Time) (string, error) {
	doc, err := b.renderer.Render(snap, narrative, generatedAt)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(b.dir, notesSubdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create notes dir: %w", err)
	}

	path := filepath.Join(dir, DocumentName(snap))
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	b.logger.Info("wrote notes document", "path", path, "changes", len(snap.Changes))
	return path, nil
}

// indexEntry pairs a document file with its parsed frontmatter.
type indexEntry struct {
	File string
	Meta Frontmatter
}

// RebuildIndex scans every notes document, parses its frontmatter, and
// regenerates index.md newest first. Returns the index path.
func (b *Builder) RebuildIndex() (string, error) {
	entries, err := b.scanDocuments()
	if err != nil {
		return "", err
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Meta.Date.Equal(entries[j].Meta.Date) {
			return entries[i].Meta.Date.After(entries[j].Meta.Date)
		}
		return entries[i].File > entries[j].File
	})

	var sb strings.Builder
	sb.WriteString("# VS Code Insiders Release Notes\n\n")
	if len(entries) == 0 {
		sb.WriteString("No builds processed yet.\n")
	}
	for _, e := range entries {
		fmt.Fprintf(&sb, "- [%s](%s/%s) - %d changes, %s\n",
			e.Meta.Title, notesSubdir, e.File, e.Meta.Changes, e.Meta.Date.Format("2006-01-02"))
	}

	path := filepath.Join(b.dir, "index.md")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return "", fmt.Errorf("write index: %w", err)
	}
	b.logger.Info("rebuilt index", "documents", len(entries))
	return path, nil
}

// scanDocuments reads the frontmatter of every document in the notes dir.
// Documents with unreadable frontmatter are skipped with a warning so one
// bad file cannot break the whole index.
func (b *Builder) scanDocuments() ([]indexEntry, error) {
	dir := filepath.Join(b.dir, notesSubdir)
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan notes dir: %w", err)
	}

	var entries []indexEntry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".md") {
			continue
		}
		meta, err := readFrontmatter(filepath.Join(dir, f.Name()))
		if err != nil {
			b.logger.Warn("skipping document with bad frontmatter", "file", f.Name(), "error", err)
			continue
		}
		entries = append(entries, indexEntry{File: f.Name(), Meta: *meta})
	}
	return entries, nil
}

// readFrontmatter parses the YAML header between the leading "---" markers.
func readFrontmatter(path string) (*Frontmatter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	content := string(data)
	if !strings.HasPrefix(content, "---\n") {
		return nil, fmt.Errorf("no frontmatter in %s", path)
	}
	end := strings.Index(content[4:], "\n---")
	if end < 0 {
		return nil, fmt.Errorf("unterminated frontmatter in %s", path)
	}

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(content[4:4+end]), &fm); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return &fm, nil
}

// CopyAssets copies the static template tree (styles, favicon, anything
// non-generated) into the site root. A missing template dir is fine.
func (b *Builder) CopyAssets(templateDir string) error {
	info, err := os.Stat(templateDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat template dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("template path is not a directory: %s", templateDir)
	}

	return filepath.WalkDir(templateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(templateDir, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(b.dir, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0755)
		}
		return copyFile(path, dst)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
