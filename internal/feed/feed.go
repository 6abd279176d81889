// Package feed models the ordered list of known Insiders builds and the
// range-resolution rules that decide what a run processes and how the
// persisted pointer advances.
package feed

import (
	"fmt"
	"strings"
	"time"
)

// Marker identifies one known build: the commit it was cut from plus
// whatever display metadata the update service reported for it.
type Marker struct {
	Commit  string
	Version string
	Date    time.Time
}

// ShortCommit returns an abbreviated commit hash for display.
func (m Marker) ShortCommit() string {
	if len(m.Commit) > 10 {
		return m.Commit[:10]
	}
	return m.Commit
}

// Range is the span a run reports on: everything after From, up to and
// including To.
type Range struct {
	From Marker
	To   Marker
}

// Feed is the ordered list of known builds, newest first. The feed's own
// order is the only source of ordering truth; build dates may collide or
// be missing entirely.
type Feed struct {
	markers []Marker
	index   map[string]int
}

// New builds a Feed from markers already ordered newest first.
func New(markers []Marker) *Feed {
	index := make(map[string]int, len(markers))
	for i, m := range markers {
		if _, dup := index[m.Commit]; !dup {
			index[m.Commit] = i
		}
	}
	return &Feed{markers: markers, index: index}
}

// Len returns the number of known builds.
func (f *Feed) Len() int {
	return len(f.markers)
}

// Markers returns the builds newest first.
func (f *Feed) Markers() []Marker {
	return f.markers
}

// Head returns the newest known build.
func (f *Feed) Head() (Marker, bool) {
	if len(f.markers) == 0 {
		return Marker{}, false
	}
	return f.markers[0], true
}

// Position returns the index of a commit in the feed (0 = newest).
func (f *Feed) Position(commit string) (int, bool) {
	pos, ok := f.index[commit]
	return pos, ok
}

// Resolve turns a user-supplied ref into a known Marker. A ref that
// exactly matches a commit wins outright; otherwise it is treated as a
// prefix. Zero prefix matches fail with ErrUnknownBuild, more than one
// with ErrAmbiguousRef naming a bounded sample of the candidates.
// Resolution is pure: the same feed and ref always yield the same result.
func (f *Feed) Resolve(ref string) (Marker, error) {
	if pos, ok := f.index[ref]; ok {
		return f.markers[pos], nil
	}

	var matches []Marker
	for _, m := range f.markers {
		if strings.HasPrefix(m.Commit, ref) {
			matches = append(matches, m)
		}
	}

	switch len(matches) {
	case 0:
		return Marker{}, fmt.Errorf("%w: %q", ErrUnknownBuild, ref)
	case 1:
		return matches[0], nil
	default:
		sample := make([]string, 0, ambiguousSampleSize)
		for i, m := range matches {
			if i == ambiguousSampleSize {
				break
			}
			sample = append(sample, m.ShortCommit())
		}
		return Marker{}, fmt.Errorf("%w: %q matches %d builds (%s); use a longer prefix",
			ErrAmbiguousRef, ref, len(matches), strings.Join(sample, ", "))
	}
}

// ambiguousSampleSize bounds the candidate list quoted in ErrAmbiguousRef.
const ambiguousSampleSize = 5

// Predecessor returns the build directly before target in feed order,
// i.e. the next older entry. Fails with ErrNoPreviousBuild when target is
// the oldest known build.
func (f *Feed) Predecessor(target Marker) (Marker, error) {
	pos, ok := f.index[target.Commit]
	if !ok {
		return Marker{}, fmt.Errorf("%w: %q", ErrUnknownBuild, target.ShortCommit())
	}
	if pos == len(f.markers)-1 {
		return Marker{}, fmt.Errorf("%w: %s is the oldest known build", ErrNoPreviousBuild, target.ShortCommit())
	}
	return f.markers[pos+1], nil
}

// ComputeRange determines the span to report on for target. The previous
// boundary defaults to target's direct feed predecessor; previousOverride,
// when non-nil, replaces it. Callers handle the bootstrap case (no prior
// state) before calling this: a bootstrap computes no range at all.
func (f *Feed) ComputeRange(target Marker, previousOverride *Marker) (Range, error) {
	if previousOverride != nil {
		return Range{From: *previousOverride, To: target}, nil
	}
	prev, err := f.Predecessor(target)
	if err != nil {
		return Range{}, err
	}
	return Range{From: prev, To: target}, nil
}

// ShouldSkip is the sole idempotence guard: it reports whether the run can
// be skipped entirely because the persisted commit is already at or past
// the target in feed order. A forced run never skips, and a persisted
// commit that has fallen out of the feed window cannot be compared, so
// the run proceeds.
func (f *Feed) ShouldSkip(persistedCommit string, target Marker, force bool) bool {
	if force || persistedCommit == "" {
		return false
	}
	persistedPos, ok := f.index[persistedCommit]
	if !ok {
		return false
	}
	targetPos, ok := f.index[target.Commit]
	if !ok {
		return false
	}
	// Lower position = newer build.
	return persistedPos <= targetPos
}

// NextPersisted decides the commit to persist after a successful run. The
// pointer only ever moves toward newer builds: a forced reprocess of an
// older target leaves an already-newer pointer untouched.
func (f *Feed) NextPersisted(persistedCommit string, target Marker) Marker {
	if persistedCommit == "" {
		return target
	}
	persistedPos, okP := f.index[persistedCommit]
	targetPos, okT := f.index[target.Commit]
	if !okP || !okT {
		return target
	}
	if persistedPos <= targetPos {
		// Persisted is the same build or newer; keep it.
		return f.markers[persistedPos]
	}
	return target
}
