package feed

import "errors"

// Sentinel errors for build resolution.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownBuild indicates the supplied ref matched no known build.
	ErrUnknownBuild = errors.New("unknown build")

	// ErrAmbiguousRef indicates a prefix matched more than one build.
	// The wrapped message names the match count and a bounded sample of
	// candidates so the caller can supply a longer prefix.
	ErrAmbiguousRef = errors.New("ambiguous build ref")

	// ErrNoPreviousBuild indicates the target is the oldest entry in the
	// feed and no explicit previous boundary was given.
	ErrNoPreviousBuild = errors.New("no previous build")
)
