package treediff

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dgallion1/docdiff/internal/attrdiff"
	"github.com/dgallion1/docdiff/internal/match"
)

// DefaultMaxDepth bounds recursion into nested elements.
const DefaultMaxDepth = 512

// Options configures a diff.
type Options struct {
	// IgnoredAttributes are never reported. Nil means attrdiff.DefaultIgnored.
	IgnoredAttributes mapset.Set[string]
	// Thresholds tunes the node matcher.
	Thresholds match.Thresholds
	// MaxDepth caps nesting depth; deeper subtrees are left undiffed.
	MaxDepth int
	// InPlace diffs the caller's trees directly instead of private copies. The trees
	// are then preprocessed and may have text nodes wrapped.
	InPlace bool
}

// DefaultOptions returns the standard configuration.
func DefaultOptions() Options {
	return Options{
		IgnoredAttributes: attrdiff.DefaultIgnoredSet(),
		Thresholds:        match.DefaultThresholds(),
		MaxDepth:          DefaultMaxDepth,
	}
}

// Merge returns a copy of o whose ignore-list also holds extra.
func (o Options) Merge(extra ...string) Options {
	ignored := mapset.NewThreadUnsafeSet[string]()
	if o.IgnoredAttributes != nil {
		ignored = o.IgnoredAttributes.Clone()
	} else {
		ignored.Append(attrdiff.DefaultIgnored...)
	}
	ignored.Append(extra...)
	o.IgnoredAttributes = ignored
	return o
}

func (o Options) withDefaults() Options {
	if o.IgnoredAttributes == nil {
		o.IgnoredAttributes = attrdiff.DefaultIgnoredSet()
	}
	if o.Thresholds == (match.Thresholds{}) {
		o.Thresholds = match.DefaultThresholds()
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}
