package release

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Direction classifies the move from one installed tag to another.
type Direction string

const (
	DirectionNone      Direction = ""
	DirectionUpgrade   Direction = "upgrade"
	DirectionDowngrade Direction = "downgrade"
	// DirectionChanged is used when either tag is not semver (e.g. "b7869").
	DirectionChanged Direction = "changed"
)

// CompareTags classifies the change from previous to next using semantic
// versioning when both tags parse, and falls back to DirectionChanged.
func CompareTags(previous, next string) Direction {
	if previous == next {
		return DirectionNone
	}

	p, n := canonicalTag(previous), canonicalTag(next)
	if !semver.IsValid(p) || !semver.IsValid(n) {
		return DirectionChanged
	}

	switch semver.Compare(p, n) {
	case -1:
		return DirectionUpgrade
	case 1:
		return DirectionDowngrade
	default:
		// Same precedence, different spelling (e.g. "1.2.0" vs "v1.2.0").
		return DirectionChanged
	}
}

func canonicalTag(tag string) string {
	if !strings.HasPrefix(tag, "v") {
		return "v" + tag
	}
	return tag
}
