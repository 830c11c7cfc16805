package release

import "testing"

func TestCompareTags(t *testing.T) {
	tests := []struct {
		previous, next string
		want           Direction
	}{
		{"v1.0.0", "v1.0.0", DirectionNone},
		{"v1.0.0", "v1.1.0", DirectionUpgrade},
		{"v2.0.0", "v1.9.9", DirectionDowngrade},
		{"1.0.0", "v1.2.0", DirectionUpgrade},
		{"v1.2.0-rc.1", "v1.2.0", DirectionUpgrade},
		{"1.2.0", "v1.2.0", DirectionChanged},
		{"b7869", "b7870", DirectionChanged},
		{"nightly", "v1.0.0", DirectionChanged},
	}

	for _, tt := range tests {
		t.Run(tt.previous+"->"+tt.next, func(t *testing.T) {
			if got := CompareTags(tt.previous, tt.next); got != tt.want {
				t.Errorf("CompareTags(%q, %q) = %q, want %q", tt.previous, tt.next, got, tt.want)
			}
		})
	}
}
