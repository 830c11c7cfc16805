package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/release"
)

func TestLine(t *testing.T) {
	tests := []struct {
		name  string
		event release.ProgressEvent
		want  string
	}{
		{
			name: "known_total",
			event: release.ProgressEvent{
				Source:           "https://github.com/o/n/releases/download/v1/tool.tar.gz",
				BytesTransferred: 5 << 20,
				TotalBytes:       10 << 20,
				ThroughputMiBps:  2.5,
			},
			want: "downloading tool.tar.gz... 5.00 MiB of 10.00 MiB (2.50 MiB/s)",
		},
		{
			name: "unknown_total",
			event: release.ProgressEvent{
				Source:           "https://example.com/tool",
				BytesTransferred: 1 << 19,
			},
			want: "downloading tool... 0.50 MiB of ? MiB (0.00 MiB/s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Line(tt.event); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	sink := Console(&buf)

	sink(release.ProgressEvent{Source: "https://h/a/tool", BytesTransferred: 1 << 20, TotalBytes: 2 << 20})
	sink(release.ProgressEvent{Source: "https://h/a/tool", BytesTransferred: 2 << 20, TotalBytes: 2 << 20, Final: true})

	out := buf.String()
	if strings.Count(out, "\n") != 1 || !strings.HasSuffix(out, "\n") {
		t.Errorf("only the final event should end the line, got %q", out)
	}
	if strings.Count(out, "\r") != 2 {
		t.Errorf("each event should rewrite the line, got %q", out)
	}
	if !strings.Contains(out, "2.00 MiB of 2.00 MiB") || !strings.Contains(out, "done") {
		t.Errorf("final line missing totals, got %q", out)
	}
	// A buffer is not a terminal, so no color codes beyond line control.
	if strings.Contains(out, "\033[1m") || strings.Contains(out, "38;5;") {
		t.Errorf("unexpected styling for non-terminal writer: %q", out)
	}
}
