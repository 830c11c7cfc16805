// Package progress renders download progress events for a terminal.
package progress

import (
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/release"
)

const mib = 1 << 20

// Console returns a progress sink that rewrites a single status line on w
// and ends it with a newline on the final event. Colors are used only when
// w is a terminal.
func Console(w io.Writer) release.ProgressFunc {
	r := lipgloss.NewRenderer(w)
	sourceStyle := r.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	doneStyle := r.NewStyle().Foreground(lipgloss.Color("42"))
	rateStyle := r.NewStyle().Foreground(lipgloss.Color("245"))

	var mu sync.Mutex
	return func(e release.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()

		line := fmt.Sprintf("downloading %s... %s of %s %s",
			sourceStyle.Render(displayName(e.Source)),
			formatMiB(e.BytesTransferred),
			formatTotal(e.TotalBytes),
			rateStyle.Render(fmt.Sprintf("(%.2f MiB/s)", e.ThroughputMiBps)))

		if e.Final {
			_, _ = fmt.Fprintf(w, "\r\033[K%s %s\n", line, doneStyle.Render("done"))
			return
		}
		_, _ = fmt.Fprintf(w, "\r\033[K%s", line)
	}
}

// Line formats an event without styling or cursor control.
func Line(e release.ProgressEvent) string {
	return fmt.Sprintf("downloading %s... %s of %s (%.2f MiB/s)",
		displayName(e.Source), formatMiB(e.BytesTransferred), formatTotal(e.TotalBytes), e.ThroughputMiBps)
}

func formatMiB(n int64) string {
	return fmt.Sprintf("%.2f MiB", float64(n)/mib)
}

// formatTotal renders an unknown (zero) total as "?".
func formatTotal(n int64) string {
	if n <= 0 {
		return "? MiB"
	}
	return formatMiB(n)
}

// displayName shortens a download URL to its file name.
func displayName(source string) string {
	if base := path.Base(source); base != "." && base != "/" {
		return base
	}
	return source
}
