package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/release"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// styles are bound to the writer they render for, so output that is not a
// terminal stays plain.
type styles struct {
	label   lipgloss.Style
	value   lipgloss.Style
	success lipgloss.Style
	muted   lipgloss.Style
	warning lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		label:   r.NewStyle().Bold(true),
		value:   r.NewStyle().Foreground(lipgloss.Color("39")),
		success: r.NewStyle().Foreground(lipgloss.Color("42")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("245")),
		warning: r.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// printResult writes one line per install call, e.g.
//
//	owner/tool v1.2.0 upgraded from v1.1.0 (upgrade) in ./vendor/tool
func printResult(w io.Writer, res *release.Result) {
	s := newStyles(w)

	action := s.success.Render(string(res.Action))
	if res.Action == release.ActionSkipped || res.Action == release.ActionUpToDate {
		action = s.muted.Render(string(res.Action))
	}

	line := fmt.Sprintf("%s %s %s", s.label.Render(res.Repo), s.value.Render(res.Tag), action)
	if res.Action == release.ActionUpgraded {
		line += fmt.Sprintf(" from %s (%s)", res.PreviousTag, res.Direction)
	}
	line += " in " + res.Dir
	if res.Asset != "" {
		line += s.muted.Render(" [" + res.Asset + "]")
	}

	_, _ = fmt.Fprintln(w, line)
}
