package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/release"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status [dir...]",
		Short: "Show the installed release of install directories",
		Long: `Show the repository and tag recorded in each install directory.
Without arguments the install_dir setting is inspected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{a.installDir("")}
			}
			return runStatus(cmd, args)
		},
	}
}

func runStatus(cmd *cobra.Command, dirs []string) error {
	out := cmd.OutOrStdout()
	s := newStyles(out)

	var errs []error
	for _, dir := range dirs {
		st, err := release.ReadState(dir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			_, _ = fmt.Fprintf(out, "%s %s\n", s.label.Render(dir), s.muted.Render("not installed"))
		case err != nil:
			_, _ = fmt.Fprintf(out, "%s %s\n", s.label.Render(dir), s.warning.Render("unreadable"))
			errs = append(errs, err)
		default:
			_, _ = fmt.Fprintf(out, "%s %s %s\n", s.label.Render(dir), st.Repo, s.value.Render(st.Tag))
		}
	}

	return errors.Join(errs...)
}
