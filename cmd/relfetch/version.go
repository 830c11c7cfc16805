package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the relfetch version",
		Args:  cobra.NoArgs,
		// Printing the version must work with a broken config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "relfetch %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
		},
	}
}
