package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/qdash/pkg/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the qdash version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "qdash %s\n", version.Version)
		},
	}
}
