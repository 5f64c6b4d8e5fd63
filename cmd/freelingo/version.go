package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/freelingo"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of freelingo",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "freelingo version %s\n", strings.TrimSpace(freelingo.Version))
		},
	}
}
