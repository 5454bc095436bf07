package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/presentation/tui"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of canopy",
		Run: func(cmd *cobra.Command, args []string) {
			if banner, _ := cmd.Flags().GetBool("banner"); banner {
				tui.PrintBanner(cmd.OutOrStdout(), canopy.Version)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "canopy version %s\n", strings.TrimSpace(canopy.Version))
		},
	}
	cmd.Flags().Bool("banner", false, "Print the banner")
	return cmd
}
