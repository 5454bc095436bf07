package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/internal/presentation/tui"
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Drive the machine interactively",
		Long:  `Assembles the tree files and opens a prompt to change state and inspect the tree. Type 'help' for commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			build, _, _, err := buildMachine(cmd)
			if err != nil {
				return err
			}
			m := build.Machine

			sigCtx := cli.NewSignalContext(context.Background())
			defer sigCtx.Cancel()

			sh := cli.NewShell(m)
			sh.Out = cmd.OutOrStdout()
			if sh.Interactive {
				tui.PrintBanner(sh.Out, canopy.Version)
			}

			err = sh.Run(sigCtx)
			// Unwind the current branch so exit hooks run.
			_ = m.Shutdown()
			return cli.HandleExecutionError(err)
		},
	}
}
