package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/internal/config"
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "canopy",
		Short: "Canopy assembles and drives hierarchical state machines",
		Long: `Canopy builds a state tree from independent contributions (tree files),
freezes it and lets you inspect and drive transitions from the terminal,
over HTTP or through the Model Context Protocol.`,
		SilenceUsage: true,
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringSliceP("file", "f", nil, "Tree file (YAML or JSON); repeatable. Defaults to CANOPY_TREE_FILES")
	rootCmd.PersistentFlags().Bool("verify", false, "Verification mode: drop contributions marked skip_in_verification")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging of every enter and exit")
	rootCmd.PersistentFlags().String("initial", "", "State entered after assembly (default: root)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file to load before reading CANOPY_* variables")

	rootCmd.AddCommand(
		newTreeCmd(),
		newStatesCmd(),
		newGraphCmd(),
		newValidateCmd(),
		newShellCmd(),
		newServeCmd(),
		newMCPCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// loadSettings merges the environment configuration with the command-line flags.
func loadSettings(cmd *cobra.Command) (config.Config, cli.Options, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return cfg, cli.Options{}, err
	}

	opts := cli.OptionsFromConfig(cfg)
	if cmd.Flags().Changed("file") {
		opts.Files, _ = cmd.Flags().GetStringSlice("file")
	}
	if cmd.Flags().Changed("verify") {
		opts.Verify, _ = cmd.Flags().GetBool("verify")
	}
	if cmd.Flags().Changed("initial") {
		opts.InitialState, _ = cmd.Flags().GetString("initial")
	}
	opts.Debug, _ = cmd.Flags().GetBool("debug")
	return cfg, opts, nil
}

// buildMachine loads settings and assembles a machine for one command.
func buildMachine(cmd *cobra.Command, extra ...cli.MachineOption) (*cli.Build, config.Config, *slog.Logger, error) {
	cfg, opts, err := loadSettings(cmd)
	if err != nil {
		return nil, cfg, nil, err
	}
	logger := cli.CreateLogger(opts)
	build, err := cli.CreateMachine(opts, logger, extra...)
	if err != nil {
		return nil, cfg, logger, err
	}
	return build, cfg, logger, nil
}
