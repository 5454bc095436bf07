package main

import (
	"fmt"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aretw0/canopy/internal/cli"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print transitions published to Redis by running machines",
		Long:  `Subscribes to the transition channel that 'canopy serve --redis-addr' publishes to and prints every transition.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, opts, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("redis-addr") {
				cfg.RedisAddr, _ = cmd.Flags().GetString("redis-addr")
			}
			if cmd.Flags().Changed("channel") {
				cfg.RedisChannel, _ = cmd.Flags().GetString("channel")
			}
			machine, _ := cmd.Flags().GetString("machine")
			if cfg.RedisAddr == "" {
				return fmt.Errorf("no redis address: pass --redis-addr or set CANOPY_REDIS_ADDR")
			}

			logger := cli.CreateLogger(opts)
			client := backend.NewClient(&backend.Options{Addr: cfg.RedisAddr})
			defer client.Close()

			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			return cli.HandleExecutionError(cli.Watch(sigCtx, client, cfg.RedisChannel, machine, cmd.OutOrStdout(), logger))
		},
	}
	cmd.Flags().String("redis-addr", "", "Redis address (default: CANOPY_REDIS_ADDR)")
	cmd.Flags().String("channel", "", "Channel to subscribe to (default: CANOPY_REDIS_CHANNEL)")
	cmd.Flags().String("machine", "", "Only print transitions of this machine")
	return cmd
}
