package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/canopy/pkg/adapters/redis"
)

// Watch prints every transition published on channel until ctx is cancelled.
// An empty machine filter prints events from every machine.
func Watch(ctx context.Context, client *backend.Client, channel, machine string, out io.Writer, logger *slog.Logger) error {
	pub := redis.NewPublisher(client, redis.WithChannel(channel), redis.WithLogger(logger))
	events, err := pub.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", pub.Channel(), err)
	}

	logger.Info("Watching transitions", "channel", pub.Channel())
	printSystemMessage(out, "Watching '%s'. Press Ctrl+C to stop.", pub.Channel())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if machine != "" && evt.Machine != machine {
				continue
			}
			fmt.Fprintf(out, "%s [%s] %s -> %s\n",
				evt.Timestamp.Format("15:04:05.000"), evt.Machine, displayState(evt.From), evt.To)
		}
	}
}
