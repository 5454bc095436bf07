package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/domain"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "canopy:transitions"

// ErrNoClient is returned when the publisher was built without a client.
var ErrNoClient = errors.New("redis client is nil")

// Publisher broadcasts completed transitions on a Redis pub/sub channel so a
// remote inspector can follow a live machine. It carries events only: nothing
// is stored and nothing is read back into the machine.
type Publisher struct {
	client  *backend.Client
	channel string
	machine string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithChannel overrides DefaultChannel.
func WithChannel(channel string) Option {
	return func(p *Publisher) {
		if channel != "" {
			p.channel = channel
		}
	}
}

// WithMachineName stamps published events with the machine name.
func WithMachineName(name string) Option {
	return func(p *Publisher) {
		p.machine = name
	}
}

// WithPublishTimeout bounds each publish issued by the listener (default 2s).
func WithPublishTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger for publish failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher creates a publisher over an existing client.
func NewPublisher(client *backend.Client, opts ...Option) *Publisher {
	p := &Publisher{
		client:  client,
		channel: DefaultChannel,
		timeout: 2 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Channel returns the pub/sub channel name.
func (p *Publisher) Channel() string {
	return p.channel
}

// Publish sends one event.
func (p *Publisher) Publish(ctx context.Context, event domain.TransitionEvent) error {
	if p.client == nil {
		return ErrNoClient
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transition event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish transition event: %w", err)
	}
	return nil
}

// Listener returns a transition listener that publishes every transition.
// Publishing is synchronous and bounded by the publish timeout; failures are logged.
func (p *Publisher) Listener() domain.Listener {
	return func(from, to string) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.Publish(ctx, domain.NewTransitionEvent(p.machine, from, to)); err != nil {
			p.logger.Error("publish transition", "from", from, "to", to, "error", err)
		}
	}
}

// Watch subscribes to the channel and streams decoded events until ctx is done.
// Malformed payloads are logged and skipped.
func (p *Publisher) Watch(ctx context.Context) (<-chan domain.TransitionEvent, error) {
	if p.client == nil {
		return nil, ErrNoClient
	}

	sub := p.client.Subscribe(ctx, p.channel)
	// Wait for the subscription to be confirmed so no event is missed after return.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", p.channel, err)
	}

	out := make(chan domain.TransitionEvent)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event domain.TransitionEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					p.logger.Warn("skipping malformed transition event", "error", err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
