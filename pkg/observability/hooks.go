package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/canopy/pkg/domain"
)

// LoggingHooks returns hooks that log every enter and exit step at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	log := func(ctx context.Context, msg string, e *domain.StateEvent) {
		attrs := []any{
			"state", e.StateID,
			"from", e.From,
			"to", e.To,
			"async", e.Async,
			"duration", e.Duration,
		}
		if e.Err != nil {
			attrs = append(attrs, "error", e.Err)
		}
		logger.DebugContext(ctx, msg, attrs...)
	}

	return domain.LifecycleHooks{
		OnStateEnter: func(ctx context.Context, e *domain.StateEvent) { log(ctx, "state_enter", e) },
		OnStateExit:  func(ctx context.Context, e *domain.StateEvent) { log(ctx, "state_exit", e) },
	}
}

// Combine returns hooks that call every non-nil hook of each set, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var enters, exits []func(context.Context, *domain.StateEvent)
	for _, s := range sets {
		if s.OnStateEnter != nil {
			enters = append(enters, s.OnStateEnter)
		}
		if s.OnStateExit != nil {
			exits = append(exits, s.OnStateExit)
		}
	}

	var out domain.LifecycleHooks
	if len(enters) > 0 {
		out.OnStateEnter = func(ctx context.Context, e *domain.StateEvent) {
			for _, fn := range enters {
				fn(ctx, e)
			}
		}
	}
	if len(exits) > 0 {
		out.OnStateExit = func(ctx context.Context, e *domain.StateEvent) {
			for _, fn := range exits {
				fn(ctx, e)
			}
		}
	}
	return out
}
