package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/adapters/redis"
	"github.com/aretw0/canopy/pkg/domain"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, client, "test:watch", "game", out, logging.NewNop())
	}()

	pub := redis.NewPublisher(client, redis.WithChannel("test:watch"))
	require.Eventually(t, func() bool {
		_ = pub.Publish(ctx, domain.NewTransitionEvent("other", "root", "hidden"))
		_ = pub.Publish(ctx, domain.NewTransitionEvent("game", "root", "menu"))
		return strings.Contains(out.String(), "[game] root -> menu")
	}, 2*time.Second, 20*time.Millisecond)
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), ">>> Watching 'test:watch'")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.NoError(t, HandleExecutionError(err))
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, Watch(ctx, client, "test:watch", "", &bytes.Buffer{}, logging.NewNop()))
}
