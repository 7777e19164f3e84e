package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestSignalBusExactMatch(t *testing.T) {
	bus := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "ch:feed:status")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "ch:feed:status", []byte(`{"up":true}`)))
	assert.Equal(t, []byte(`{"up":true}`), recv(t, ch))
}

func TestSignalBusWildcard(t *testing.T) {
	bus := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "ch:book:*")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "ch:book:okx:BTC-USDT", []byte("a")))
	require.NoError(t, bus.Publish(ctx, "ch:feed:status", []byte("b")))
	require.NoError(t, bus.Publish(ctx, "ch:book:bybit:ETHUSDT", []byte("c")))

	assert.Equal(t, []byte("a"), recv(t, ch))
	assert.Equal(t, []byte("c"), recv(t, ch))
}

func TestSignalBusNoSubscribers(t *testing.T) {
	bus := NewSignalBus()
	assert.NoError(t, bus.Publish(context.Background(), "ch:book:okx:BTC-USDT", []byte("x")))
}

func TestSignalBusUnsubscribeOnCancel(t *testing.T) {
	bus := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, "ch:feed:status")
	require.NoError(t, err)

	cancel()

	// The channel closes once the cancellation is observed.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// Publishing after unsubscribe must not panic or block.
	assert.NoError(t, bus.Publish(context.Background(), "ch:feed:status", []byte("late")))
}

func TestSignalBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "ch:feed:status")
	require.NoError(t, err)

	// Overfill the buffer; the publisher must never block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 300; i++ {
			_ = bus.Publish(ctx, "ch:feed:status", []byte("m"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	// Buffered messages are still readable.
	assert.Equal(t, []byte("m"), recv(t, ch))
}

func TestPatternMatch(t *testing.T) {
	tests := []struct {
		pattern string
		channel string
		want    bool
	}{
		{"ch:feed:status", "ch:feed:status", true},
		{"ch:feed:status", "ch:feed:other", false},
		{"ch:book:*", "ch:book:okx:BTC-USDT", true},
		{"ch:book:*", "ch:feed:status", false},
		{"*", "anything", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, patternMatch(tt.pattern, tt.channel), "%s vs %s", tt.pattern, tt.channel)
	}
}
