// Package memory provides in-process fallbacks for the cache interfaces, used
// when Redis is disabled. State lives only as long as the process.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/alanyoungcy/bookscope/internal/domain"
)

// SignalBus is an in-process domain.SignalBus. Semantics mirror the Redis
// implementation: fire-and-forget delivery, wildcard pattern subscriptions,
// slow subscribers lose messages instead of blocking the publisher.
type SignalBus struct {
	mu   sync.RWMutex
	subs map[*subscriber]bool
}

type subscriber struct {
	pattern string
	out     chan []byte
}

// NewSignalBus creates an empty in-memory bus.
func NewSignalBus() *SignalBus {
	return &SignalBus{subs: make(map[*subscriber]bool)}
}

// Publish delivers payload to every subscriber whose pattern matches channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	for sub := range sb.subs {
		if !patternMatch(sub.pattern, channel) {
			continue
		}
		select {
		case sub.out <- payload:
		default:
			// Subscriber is not keeping up; drop.
		}
	}
	return nil
}

// Subscribe returns a channel of payloads for the given channel name or
// trailing-wildcard pattern. The channel is closed when ctx is cancelled.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := &subscriber{pattern: channel, out: make(chan []byte, 128)}

	sb.mu.Lock()
	sb.subs[sub] = true
	sb.mu.Unlock()

	go func() {
		<-ctx.Done()
		sb.mu.Lock()
		delete(sb.subs, sub)
		sb.mu.Unlock()
		close(sub.out)
	}()

	return sub.out, nil
}

// patternMatch supports the same trailing-* globs the hub subscribes with.
func patternMatch(pattern, channel string) bool {
	if pattern == channel {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(channel, pattern[:len(pattern)-1])
	}
	return false
}

// Compile-time interface check.
var _ domain.SignalBus = (*SignalBus)(nil)
