package http

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samirrijal/cafelog/internal/core/domain"
	"github.com/samirrijal/cafelog/internal/core/ports"
)

// FogHub tracks live fog sessions and redraws them when the visited set
// changes.
//
// With an upstream publisher, events go to the broker and come back through
// HandleCafeEvent, so every API instance refreshes its own sessions. Without
// one the hub delivers locally.
type FogHub struct {
	upstream ports.EventPublisher

	mu       sync.Mutex
	nextID   int
	sessions map[int]func()
}

// NewFogHub creates a hub. upstream may be nil.
func NewFogHub(upstream ports.EventPublisher) *FogHub {
	return &FogHub{upstream: upstream, sessions: make(map[int]func())}
}

// Register adds a session's refresh callback and returns its removal func.
func (h *FogHub) Register(refresh func()) (unregister func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.sessions[id] = refresh
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.sessions, id)
			h.mu.Unlock()
		})
	}
}

// Sessions returns the number of registered sessions.
func (h *FogHub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// PublishCafeEvent implements ports.EventPublisher.
func (h *FogHub) PublishCafeEvent(ctx context.Context, event *domain.CafeEvent) error {
	if h.upstream != nil {
		return h.upstream.PublishCafeEvent(ctx, event)
	}
	return h.HandleCafeEvent(ctx, event)
}

// HandleCafeEvent refreshes every session. It matches the
// ports.EventSubscriber handler signature.
func (h *FogHub) HandleCafeEvent(_ context.Context, event *domain.CafeEvent) error {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.sessions))
	for _, fn := range h.sessions {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	if len(fns) > 0 {
		slog.Debug("fog: refreshing sessions", "event", event.Type, "cafe_id", event.CafeID, "sessions", len(fns))
	}
	for _, fn := range fns {
		fn()
	}
	return nil
}
