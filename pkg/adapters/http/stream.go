package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/freelingo/internal/logging"
	"github.com/aretw0/freelingo/pkg/domain"
)

// streamBuffer is the per-subscriber backlog before messages are dropped.
const streamBuffer = 32

// StreamMessage is one server-sent event.
type StreamMessage struct {
	Kind string
	Data string
}

// StreamManager fans run events out to the SSE subscribers of each user.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan StreamMessage]struct{} // UserID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan StreamMessage]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a channel for the user's events. The returned func
// unregisters and closes it.
func (sm *StreamManager) Subscribe(userID string) (<-chan StreamMessage, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan StreamMessage, streamBuffer)
	if _, ok := sm.subscribers[userID]; !ok {
		sm.subscribers[userID] = make(map[chan StreamMessage]struct{})
	}
	sm.subscribers[userID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[userID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, userID)
			}
		}
	}
}

// Subscribers returns the number of open subscriptions for a user.
func (sm *StreamManager) Subscribers(userID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[userID])
}

// Broadcast sends a message to every subscriber of the user.
// Slow subscribers lose the message instead of blocking the run.
func (sm *StreamManager) Broadcast(userID string, msg StreamMessage) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[userID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "user_id", userID, "kind", msg.Kind)
		}
	}
}

// Hooks publishes stage results, routing decisions and run completion
// as "stage", "route" and "run" events.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageLeave: func(_ context.Context, ev *domain.StageEvent) {
			sm.publish(ev.UserID, "stage", ev)
		},
		OnRoute: func(_ context.Context, ev *domain.RouteEvent) {
			sm.publish(ev.UserID, "route", ev)
		},
		OnRunComplete: func(_ context.Context, ev *domain.RunEvent) {
			sm.publish(ev.UserID, "run", ev)
		},
	}
}

func (sm *StreamManager) publish(userID, kind string, payload any) {
	if sm.Subscribers(userID) == 0 {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		sm.logger.Error("SSE: event encode failed", "kind", kind, "err", err)
		return
	}
	sm.Broadcast(userID, StreamMessage{Kind: kind, Data: string(data)})
}
