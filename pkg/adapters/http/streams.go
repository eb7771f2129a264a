package http

import (
	"log/slog"
	"sync"
)

// StreamManager fans layout diffs out to the SSE subscribers of each layout.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // LayoutID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for layoutID. The returned function
// unregisters and closes it.
func (sm *StreamManager) Subscribe(layoutID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[layoutID]; !ok {
		sm.subscribers[layoutID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[layoutID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[layoutID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, layoutID)
			}
		}
	}
}

// Subscribers returns the number of open streams on layoutID.
func (sm *StreamManager) Subscribers(layoutID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[layoutID])
}

// Broadcast sends msg to every subscriber of layoutID without blocking.
func (sm *StreamManager) Broadcast(layoutID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sm.logger.Debug("StreamManager: Broadcasting", "layout", layoutID, "payload_size", len(msg))

	for ch := range sm.subscribers[layoutID] {
		select {
		case ch <- msg:
		default:
			// Slow client.
			sm.logger.Warn("SSE: Client buffer full, dropping message", "layout", layoutID)
		}
	}
}
