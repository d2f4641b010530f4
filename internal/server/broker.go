package server

import (
	"encoding/json"
	"sync"

	"github.com/campday/cornerquest/internal/tracker"
)

// Broker is an in-process pub/sub for progress events, keyed by group ID.
// It feeds both the SSE stream and the WebSocket feed.
type Broker struct {
	mu   sync.RWMutex
	subs map[int]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[int]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the given group.
func (b *Broker) Subscribe(groupID int) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[groupID] == nil {
		b.subs[groupID] = make(map[chan []byte]struct{})
	}
	b.subs[groupID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the group's subscribers.
func (b *Broker) Unsubscribe(groupID int, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[groupID], ch)
	if len(b.subs[groupID]) == 0 {
		delete(b.subs, groupID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given group.
func (b *Broker) Publish(groupID int, event tracker.Event) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[groupID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
