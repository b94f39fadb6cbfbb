package events

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-flood-alerts/internal/models"
)

const subscriberBuffer = 100

type Broadcaster struct {
	subscribers map[uint64]chan models.AlertLogEntry
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan models.AlertLogEntry),
	}
}

func (b *Broadcaster) Subscribe() (uint64, <-chan models.AlertLogEntry) {
	id := b.nextID.Add(1)
	ch := make(chan models.AlertLogEntry, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// PublishAlert never blocks; slow subscribers miss entries.
func (b *Broadcaster) PublishAlert(_ context.Context, entry models.AlertLogEntry) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
	return nil
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels so streams exit.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
