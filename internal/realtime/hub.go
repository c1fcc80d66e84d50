package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/easypeasy/internal/logger"
)

const defaultSubscriberBuffer = 16

// Hub is the in-process broker. Slow subscribers lose events rather than
// stalling publishers.
type Hub struct {
	mu     sync.RWMutex
	log    *logger.Logger
	subs   map[*Subscription]struct{}
	buffer int
}

type Subscription struct {
	ID     uuid.UUID
	filter Filter
	events chan Event
	done   chan struct{}
	once   sync.Once
	hub    *Hub
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		log:    log.With("component", "RealtimeHub"),
		subs:   make(map[*Subscription]struct{}),
		buffer: defaultSubscriberBuffer,
	}
}

func (hub *Hub) Publish(_ context.Context, event Event) error {
	hub.Broadcast(event)
	return nil
}

func (hub *Hub) Broadcast(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for sub := range hub.subs {
		if !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			hub.log.Warn("dropping realtime event; subscriber buffer full",
				"subscription_id", sub.ID, "table", event.Table, "type", event.Type)
		}
	}
}

func (hub *Hub) Subscribe(ctx context.Context, filter Filter) (*Subscription, error) {
	sub := &Subscription{
		ID:     uuid.New(),
		filter: filter,
		events: make(chan Event, hub.buffer),
		done:   make(chan struct{}),
		hub:    hub,
	}

	hub.mu.Lock()
	hub.subs[sub] = struct{}{}
	hub.mu.Unlock()
	hub.log.Debug("realtime subscription opened", "subscription_id", sub.ID, "table", filter.Table)

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

func (hub *Hub) SubscriberCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subs)
}

func (sub *Subscription) Events() <-chan Event {
	return sub.events
}

func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.hub.mu.Lock()
		delete(sub.hub.subs, sub)
		close(sub.events)
		sub.hub.mu.Unlock()
		close(sub.done)
		sub.hub.log.Debug("realtime subscription closed", "subscription_id", sub.ID)
	})
}
