// Package notify pushes notifications to connected clients.
//
// The notification log in the database is the source of truth and clients
// may keep polling it. Push is layered on top:
//
//	service ──Publish──▶ Hub ──▶ subscriber channels ──▶ websocket
//
// or, with a broker configured, through RabbitMQ so every server instance
// sees every notification:
//
//	service ──Publish──▶ Broker ──exchange──▶ Broker.Forward ──▶ Hub (each instance)
//
// Delivery is best effort. A subscriber that cannot keep up loses
// notifications rather than slowing the publisher down.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/petmatch/petmatch/internal/model"
)

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("notify: hub closed")

// DefaultBuffer is how many notifications a subscriber may fall behind
// before new ones are dropped.
const DefaultBuffer = 16

// Hub fans notifications out to in-process subscribers, keyed by user.
// A user may hold several subscriptions at once (one per open tab).
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[uuid.UUID]chan model.Notification
	buffer int
	closed bool
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[uuid.UUID]chan model.Notification),
		buffer: DefaultBuffer,
		logger: logger,
	}
}

// Subscription is one listener. Read C until it is closed; call Close when
// done listening.
type Subscription struct {
	ID     uuid.UUID
	UserID string
	C      <-chan model.Notification

	hub  *Hub
	once sync.Once
}

// Close unsubscribes. It is safe to call more than once and after the hub
// has closed.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s.UserID, s.ID) })
}

// Subscribe registers a listener for userID's notifications.
func (h *Hub) Subscribe(userID string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}

	id := uuid.New()
	ch := make(chan model.Notification, h.buffer)
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uuid.UUID]chan model.Notification)
	}
	h.subs[userID][id] = ch

	h.logger.Debug("subscriber added",
		slog.String("userID", userID),
		slog.String("subscriptionID", id.String()),
	)
	return &Subscription{ID: id, UserID: userID, C: ch, hub: h}, nil
}

func (h *Hub) unsubscribe(userID string, id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	userSubs, ok := h.subs[userID]
	if !ok {
		return
	}
	if ch, ok := userSubs[id]; ok {
		delete(userSubs, id)
		close(ch)
	}
	if len(userSubs) == 0 {
		delete(h.subs, userID)
	}
}

// Publish hands n to every subscriber of n.UserID. It never blocks: a full
// subscriber misses this notification. Publishing for a user nobody is
// listening for is not an error.
func (h *Hub) Publish(_ context.Context, n model.Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}

	for id, ch := range h.subs[n.UserID] {
		select {
		case ch <- n:
		default:
			h.logger.Warn("subscriber too slow, notification dropped",
				slog.String("userID", n.UserID),
				slog.String("subscriptionID", id.String()),
			)
		}
	}
	return nil
}

// Subscribers returns how many listeners userID has.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for userID, userSubs := range h.subs {
		for _, ch := range userSubs {
			close(ch)
		}
		delete(h.subs, userID)
	}
	return nil
}
