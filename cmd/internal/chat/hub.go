package chat

import (
	"log/slog"
	"sync"

	v1 "pawline/shared/contracts/chat/v1"
)

// LocalDeliverer is the logical per-user delivery address used by the
// broadcast subscriber: it dispatches a payload to whatever sessions are
// attached locally without knowing connection internals.
type LocalDeliverer interface {
	Deliver(userID int64, env v1.Envelope)
}

// Hub owns this process's live sessions, keyed by user id. A user connected
// from multiple devices holds multiple sessions under one address.
//
// Concurrency guarantees:
// - Attach/Detach are safe under concurrent Deliver.
// - Deliver never blocks (drops under backpressure).
// - Deliver is panic-safe because Client.Send is never closed by the server.
type Hub struct {
	log *slog.Logger

	mu       sync.RWMutex
	sessions map[int64]map[string]*Client
}

// NewHub constructs a Hub instance.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:      log,
		sessions: make(map[int64]map[string]*Client),
	}
}

// Attach registers a session under the client's user address.
func (h *Hub) Attach(client *Client) {
	if h == nil || client == nil || client.SessionID == "" || client.UserID == 0 {
		return
	}

	h.mu.Lock()
	byUser := h.sessions[client.UserID]
	if byUser == nil {
		byUser = make(map[string]*Client)
		h.sessions[client.UserID] = byUser
	}
	byUser[client.SessionID] = client
	h.mu.Unlock()

	h.log.Info("hub.session.attach", "user_id", client.UserID, "session_id", client.SessionID)
}

// Detach removes a session from its user address and signals client shutdown.
func (h *Hub) Detach(client *Client) {
	if h == nil || client == nil || client.SessionID == "" {
		return
	}

	h.mu.Lock()
	if byUser := h.sessions[client.UserID]; byUser != nil {
		delete(byUser, client.SessionID)
		if len(byUser) == 0 {
			delete(h.sessions, client.UserID)
		}
	}
	h.mu.Unlock()

	// Signal client shutdown after removing from the address map.
	// This ordering avoids race windows where a deliverer still holds a
	// pointer while the client goroutines are being torn down.
	client.Close()

	h.log.Info("hub.session.detach", "user_id", client.UserID, "session_id", client.SessionID)
}

// Deliver fans an envelope out to every local session of userID.
// Non-blocking: if a session queue is full or shutting down, it is dropped.
// A user with no local sessions is a no-op; another process owns them.
func (h *Hub) Deliver(userID int64, env v1.Envelope) {
	if h == nil || userID == 0 {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.sessions[userID] {
		if c == nil {
			continue
		}

		select {
		case <-c.Done():
			// Skip sessions that are shutting down.
			continue
		default:
		}

		select {
		case c.Send <- env:
		default:
			// Drop rather than block delivery to other sessions.
		}
	}
}

// LocalSessions reports how many sessions are attached for userID.
func (h *Hub) LocalSessions(userID int64) int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}
