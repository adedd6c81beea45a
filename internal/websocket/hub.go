// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

// Package websocket implements the realtime transport. The hub owns the
// client set and fans out broadcasts; each client connection is registered
// with the presence registry for the lifetime of its socket.
package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/reelroom/reelroom/internal/logging"
	"github.com/reelroom/reelroom/internal/metrics"
	"github.com/reelroom/reelroom/internal/models"
	"github.com/reelroom/reelroom/internal/presence"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Hub maintains the set of active clients and broadcasts messages to them.
// Registration and unregistration also drive the presence registry, so the
// hub's client set and the registry's connection set stay in step.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	registry *presence.Registry
}

// NewHub creates a hub bound to the presence registry.
func NewHub(registry *presence.Registry) *Hub {
	return &Hub{
		broadcast:  make(chan models.WSMessage, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		registry:   registry,
	}
}

// RunWithContext runs the hub until the context is cancelled. Designed for
// suture supervision: on cancellation all clients are closed and ctx.Err()
// is returned.
//
// Selection is priority ordered so behavior stays predictable when several
// channels are ready at once: shutdown first, then client lifecycle, then
// broadcasts. Go's select picks randomly among ready cases, which would
// otherwise let a broadcast overtake the unregister of its dead client.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: shutdown (non-blocking check)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: client lifecycle (non-blocking check)
		select {
		case client := <-h.Register:
			h.registerClient(client)
			continue
		case client := <-h.Unregister:
			h.unregisterClient(client)
			continue
		default:
		}

		// Priority 3: broadcasts, or block until any event arrives
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// String names the service in supervisor logs.
func (h *Hub) String() string {
	return "websocket-hub"
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	identity := client.Identity()
	h.registry.Connect(client.connectionID, identity, time.Now())
	metrics.WSConnections.Set(float64(total))

	// Tell the client who it is and what the count was at join time. The
	// count callback only fires on changes, so without this a second tab
	// would never learn the current count. Anonymous visitors get their
	// token back so clients without cookie access can replay it themselves.
	payload := map[string]interface{}{
		"connectionId":  client.connectionID,
		"authenticated": identity.Authenticated(),
	}
	if identity.Kind == presence.KindAnon {
		payload["anonymousId"] = identity.ID
	}
	client.Send(models.WSMessage{
		Type:    models.WSTypeIdentityIssued,
		Payload: payload,
	})
	client.Send(models.WSMessage{
		Type:    models.WSTypeActiveUsers,
		Payload: models.ActiveUsersUpdate{Count: h.registry.Count()},
	})

	logging.Info().
		Str("connection_id", client.connectionID).
		Int("total_clients", total).
		Msg("websocket client connected")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closeSend()
		removed = true
	}
	total := len(h.clients)
	h.mu.Unlock()

	// Unregister may race with shutdown and deliver twice; the registry
	// treats unknown IDs as a no-op
	h.registry.Disconnect(client.connectionID)
	metrics.WSConnections.Set(float64(total))

	if removed {
		logging.Info().
			Str("connection_id", client.connectionID).
			Msg("websocket client disconnected")
	}
}

// BroadcastActiveUsers queues an activeUsers:update push for every client.
// Safe to call from any goroutine; drops the update if the broadcast queue
// is full, since a newer count will follow shortly.
func (h *Hub) BroadcastActiveUsers(count int) {
	message := models.WSMessage{
		Type:    models.WSTypeActiveUsers,
		Payload: models.ActiveUsersUpdate{Count: count},
	}

	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Msg("broadcast channel full, dropping activeUsers update")
	}
}

// BroadcastJSON queues an arbitrary typed message for every client.
func (h *Hub) BroadcastJSON(messageType string, payload interface{}) {
	message := models.WSMessage{Type: messageType, Payload: payload}

	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// broadcastToClients delivers a message to all clients in a deterministic
// order. Clients whose send buffers are full are dropped rather than allowed
// to stall the hub; their write pump will notice the closed channel and close
// the socket, which unwinds the read pump too.
func (h *Hub) broadcastToClients(message models.WSMessage) {
	h.mu.Lock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		client.closeSend()
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range toRemove {
		h.registry.Disconnect(client.connectionID)
		metrics.WSErrors.WithLabelValues("slow_client").Inc()
		logging.Warn().
			Str("connection_id", client.connectionID).
			Msg("dropped slow websocket client")
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(shutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func shutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// closeAllClients closes every client in ID order and clears their presence
// records.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		client.closeSend()
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.registry.Disconnect(client.connectionID)
	}
}
