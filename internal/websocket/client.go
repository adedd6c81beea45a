// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/reelroom/reelroom/internal/logging"
	"github.com/reelroom/reelroom/internal/metrics"
	"github.com/reelroom/reelroom/internal/models"
	"github.com/reelroom/reelroom/internal/presence"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB; presence frames are tiny
)

// clientIDCounter generates monotonically increasing IDs so broadcast and
// shutdown iterate clients in a stable order.
var clientIDCounter atomic.Uint64

// TokenUpgrader resolves a session token to an authenticated identity. The
// API layer provides this so the transport does not depend on JWT internals.
type TokenUpgrader func(token string) (presence.Identity, error)

// Client is the middleman between one websocket connection and the hub.
type Client struct {
	id           uint64
	connectionID string
	hub          *Hub
	conn         *websocket.Conn
	send         chan models.WSMessage
	upgrade      TokenUpgrader

	mu       sync.RWMutex
	identity presence.Identity

	// sendMu guards closed and orders Send against closeSend. The read pump
	// replies to auth frames concurrently with the hub dropping slow clients,
	// so an unguarded send could hit the channel after close and panic.
	sendMu sync.Mutex
	closed bool
}

// NewClient creates a client for an upgraded connection. connectionID is the
// server-assigned ID used as the presence registry key; identity is the
// resolution of the handshake (user, anon cookie, or the connection itself).
func NewClient(hub *Hub, conn *websocket.Conn, connectionID string, identity presence.Identity, upgrade TokenUpgrader) *Client {
	return &Client{
		id:           clientIDCounter.Add(1),
		connectionID: connectionID,
		hub:          hub,
		conn:         conn,
		send:         make(chan models.WSMessage, 256),
		upgrade:      upgrade,
		identity:     identity,
	}
}

// ConnectionID returns the server-assigned connection ID.
func (c *Client) ConnectionID() string {
	return c.connectionID
}

// Identity returns the client's current identity. The identity can change
// once, when an anonymous client authenticates mid-connection.
func (c *Client) Identity() presence.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// Send queues a message for the client without blocking. Returns false if
// the client has been closed or its buffer is full and the message was
// dropped.
func (c *Client) Send(message models.WSMessage) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once. Only the hub calls this;
// after it returns, Send drops messages instead of panicking on the closed
// channel.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Start begins the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump consumes frames from the socket. Application-level heartbeats and
// auth upgrades are handled here; everything else refreshes liveness via the
// protocol pong handler.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		// A protocol pong proves the same liveness as an application
		// heartbeat, so both feed the registry
		c.hub.registry.Heartbeat(c.connectionID, time.Now())
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg models.WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Str("connection_id", c.connectionID).Msg("unexpected websocket close")
				metrics.WSErrors.WithLabelValues("read").Inc()
			}
			break
		}
		metrics.WSMessagesReceived.Inc()

		switch msg.Type {
		case models.WSTypeHeartbeat:
			if c.hub.registry.Heartbeat(c.connectionID, time.Now()) {
				metrics.PresenceHeartbeats.Inc()
			}
		case models.WSTypeAuth:
			c.handleAuth(msg.Payload)
		default:
			logging.Debug().Str("type", msg.Type).Msg("ignoring unknown websocket message type")
		}
	}
}

// handleAuth upgrades an anonymous connection to its account identity after
// a mid-connection login. The registry re-keys in place so the active-user
// count never flaps during the upgrade.
func (c *Client) handleAuth(payload interface{}) {
	if c.upgrade == nil {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Token == "" {
		c.Send(models.WSMessage{Type: models.WSTypeError, Payload: map[string]string{"message": "invalid auth payload"}})
		return
	}

	identity, err := c.upgrade(body.Token)
	if err != nil {
		logging.Debug().Err(err).Str("connection_id", c.connectionID).Msg("websocket auth upgrade rejected")
		c.Send(models.WSMessage{Type: models.WSTypeError, Payload: map[string]string{"message": "invalid token"}})
		return
	}

	c.mu.Lock()
	c.identity = identity
	c.mu.Unlock()

	c.hub.registry.Rekey(c.connectionID, identity)
	c.Send(models.WSMessage{
		Type: models.WSTypeIdentityIssued,
		Payload: map[string]interface{}{
			"connectionId":  c.connectionID,
			"authenticated": true,
		},
	})
}

// writePump pushes queued messages to the socket and keeps the protocol-level
// ping going.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Debug().Err(err).Msg("failed to write close message")
				}
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				metrics.WSErrors.WithLabelValues("write").Inc()
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
