/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package broadcast

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/routerwatch/routerwatch/pkg/logger"
)

const wsWriteTimeout = 10 * time.Second

// wsEnvelope is the frame sent to websocket subscribers.
type wsEnvelope struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// wsCommand is what clients send to manage their subscriptions.
type wsCommand struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Topic  string `json:"topic"`
}

// wsConn is the subset of *websocket.Conn the client uses, split out so
// tests can run without a network socket.
type wsConn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// WSClient is one connected websocket subscriber. Writes are serialized;
// gorilla connections do not allow concurrent writers.
type WSClient struct {
	hub    *Hub
	logger logger.Logger

	writeMu sync.Mutex
	conn    wsConn
}

// NewWSClient wraps an upgraded connection.
func NewWSClient(hub *Hub, conn wsConn, log logger.Logger) *WSClient {
	return &WSClient{hub: hub, conn: conn, logger: log}
}

// Deliver sends one envelope. An error marks the transport dead; the hub
// prunes this client in response.
func (c *WSClient) Deliver(topic string, payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}

	return c.conn.WriteJSON(wsEnvelope{Topic: topic, Payload: payload})
}

// ReadLoop processes subscribe/unsubscribe commands until the client
// disconnects, then removes every subscription.
func (c *WSClient) ReadLoop() {
	defer func() {
		c.hub.UnsubscribeAll(c)
		_ = c.conn.Close()
	}()

	for {
		var cmd wsCommand

		if err := c.conn.ReadJSON(&cmd); err != nil {
			c.logger.Debug().Err(err).Msg("Websocket client disconnected")

			return
		}

		switch cmd.Action {
		case "subscribe":
			if cmd.Topic != "" {
				c.hub.Subscribe(cmd.Topic, c)
			}
		case "unsubscribe":
			if cmd.Topic != "" {
				c.hub.Unsubscribe(cmd.Topic, c)
			}
		default:
			c.logger.Debug().Str("action", cmd.Action).Msg("Ignoring unknown websocket command")
		}
	}
}

// WSHandler upgrades HTTP requests into hub subscribers.
type WSHandler struct {
	hub      *Hub
	logger   logger.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler builds the websocket endpoint for a hub.
func NewWSHandler(hub *Hub, log logger.Logger) *WSHandler {
	return &WSHandler{
		hub:    hub,
		logger: log.WithComponent("websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Websocket upgrade failed")

		return
	}

	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("Websocket client connected")

	client := NewWSClient(h.hub, conn, h.logger)

	go client.ReadLoop()
}
