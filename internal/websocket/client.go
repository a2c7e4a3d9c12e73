// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/follow/internal/logging"
	"github.com/tomtom215/follow/internal/metrics"
	"github.com/tomtom215/follow/internal/track"
)

// Connection timing. Pings go out well inside the pong deadline.
const (
	writeWait      = 10 * time.Second
	pongWait       = time.Minute
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4 << 10 // pings and mode changes only
)

// nextClientID orders clients by arrival.
var nextClientID atomic.Uint64

// Client is one browser connection following one device.
type Client struct {
	id     uint64
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
	device string

	mu   sync.RWMutex
	mode track.Mode
}

// NewClient creates a client following device, rendered in mode.
func NewClient(hub *Hub, conn *websocket.Conn, device string, mode track.Mode) *Client {
	return &Client{
		id:     nextClientID.Add(1),
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, 32),
		device: device,
		mode:   mode,
	}
}

func (c *Client) ID() uint64 {
	return c.id
}

// Device returns the followed device key.
func (c *Client) Device() string {
	return c.device
}

// Mode returns the coloring mode the client asked for.
func (c *Client) Mode() track.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

func (c *Client) setMode(m track.Mode) {
	c.mu.Lock()
	c.mode = m
	c.mu.Unlock()
}

// handleMessage reacts to one message from the browser.
func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case MessageTypePing:
		c.trySend(Message{Type: MessageTypePong})
	case MessageTypeMode:
		name, _ := msg.Data.(string)
		mode, err := track.ParseMode(name)
		if err != nil {
			c.trySend(Message{Type: MessageTypeError, Data: err.Error()})
			return
		}
		c.setMode(mode)
		select {
		case c.hub.refresh <- c:
		default:
		}
	}
}

func (c *Client) trySend(msg Message) {
	c.hub.sendTo([]*Client{c}, msg)
}

// readPump decodes browser messages until the connection fails, then
// unregisters the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	if err := extend(""); err != nil {
		return
	}
	c.conn.SetPongHandler(extend)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("unexpected_close").Inc()
				logging.Warn().Err(err).Uint64("client", c.id).Str("device", c.device).Msg("WebSocket closed unexpectedly")
			}
			return
		}

		var msg Message
		if json.Unmarshal(data, &msg) != nil {
			metrics.WSErrors.WithLabelValues("invalid_message").Inc()
			continue
		}
		c.handleMessage(msg)
	}
}

// write sends one frame under the write deadline.
func (c *Client) write(kind int, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(kind, payload)
}

// writePump drains the send queue and keeps the connection alive with
// pings. It exits when the hub closes the queue or a write fails.
func (c *Client) writePump() {
	keepAlive := time.NewTicker(pingPeriod)
	defer keepAlive.Stop()
	defer c.conn.Close()

	for {
		var err error
		select {
		case msg, open := <-c.send:
			if !open {
				_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			data, merr := MarshalMessage(msg)
			if merr != nil {
				logging.Error().Err(merr).Str("message_type", msg.Type).Msg("Dropping unencodable websocket message")
				continue
			}
			if err = c.write(websocket.TextMessage, data); err != nil {
				metrics.WSErrors.WithLabelValues("write_failed").Inc()
			}
		case <-keepAlive.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

// Start runs the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
