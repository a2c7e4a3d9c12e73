// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package websocket

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/follow/internal/logging"
	"github.com/tomtom215/follow/internal/metrics"
	"github.com/tomtom215/follow/internal/models"
	"github.com/tomtom215/follow/internal/track"
)

// ShutdownReason is logged when the hub stops.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types. Clients send ping and mode; the server sends the rest.
const (
	MessageTypeSegments = "segments"
	MessageTypeStatus   = "status"
	MessageTypeMode     = "mode"
	MessageTypeError    = "error"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// Message is the JSON frame exchanged with browsers.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Renderer produces the current segments of a device in a mode. It returns
// false when the device is no longer followed.
type Renderer func(key string, mode track.Mode) (models.DeviceSegments, bool)

// Hub tracks clients by the device they follow and pushes fresh segments
// whenever that device's trips change.
type Hub struct {
	clients     map[*Client]struct{}
	subscribers map[string]int
	broadcast   chan Message
	updates     chan string
	refresh     chan *Client
	Register    chan *Client
	Unregister  chan *Client
	renderer    Renderer
	mu          sync.RWMutex

	// done is closed when RunWithContext returns and replaced when it
	// starts again. Guarded by mu.
	done chan struct{}
}

// NewHub creates a hub that renders device payloads with renderer.
func NewHub(renderer Renderer) *Hub {
	return &Hub{
		clients:     make(map[*Client]struct{}),
		subscribers: make(map[string]int),
		broadcast:   make(chan Message, 256),
		updates:     make(chan string, 256),
		refresh:     make(chan *Client, 64),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		renderer:    renderer,
		done:        make(chan struct{}),
	}
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client and returns ctx.Err().
//
// Each pass handles cancellation first and pending registrations second,
// so a client is registered before anything can be pushed to it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.mu.Lock()
	select {
	case <-h.done:
		h.done = make(chan struct{})
	default:
	}
	h.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return h.shutdown(ctx)
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return h.shutdown(ctx)
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case key := <-h.updates:
			h.pushDevice(h.drainUpdates(key))
		case client := <-h.refresh:
			h.pushClient(client)
		case message := <-h.broadcast:
			h.sendTo(h.snapshot(nil), message)
		}
	}
}

// Join registers client with the running hub. It blocks until the hub
// accepts the client and returns false if the hub stops first.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.stopped():
		return false
	}
}

// Leave unregisters client. A stopped hub has already dropped it.
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.stopped():
	}
}

func (h *Hub) stopped() <-chan struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.done
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.subscribers[client.device]++
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Str("device", client.device).Int("total_clients", total).Msg("websocket client connected")
	h.pushClient(client)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		h.dropLocked(client)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Str("device", client.device).Int("total_clients", total).Msg("websocket client disconnected")
}

// dropLocked removes a registered client. h.mu must be held.
func (h *Hub) dropLocked(client *Client) {
	delete(h.clients, client)
	close(client.send)
	if h.subscribers[client.device]--; h.subscribers[client.device] <= 0 {
		delete(h.subscribers, client.device)
	}
}

// drainUpdates collects every queued device key, starting with first, so a
// burst of polls renders once per device.
func (h *Hub) drainUpdates(first string) []string {
	seen := map[string]bool{first: true}
	keys := []string{first}
	for {
		select {
		case key := <-h.updates:
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		default:
			return keys
		}
	}
}

// pushDevice renders each key once per mode in use and sends it to the
// key's subscribers.
func (h *Hub) pushDevice(keys []string) {
	for _, key := range keys {
		byMode := make(map[track.Mode][]*Client)
		for _, client := range h.subscribersOf(key) {
			mode := client.Mode()
			byMode[mode] = append(byMode[mode], client)
		}
		for mode, clients := range byMode {
			payload, ok := h.renderer(key, mode)
			if !ok {
				continue
			}
			h.sendTo(clients, Message{Type: MessageTypeSegments, Data: payload})
		}
	}
}

// pushClient sends the current segments to a single client.
func (h *Hub) pushClient(client *Client) {
	if h.renderer == nil {
		return
	}
	payload, ok := h.renderer(client.device, client.Mode())
	if !ok {
		return
	}
	h.sendTo([]*Client{client}, Message{Type: MessageTypeSegments, Data: payload})
}

// subscribersOf returns the clients following key in ID order.
func (h *Hub) subscribersOf(key string) []*Client {
	return h.snapshot(func(c *Client) bool { return c.device == key })
}

// snapshot lists the registered clients accepted by match, or all of them
// when match is nil, in ID order.
func (h *Hub) snapshot(match func(*Client) bool) []*Client {
	h.mu.RLock()
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if match == nil || match(c) {
			out = append(out, c)
		}
	}
	h.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Client) int { return cmp.Compare(a.id, b.id) })
	return out
}

// sendTo queues message for each client; clients whose buffer is full are dropped.
func (h *Hub) sendTo(clients []*Client, message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range clients {
		if _, ok := h.clients[client]; !ok {
			continue
		}
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			metrics.WSErrors.WithLabelValues("slow_client").Inc()
			h.dropLocked(client)
		}
	}
}

// shutdown drops every client, logs why the hub stopped and returns
// ctx.Err().
func (h *Hub) shutdown(ctx context.Context) error {
	clients := h.snapshot(nil)
	h.mu.Lock()
	for _, c := range clients {
		// A slow client may already have been dropped by sendTo.
		if _, ok := h.clients[c]; ok {
			h.dropLocked(c)
		}
	}
	close(h.done)
	h.mu.Unlock()
	metrics.WSConnections.Set(0)

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", len(clients)).
		Msg("WebSocket hub stopped")
	return ctx.Err()
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// NotifyDevice queues a push for key's subscribers. It never blocks; when
// the queue is full the update is dropped and the next poll catches up.
func (h *Hub) NotifyDevice(key string) {
	if !h.HasSubscribers(key) {
		return
	}
	select {
	case h.updates <- key:
	default:
		logging.Warn().Str("device", key).Msg("update channel full, dropping segments push")
	}
}

// BroadcastJSON queues a message for every client without blocking.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("Broadcast queue full, message dropped")
	}
}

// HasSubscribers reports whether any client follows key.
func (h *Hub) HasSubscribers(key string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subscribers[key] > 0
}

// GetClientCount counts registered clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
