// Package websocket pushes live dashboard updates to connected psychologists.
// Every connection owns a poller that reloads its dashboard on an interval;
// the hub lets the rest of the server nudge all connections of a psychologist
// to reload right away (for instance after a request is accepted).
package websocket

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event types sent to clients.
const (
	EventDashboardUpdated = "dashboard.updated"
	EventDashboardError   = "dashboard.error"
	EventRequestChanged   = "request.changed"
)

// Event is a server-to-client message.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is a client-to-server message. The only action is "refresh".
type ClientMessage struct {
	Action string `json:"action"`
}

// Client represents a single WebSocket connection.
type Client struct {
	ID      string
	Topic   string
	Send    chan []byte
	refresh func()
}

// PsychologistTopic is the topic every connection of a psychologist joins.
func PsychologistTopic(psychologistID int64) string {
	return "psychologist:" + strconv.FormatInt(psychologistID, 10)
}

// Hub tracks connected clients by topic.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.Topic] == nil {
		h.clients[client.Topic] = make(map[*Client]struct{})
	}
	h.clients[client.Topic][client] = struct{}{}
}

// Unregister removes the client and closes its Send channel. Calling it twice
// is safe.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.clients[client.Topic]
	if !ok {
		return
	}
	if _, ok := subscribers[client]; !ok {
		return
	}
	delete(subscribers, client)
	if len(subscribers) == 0 {
		delete(h.clients, client.Topic)
	}
	close(client.Send)
}

// Broadcast sends event to every client on topic. Clients with a full buffer
// miss the event.
func (h *Hub) Broadcast(topic string, event Event) {
	event.Topic = topic
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("type", event.Type).Msg("websocket: marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// NotifyPsychologist tells the psychologist's live dashboards that a request
// changed and asks each of them to reload.
func (h *Hub) NotifyPsychologist(psychologistID int64) {
	topic := PsychologistTopic(psychologistID)
	h.Broadcast(topic, Event{Type: EventRequestChanged, Timestamp: time.Now().UTC()})

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[topic] {
		if client.refresh != nil {
			client.refresh()
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subscribers := range h.clients {
		n += len(subscribers)
	}
	return n
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}
