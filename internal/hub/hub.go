// Package hub is the in-process pub/sub primitive behind the broadcast
// gateway: a channel-driven registry of websocket clients with opaque room
// membership. Delivery is fire-and-forget; a slow client's messages are
// dropped, never buffered unboundedly.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

type Client struct {
	ID    string
	Send  chan []byte
	rooms map[string]struct{}
	mu    sync.RWMutex
}

func NewClient(id string, bufferSize int) *Client {
	return &Client{
		ID:    id,
		Send:  make(chan []byte, bufferSize),
		rooms: make(map[string]struct{}),
	}
}

func (c *Client) InRoom(room string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[room]
	return ok
}

func (c *Client) addRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room] = struct{}{}
}

func (c *Client) removeRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, room)
}

func (c *Client) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// Envelope is the wire format for server-pushed events.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type delivery struct {
	room string // "" targets every connected client
	data []byte
}

type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	roomClients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	outbound   chan delivery

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]struct{}),
		roomClients: make(map[string]map[*Client]struct{}),
		register:    make(chan *Client, 16),
		unregister:  make(chan *Client, 16),
		outbound:    make(chan delivery, 256),
		logger:      logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.ID, "total", total)

		case client := <-h.unregister:
			h.removeClient(client)

		case d := <-h.outbound:
			h.fanout(d)
		}
	}
}

// Join adds the client to a room.
func (h *Hub) Join(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.addRoom(room)
	if h.roomClients[room] == nil {
		h.roomClients[room] = make(map[*Client]struct{})
	}
	h.roomClients[room][client] = struct{}{}
}

// Leave removes the client from a room.
func (h *Hub) Leave(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.removeRoom(room)
	if h.roomClients[room] != nil {
		delete(h.roomClients[room], client)
		if len(h.roomClients[room]) == 0 {
			delete(h.roomClients, room)
		}
	}
}

// Emit pushes an event to every connected client.
func (h *Hub) Emit(event string, payload any) {
	h.send("", event, payload)
}

// EmitTo pushes an event to clients that joined room.
func (h *Hub) EmitTo(room, event string, payload any) {
	h.send(room, event, payload)
}

func (h *Hub) send(room, event string, payload any) {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		h.logger.Error("marshal event failed", "event", event, "error", err)
		return
	}

	select {
	case h.outbound <- delivery{room: room, data: data}:
	default:
		h.logger.Warn("outbound channel full, dropping event", "event", event, "room", room)
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) fanout(d delivery) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var targets map[*Client]struct{}
	if d.room == "" {
		targets = h.clients
	} else {
		targets = h.roomClients[d.room]
	}

	for client := range targets {
		select {
		case client.Send <- d.data:
		default:
			h.logger.Debug("client send buffer full", "client_id", client.ID)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	for _, room := range client.Rooms() {
		if h.roomClients[room] != nil {
			delete(h.roomClients[room], client)
			if len(h.roomClients[room]) == 0 {
				delete(h.roomClients, room)
			}
		}
	}

	delete(h.clients, client)
	close(client.Send)
	h.logger.Debug("client unregistered", "client_id", client.ID, "total", len(h.clients))
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]struct{})
	h.roomClients = make(map[string]map[*Client]struct{})
}
