package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/backsoul/trivia/pkg/notify"
	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Role identifies which display a connection belongs to.
type Role string

const (
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
)

// ParseRole maps the ?role= query value. Empty means player.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case "", RolePlayer:
		return RolePlayer, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Message types sent to displays.
const (
	TypeSyncFromAdmin  = "syncFromAdmin"
	TypeSyncFromPlayer = "syncFromPlayer"
	TypeOpenWindow     = "openWindow"
	TypeCloseWindow    = "closeWindow"
	TypeExit           = "exit"
)

// ErrNoDisplay is returned when no connection holds the requested role.
var ErrNoDisplay = errors.New("no display connected")

const writeWait = 5 * time.Second

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Client es una conexión WebSocket de una pantalla
type Client struct {
	ID   string
	Role Role
	conn *websocket.Conn
}

func NewClient(conn *websocket.Conn, role Role) *Client {
	return &Client{ID: uuid.NewString(), Role: role, conn: conn}
}

type outbound struct {
	role Role
	data []byte
}

// Hub owns every display connection. Only Run writes to a connection.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			log.Info().Str("id", client.ID).Str("role", string(client.Role)).Int("total", total).Msg("🔌 display connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.conn.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			log.Info().Str("id", client.ID).Str("role", string(client.Role)).Int("total", total).Msg("display disconnected")

		case msg := <-h.broadcast:
			h.write(msg)
		}
	}
}

func (h *Hub) write(msg outbound) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		if client.Role != msg.role {
			continue
		}
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteMessage(websocket.TextMessage, msg.data); err != nil {
			log.Warn().Err(err).Str("id", client.ID).Msg("⚠️ error writing to display")
			delete(h.clients, client)
			client.conn.Close()
		}
	}
}

func (h *Hub) closeAll() {
	close(h.done)
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		client.conn.Close()
		delete(h.clients, client)
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.conn.Close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Count returns the number of connections holding role.
func (h *Hub) Count(role Role) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	n := 0
	for client := range h.clients {
		if client.Role == role {
			n++
		}
	}
	return n
}

// SendTo queues a message for every connection of role.
func (h *Hub) SendTo(ctx context.Context, role Role, msgType string, data interface{}) error {
	if h.Count(role) == 0 {
		return fmt.Errorf("%s: %w", role, ErrNoDisplay)
	}

	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		return fmt.Errorf("serialize %s message: %w", msgType, err)
	}

	select {
	case h.broadcast <- outbound{role: role, data: payload}:
		return nil
	case <-h.done:
		return fmt.Errorf("%s: %w", role, ErrNoDisplay)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Notify delivers a sync nudge: player displays hear about admin changes and vice versa.
func (h *Hub) Notify(ctx context.Context, target notify.Target) error {
	if target == notify.Admin {
		return h.SendTo(ctx, RoleAdmin, TypeSyncFromPlayer, nil)
	}
	return h.SendTo(ctx, RolePlayer, TypeSyncFromAdmin, nil)
}
