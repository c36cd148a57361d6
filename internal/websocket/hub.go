package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"haulr-dispatch/internal/models"
	"haulr-dispatch/internal/remote"
)

// Hub maintains active WebSocket connections and broadcasts messages
type Hub struct {
	// Registered clients. One user may hold several devices.
	clients map[*Client]bool

	// Outbound messages queued for delivery
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe client map access
	mu sync.RWMutex
}

// Message is a payload addressed to one user, one role, or everyone when both are empty
type Message struct {
	UserID string
	Role   string
	Data   interface{}
}

func (m *Message) matches(c *Client) bool {
	if m.UserID != "" && m.UserID != c.UserID {
		return false
	}
	if m.Role != "" && m.Role != c.UserRole {
		return false
	}
	return true
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx ends
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.conn.Close()
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			log.Println("🛑 [WEBSOCKET] Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Printf("✅ [WEBSOCKET] Client CONNECTED")
			log.Printf("   User ID: %s", client.UserID)
			log.Printf("   Role: %s", client.UserRole)
			log.Printf("   Total connected clients: %d", total)
			log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
				log.Printf("🔴 [WEBSOCKET] Client DISCONNECTED")
				log.Printf("   User ID: %s", client.UserID)
				log.Printf("   Role: %s", client.UserRole)
				log.Printf("   Remaining connected clients: %d", len(h.clients))
				log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message.Data)
			if err != nil {
				log.Printf("❌ Failed to marshal message: %v", err)
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				if !message.matches(client) {
					continue
				}
				select {
				case client.send <- data:
				default:
					// Client buffer full, drop the connection and let ReadPump unregister it
					client.conn.Close()
					log.Printf("⚠️ Client buffer full, disconnecting: %s", client.UserID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends data to every connected client
func (h *Hub) Broadcast(data interface{}) {
	h.enqueue(&Message{Data: data})
}

// BroadcastToUser sends data to every device of one user
func (h *Hub) BroadcastToUser(userID string, data interface{}) {
	h.enqueue(&Message{UserID: userID, Data: data})
}

// BroadcastToRole sends data to all users with a specific role
func (h *Hub) BroadcastToRole(role string, data interface{}) {
	h.enqueue(&Message{Role: role, Data: data})
}

func (h *Hub) enqueue(m *Message) {
	select {
	case h.broadcast <- m:
	case <-h.done:
	}
}

// CollectionsSynced announces a landed sync so devices refetch early
func (h *Hub) CollectionsSynced(collections []models.Collection) {
	h.Broadcast(remote.ChangeMessage{
		Type:        remote.ChangeTypeSynced,
		Collections: collections,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsUserConnected checks if a user has at least one open connection
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.UserID == userID {
			return true
		}
	}
	return false
}
