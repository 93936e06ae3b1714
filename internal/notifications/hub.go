package notifications

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event represents a payload delivered to alarm stream subscribers.
type Event struct {
	Event   string      `json:"event"`
	Alarm   interface{} `json:"alarm,omitempty"`
	AlarmID string      `json:"alarm_id,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 16
)

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub fans out alarm events to connected subscribers keyed by account ID.
// Delivery is best-effort: the persisted alarm row is the contract, the
// stream only saves the client a poll.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
}

// NewHub constructs a notification hub instance.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the HTTP connection to a WebSocket and registers the account subscriber.
func (h *Hub) Serve(accountID string, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	cl := &client{
		conn: conn,
		send: make(chan Event, sendBufferSize),
	}

	h.addClient(accountID, cl)
	go h.writeLoop(accountID, cl)
	h.readLoop(accountID, cl)
}

// Broadcast delivers an event to all subscribers for the provided account ID.
func (h *Hub) Broadcast(accountID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for cl := range h.clients[accountID] {
		select {
		case cl.send <- event:
		default:
			// Drop if buffer full to avoid blocking all clients.
		}
	}
}

// BroadcastMany delivers an event to each supplied account ID.
func (h *Hub) BroadcastMany(accountIDs []string, event Event) {
	for _, accountID := range accountIDs {
		h.Broadcast(accountID, event)
	}
}

// Subscribers reports the number of live connections for an account.
func (h *Hub) Subscribers(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[accountID])
}

func (h *Hub) addClient(accountID string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[accountID] == nil {
		h.clients[accountID] = make(map[*client]struct{})
	}
	h.clients[accountID][cl] = struct{}{}
}

func (h *Hub) removeClient(accountID string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[accountID]
	if clients == nil {
		return
	}
	if _, ok := clients[cl]; !ok {
		return
	}
	delete(clients, cl)
	if len(clients) == 0 {
		delete(h.clients, accountID)
	}
	close(cl.send)
	_ = cl.conn.Close()
}

func (h *Hub) writeLoop(accountID string, cl *client) {
	defer h.removeClient(accountID, cl)

	for event := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteJSON(event); err != nil {
			return
		}
	}
}

func (h *Hub) readLoop(accountID string, cl *client) {
	defer h.removeClient(accountID, cl)

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}
