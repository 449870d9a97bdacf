// Package events fans session transitions and notifications out to every
// connected browser over websockets.
package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	logging "github.com/ipfs/go-log/v2"

	"pdfdesk/pkg/auth"
	"pdfdesk/pkg/utils"
)

var log = logging.Logger("events")

// Event types
const (
	TypeNotification = "notification"
	TypePromptPIN    = "prompt_pin"
	TypeLogin        = "login"
	TypeLoginFailed  = "login_failed"
	TypeLogout       = "logout"
	TypeCountdown    = "countdown"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientBuffer   = 32
	historyLength  = 20
	maxMessageSize = 512
)

// Event is one message on the stream
type Event struct {
	Type      string        `json:"type"`
	Message   string        `json:"message,omitempty"`
	Severity  auth.Severity `json:"severity,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Remaining int64         `json:"remaining_seconds,omitempty"`
	At        time.Time     `json:"at"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub implements auth.Signals and auth.Notifier. Publishing never blocks:
// a client whose buffer is full is dropped.
type Hub struct {
	mutex    sync.Mutex
	clients  map[*client]struct{}
	history  []Event
	now      func() time.Time
	upgrader websocket.Upgrader
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		now:     time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Publish sends ev to every connected client
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = h.now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("Encoding %s event: %v", ev.Type, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	// Countdown ticks are too chatty to replay
	if ev.Type != TypeCountdown {
		h.history = append(h.history, ev)
		if len(h.history) > historyLength {
			h.history = h.history[len(h.history)-historyLength:]
		}
	}
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			log.Warnf("Dropping slow websocket client %s", c.id)
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Recent returns the latest non-countdown events, oldest first
func (h *Hub) Recent() []Event {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	out := make([]Event, len(h.history))
	copy(out, h.history)
	return out
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *Hub) Notify(message string, severity auth.Severity) {
	h.Publish(Event{Type: TypeNotification, Message: message, Severity: severity})
}

func (h *Hub) PromptPIN() {
	h.Publish(Event{Type: TypePromptPIN})
}

func (h *Hub) LoginSucceeded(at time.Time, remaining time.Duration) {
	h.Publish(Event{Type: TypeLogin, Remaining: int64(remaining / time.Second), At: at})
}

func (h *Hub) LoginFailed() {
	h.Publish(Event{Type: TypeLoginFailed})
}

func (h *Hub) LoggedOut(reason auth.LogoutReason) {
	h.Publish(Event{Type: TypeLogout, Reason: string(reason)})
}

func (h *Hub) Countdown(remaining time.Duration) {
	h.Publish(Event{Type: TypeCountdown, Remaining: int64(remaining / time.Second)})
}

// ServeWS upgrades the request and streams events until the client leaves
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("Websocket upgrade failed: %v", err)
		return
	}

	c := &client{id: utils.GenerateClientID(), conn: conn, send: make(chan []byte, clientBuffer)}
	h.mutex.Lock()
	// Replay history before the client can see live events
	for _, ev := range h.history {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		c.send <- payload
	}
	h.clients[c] = struct{}{}
	h.mutex.Unlock()
	log.Debugf("Websocket client %s connected from %s", c.id, conn.RemoteAddr())

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump discards client messages and notices disconnects
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debugf("Websocket client %s: %v", c.id, err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
