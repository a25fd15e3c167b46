package realtime

import (
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/v3/websocket"
	"github.com/gofiber/fiber/v3"

	"github.com/pimalab/pimadash/internal/chart"
	"github.com/pimalab/pimadash/internal/dashboard"
	"github.com/pimalab/pimadash/internal/logging"
)

const (
	MessageFigure   = "figure"
	MessageError    = "error"
	MessageShutdown = "shutdown"
)

// Message is the envelope written to the page.
type Message struct {
	Type   string        `json:"type"`
	Widget string        `json:"widget,omitempty"`
	Figure *chart.Figure `json:"figure,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type Hub struct {
	register    chan *Client
	unregister  chan *Client
	broadcast   chan []byte
	direct      chan delivery
	shutdown    chan chan struct{}
	clientCount chan chan int // For thread-safe client count queries
	clients     map[*Client]struct{}
	closed      bool
}

type delivery struct {
	client  *Client
	payload []byte
}

type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

// session is the part of dashboard.Session a client drives.
type session interface {
	Apply(dashboard.Event) (dashboard.Update, bool)
	Touch()
}

type Client struct {
	hub     *Hub
	conn    wsConn
	session session
	send    chan []byte
}

type pingTicker interface {
	C() <-chan time.Time
	Stop()
}

type realPingTicker struct {
	*time.Ticker
}

func (t *realPingTicker) C() <-chan time.Time {
	return t.Ticker.C
}

var pingTickerFactory = func() pingTicker {
	return &realPingTicker{time.NewTicker(30 * time.Second)}
}

func NewHub() *Hub {
	h := &Hub{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan []byte, 512),
		direct:      make(chan delivery, 512),
		shutdown:    make(chan chan struct{}),
		clientCount: make(chan chan int),
		clients:     make(map[*Client]struct{}),
	}

	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			if h.closed {
				close(client.send)
				continue
			}
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				_ = client.conn.Close()
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				h.deliver(client, message)
			}
		case d := <-h.direct:
			if _, ok := h.clients[d.client]; ok {
				h.deliver(d.client, d.payload)
			}
		case done := <-h.shutdown:
			payload, _ := json.Marshal(Message{Type: MessageShutdown})
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
				}
				close(client.send)
				delete(h.clients, client)
			}
			h.closed = true
			close(done)
		case response := <-h.clientCount:
			response <- len(h.clients)
		}
	}
}

// deliver queues message for client, dropping the client if it cannot keep up.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		logging.L().Warn("dropping realtime payload", "reason", "slow consumers")
	}
}

// Shutdown tells every connected page the server is going away and closes
// their send queues. Clients registering afterwards are turned away.
func (h *Hub) Shutdown() {
	done := make(chan struct{})
	h.shutdown <- done
	<-done
}

// GetClientCount returns the number of connected clients in a thread-safe manner
func (h *Hub) GetClientCount() int {
	response := make(chan int)
	h.clientCount <- response
	return <-response
}

// Handler upgrades /ws?session=<id> connections. Unknown sessions are closed
// with a policy-violation frame.
func (h *Hub) Handler(registry *dashboard.Registry) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		s, ok := registry.Lookup(conn.Query("session"))
		if !ok {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown session"))
			_ = conn.Close()
			return
		}

		client := &Client{
			hub:     h,
			conn:    conn,
			session: s,
			send:    make(chan []byte, 64),
		}

		h.register <- client

		go client.writePump()
		client.readPump()
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var ev dashboard.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.reply(Message{Type: MessageError, Error: "invalid event payload"})
			continue
		}

		update, ok := c.session.Apply(ev)
		if !ok {
			continue
		}
		fig := update.Figure
		c.reply(Message{Type: MessageFigure, Widget: update.Widget, Figure: &fig})
	}
}

func (c *Client) reply(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logging.L().Warn("failed to encode realtime message", "type", msg.Type, "error", err)
		return
	}
	select {
	case c.hub.direct <- delivery{client: c, payload: payload}:
	default:
		logging.L().Warn("dropping realtime reply", "reason", "hub backlog")
	}
}

func (c *Client) writePump() {
	ticker := pingTickerFactory()
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C():
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			if c.session != nil {
				c.session.Touch()
			}
		}
	}
}
