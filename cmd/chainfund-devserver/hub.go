package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/chainfund/chainfund-go/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dev fixture: any origin may connect.
	CheckOrigin: func(*http.Request) bool { return true },
}

// hub fans platform events out to connected websocket clients. A client with
// no subscriptions receives everything; otherwise only events for campaigns
// it subscribed to, plus campaign-agnostic events.
type hub struct {
	log zerolog.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan stream.Event

	mu            sync.Mutex
	subscriptions map[string]struct{}
}

func newHub(log zerolog.Logger) *hub {
	return &hub{log: log, clients: make(map[*hubClient]struct{})}
}

// broadcast queues an event for every interested client. Slow clients are
// dropped rather than blocking the caller.
func (h *hub) broadcast(ev stream.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.wants(ev) {
			continue
		}
		select {
		case c.send <- ev:
		default:
			h.log.Warn().Msg("dropping slow stream client")
			close(c.send)
			delete(h.clients, c)
		}
	}
}

func (c *hubClient) wants(ev stream.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subscriptions) == 0 || ev.CampaignID == "" {
		return true
	}
	_, ok := c.subscriptions[ev.CampaignID]
	return ok
}

// handleStream upgrades the connection and runs the client until it leaves.
func (h *hub) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("stream upgrade failed")
		return
	}

	client := &hubClient{
		conn:          conn,
		send:          make(chan stream.Event, 16),
		subscriptions: make(map[string]struct{}),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(client)
	h.readLoop(client)
}

func (h *hub) readLoop(c *hubClient) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			close(c.send)
			delete(h.clients, c)
		}
		h.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.conn.SetPingHandler(func(data string) error {
		c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return c.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var msg struct {
			Action     string `json:"action"`
			CampaignID string `json:"campaign_id"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		c.mu.Lock()
		switch msg.Action {
		case "subscribe":
			if msg.CampaignID != "" {
				c.subscriptions[msg.CampaignID] = struct{}{}
			}
		case "unsubscribe":
			delete(c.subscriptions, msg.CampaignID)
		}
		c.mu.Unlock()
	}
}

func (h *hub) writeLoop(c *hubClient) {
	for ev := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteJSON(ev); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
}
