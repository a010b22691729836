// Package stream delivers live campaign events (funding, votes, milestone
// status changes) over a websocket connection to the backend.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Event types broadcast by the backend.
const (
	EventCampaignFunded  = "campaign_funded"
	EventMilestoneVote   = "milestone_vote"
	EventMilestoneStatus = "milestone_status"
	EventCampaignCreated = "campaign_created"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Event is one live platform event. Payload carries the event-specific body.
type Event struct {
	Type       string          `json:"type"`
	CampaignID string          `json:"campaign_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Timestamp  string          `json:"timestamp,omitempty"`
}

// subscription is the client-to-server control message.
type subscription struct {
	Action     string `json:"action"`
	CampaignID string `json:"campaign_id,omitempty"`
}

// Client is a websocket subscriber for campaign events. Register handlers
// with OnEvent before Connect; handlers run sequentially on the reader
// goroutine.
type Client struct {
	endpoint     string
	log          zerolog.Logger
	pingInterval time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers []func(Event)
	done     chan struct{}
	closed   bool
}

// New creates a stream client for the backend at baseURL. The http/https
// scheme is swapped for ws/wss and the stream path appended.
func New(baseURL string, logger *zerolog.Logger) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("stream: invalid base URL %q", baseURL)
	}

	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("stream: unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/api/v1/stream"

	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}

	return &Client{endpoint: parsed.String(), log: log, pingInterval: pingPeriod}, nil
}

// OnEvent registers a handler for every received event.
func (c *Client) OnEvent(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, fn)
}

// Connect dials the stream endpoint and starts the reader and heartbeat
// goroutines. Call once per client.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return fmt.Errorf("stream: already connected")
	}
	if c.closed {
		return fmt.Errorf("stream: client closed")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("stream: dial %s: %w", c.endpoint, err)
	}

	c.conn = conn
	c.done = make(chan struct{})

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readLoop(conn)
	go c.heartbeat(conn, c.done)
	return nil
}

// Subscribe asks the backend to deliver events for one campaign. An empty
// campaignID subscribes to the platform-wide feed.
func (c *Client) Subscribe(campaignID string) error {
	return c.send(subscription{Action: "subscribe", CampaignID: campaignID})
}

// Unsubscribe stops delivery for one campaign.
func (c *Client) Unsubscribe(campaignID string) error {
	return c.send(subscription{Action: "unsubscribe", CampaignID: campaignID})
}

func (c *Client) send(msg subscription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("stream: not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn().Err(err).Msg("stream read failed")
			}
			return
		}

		c.mu.Lock()
		handlers := make([]func(Event), len(c.handlers))
		copy(handlers, c.handlers)
		c.mu.Unlock()

		for _, fn := range handlers {
			fn(event)
		}
	}
}

// heartbeat pings the server so the connection survives idle periods. Pings
// share c.mu with send and Close: the websocket allows one writer at a time.
func (c *Client) heartbeat(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.ping(conn); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (c *Client) ping(conn *websocket.Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("stream: client closed")
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.PingMessage, nil)
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.done != nil {
		close(c.done)
	}
	if c.conn == nil {
		return nil
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}
