package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{}

func TestNew_EndpointDerivation(t *testing.T) {
	cases := []struct {
		baseURL string
		want    string
	}{
		{"http://localhost:8000", "ws://localhost:8000/api/v1/stream"},
		{"https://api.example.com/", "wss://api.example.com/api/v1/stream"},
		{"ws://localhost:8000", "ws://localhost:8000/api/v1/stream"},
	}
	for _, tc := range cases {
		c, err := New(tc.baseURL, nil)
		if err != nil {
			t.Fatalf("New(%q) error = %v", tc.baseURL, err)
		}
		if c.endpoint != tc.want {
			t.Errorf("New(%q) endpoint = %q, want %q", tc.baseURL, c.endpoint, tc.want)
		}
	}

	if _, err := New("ftp://example.com", nil); err == nil {
		t.Error("New() with ftp scheme expected error")
	}
}

func TestClient_SubscribeAndReceive(t *testing.T) {
	events := make(chan Event, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/stream" {
			http.NotFound(w, r)
			return
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		// Wait for the subscribe message, then broadcast one event.
		var sub subscription
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscription: %v", err)
			return
		}
		if sub.Action != "subscribe" || sub.CampaignID != "camp1" {
			t.Errorf("subscription = %+v", sub)
		}

		payload, _ := json.Marshal(map[string]any{"amount": 50.0})
		conn.WriteJSON(Event{
			Type:       EventCampaignFunded,
			CampaignID: "camp1",
			Payload:    payload,
		})

		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client, err := New(srv.URL, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	client.OnEvent(func(ev Event) { events <- ev })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.Subscribe("camp1"); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case ev := <-events:
		if ev.Type != EventCampaignFunded {
			t.Errorf("event type = %q, want %q", ev.Type, EventCampaignFunded)
		}
		if ev.CampaignID != "camp1" {
			t.Errorf("campaign id = %q, want camp1", ev.CampaignID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

// Subscribe and the ping loop write to the same connection; the websocket
// permits only one concurrent writer, so both must go through the client
// mutex. Run with a fast ping interval and many subscribers to catch any
// unserialized write.
func TestClient_ConcurrentSubscribeAndPings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client, err := New(srv.URL, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	client.pingInterval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := client.Subscribe("camp1"); err != nil {
					t.Errorf("Subscribe() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestClient_SubscribeBeforeConnect(t *testing.T) {
	client, err := New("http://localhost:8000", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := client.Subscribe("camp1"); err == nil {
		t.Error("Subscribe() before Connect expected error")
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	client, err := New("http://localhost:8000", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
