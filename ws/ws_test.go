package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer upgrades every request and echoes text frames back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(kind, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestManagerOpen_RequiresURL(t *testing.T) {
	t.Parallel()

	manager := NewManager()

	_, err := manager.Open(context.Background(), "events", Config{})

	if err == nil || err.Error() != "socket URL must be set" {
		t.Errorf("expected URL error, got %v", err)
	}
}

func TestManagerOpen_DuplicateName(t *testing.T) {
	t.Parallel()

	server := echoServer(t)
	manager := NewManager()
	defer manager.CloseAll()

	if _, err := manager.Open(context.Background(), "events", Config{URL: wsURL(server)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := manager.Open(context.Background(), "events", Config{URL: wsURL(server)})

	if err == nil || !strings.Contains(err.Error(), "already open") {
		t.Errorf("expected duplicate name error, got %v", err)
	}
}

func TestManagerGet(t *testing.T) {
	t.Parallel()

	server := echoServer(t)
	manager := NewManager()
	defer manager.CloseAll()

	opened, err := manager.Open(context.Background(), "events", Config{URL: wsURL(server)})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := manager.Get("events")
	if !ok || got != opened {
		t.Error("expected Get to return the opened socket")
	}
	if got.Name() != "events" {
		t.Errorf("unexpected socket name %q", got.Name())
	}

	if _, ok := manager.Get("missing"); ok {
		t.Error("expected Get to miss for unknown names")
	}
}

func TestManagerClose_RemovesSocket(t *testing.T) {
	t.Parallel()

	server := echoServer(t)
	manager := NewManager()

	if _, err := manager.Open(context.Background(), "events", Config{URL: wsURL(server)}); err != nil {
		t.Fatal(err)
	}

	manager.Close("events")

	if _, ok := manager.Get("events"); ok {
		t.Error("expected socket removed from the registry")
	}

	// Closing an unknown name is a no-op.
	manager.Close("events")
}

func TestSocket_EchoRoundTrip(t *testing.T) {
	t.Parallel()

	server := echoServer(t)
	manager := NewManager()
	defer manager.CloseAll()

	received := make(chan []byte, 1)
	socket, err := manager.Open(context.Background(), "events", Config{
		URL: wsURL(server),
		OnMessage: func(name string, data []byte) {
			received <- data
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	// The dial happens in the background; retry until the socket is up.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := socket.Send([]byte("ping")); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("socket never connected")
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case data := <-received:
		if string(data) != "ping" {
			t.Errorf("expected ping echoed back, got %q", data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for echo")
	}
}

func TestSocket_SendWhileDisconnected(t *testing.T) {
	t.Parallel()

	socket := &Socket{name: "events"}

	if err := socket.Send([]byte("ping")); err == nil {
		t.Error("expected error while disconnected")
	}
}

func TestSocket_GivesUpAfterMaxReconnects(t *testing.T) {
	t.Parallel()

	manager := NewManager()
	defer manager.CloseAll()

	// Nothing listens on this address, so every dial fails fast.
	socket, err := manager.Open(context.Background(), "events", Config{
		URL:           "ws://127.0.0.1:1/ws",
		ReconnectWait: 10 * time.Millisecond,
		MaxReconnects: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-socket.done:
	case <-time.After(5 * time.Second):
		t.Fatal("socket never gave up")
	}
}

func TestSocket_ReconnectsAfterDrop(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	dials := 0
	dropFirst := true

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		mu.Lock()
		dials++
		drop := dropFirst
		dropFirst = false
		mu.Unlock()

		if drop {
			conn.Close()
			return
		}

		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	manager := NewManager()
	defer manager.CloseAll()

	_, err := manager.Open(context.Background(), "events", Config{
		URL:           wsURL(server),
		ReconnectWait: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		count := dials
		mu.Unlock()
		if count >= 2 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected a redial, saw %d dials", count)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		failures int
		wait     time.Duration
		maxWait  time.Duration
		expected time.Duration
	}{
		{"first failure", 1, 500 * time.Millisecond, 30 * time.Second, 500 * time.Millisecond},
		{"second failure", 2, 500 * time.Millisecond, 30 * time.Second, time.Second},
		{"third failure", 3, 500 * time.Millisecond, 30 * time.Second, 2 * time.Second},
		{"capped", 10, 500 * time.Millisecond, 30 * time.Second, 30 * time.Second},
		{"overflow caps", 200, 500 * time.Millisecond, 30 * time.Second, 30 * time.Second},
		{"zero failures", 0, 500 * time.Millisecond, 30 * time.Second, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := backoffDelay(tt.failures, tt.wait, tt.maxWait); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
