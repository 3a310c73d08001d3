package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, hub *Hub, agentID string) (*websocket.Conn, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleWebSocket(w, r, agentID)
	}))

	wsURL := "ws" + server.URL[4:]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("failed to connect: %v", err)
	}
	return conn, server
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	conn, server := dialHub(t, hub, "agent-7")
	defer server.Close()

	time.Sleep(100 * time.Millisecond)

	hub.mu.RLock()
	connections, exists := hub.connections["agent-7"]
	hub.mu.RUnlock()

	if !exists {
		t.Fatal("connection should be registered")
	}
	if len(connections) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(connections))
	}

	conn.Close()

	time.Sleep(100 * time.Millisecond)

	hub.mu.RLock()
	_, exists = hub.connections["agent-7"]
	hub.mu.RUnlock()

	if exists {
		t.Fatal("connection should be unregistered")
	}
}

func TestHub_BroadcastReachesAgent(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	conn, server := dialHub(t, hub, "agent-1")
	defer server.Close()
	defer conn.Close()

	time.Sleep(100 * time.Millisecond)

	hub.Broadcast("agent-1", &Message{
		Type:    "activity_appended",
		Channel: "account_activity#acc-1",
		Data:    map[string]interface{}{"event_id": "ev-1"},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "activity_appended" {
		t.Fatalf("expected activity_appended, got %q", msg.Type)
	}
	if msg.AgentID != "agent-1" {
		t.Fatalf("expected agent-1, got %q", msg.AgentID)
	}
}

func TestHub_BroadcastToOtherAgentNotDelivered(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	conn, server := dialHub(t, hub, "agent-1")
	defer server.Close()
	defer conn.Close()

	time.Sleep(100 * time.Millisecond)

	hub.Broadcast("agent-2", &Message{Type: "activity_appended", Data: nil})

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("agent-1 should not receive agent-2 messages")
	}
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	go hub.Run(ctx)

	conn, server := dialHub(t, hub, "agent-9")
	defer server.Close()
	defer conn.Close()

	time.Sleep(100 * time.Millisecond)

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected read error after hub shutdown")
	}
}
