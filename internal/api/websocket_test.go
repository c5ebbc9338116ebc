package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dialTestWS connects a real WebSocket client to the test server.
func dialTestWS(t *testing.T, srv *Server) (*websocket.Conn, func()) {
	t.Helper()

	ts := httptest.NewServer(srv.buildRouter())
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("websocket dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

// readServerMessage reads one message with a deadline so a broken
// broadcast fails the test instead of hanging it.
func readServerMessage(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	return msg
}

func TestHubBroadcastReachesClient(t *testing.T) {
	srv, _ := testServer(t)

	conn, cleanup := dialTestWS(t, srv)
	defer cleanup()

	// Registration happens in the upgrade handler before the pumps start,
	// but runs on the server goroutine; wait for it to land.
	waitForClients(t, srv.hub, 1)

	srv.hub.Broadcast(ChannelEventProcessed, map[string]string{"event_id": "evt-1"})

	msg := readServerMessage(t, conn)
	if msg.Type != "event" {
		t.Errorf("type = %q, want event", msg.Type)
	}
	if msg.Channel != ChannelEventProcessed {
		t.Errorf("channel = %q, want %q", msg.Channel, ChannelEventProcessed)
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	srv, _ := testServer(t)

	conn, cleanup := dialTestWS(t, srv)
	defer cleanup()
	waitForClients(t, srv.hub, 1)

	// Drop the default subscription.
	sub := clientMessage{Type: "unsubscribe", ID: "1", Channels: []string{ChannelEventProcessed}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("write unsubscribe: %v", err)
	}

	msg := readServerMessage(t, conn)
	if msg.Type != "ack" || msg.ID != "1" {
		t.Fatalf("reply = %+v, want ack with ID 1", msg)
	}

	srv.hub.Broadcast(ChannelEventProcessed, map[string]string{"event_id": "evt-2"})

	// The broadcast must not arrive; a ping round-trip would be next.
	if err := conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("received broadcast after unsubscribing")
	}
}

func TestHubPingPong(t *testing.T) {
	srv, _ := testServer(t)

	conn, cleanup := dialTestWS(t, srv)
	defer cleanup()
	waitForClients(t, srv.hub, 1)

	if err := conn.WriteJSON(clientMessage{Type: "ping", ID: "42"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	msg := readServerMessage(t, conn)
	if msg.Type != "pong" || msg.ID != "42" {
		t.Errorf("reply = %+v, want pong with ID 42", msg)
	}
}

func TestHubUnknownMessageType(t *testing.T) {
	srv, _ := testServer(t)

	conn, cleanup := dialTestWS(t, srv)
	defer cleanup()
	waitForClients(t, srv.hub, 1)

	if err := conn.WriteJSON(clientMessage{Type: "bogus", ID: "7"}); err != nil {
		t.Fatalf("write message: %v", err)
	}

	msg := readServerMessage(t, conn)
	if msg.Type != "error" {
		t.Errorf("reply type = %q, want error", msg.Type)
	}
}

func TestHubClientCountAfterDisconnect(t *testing.T) {
	srv, _ := testServer(t)

	conn, cleanup := dialTestWS(t, srv)
	waitForClients(t, srv.hub, 1)

	conn.Close()
	waitForClients(t, srv.hub, 0)
	cleanup()
}

func TestHubRunClosesConnections(t *testing.T) {
	srv, _ := testServer(t)

	hub := NewHub(srv.wsCfg, srv.logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after shutdown, want 0", hub.ClientCount())
	}
}

// waitForClients polls the hub until the expected client count is reached.
func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("ClientCount = %d, want %d", hub.ClientCount(), want)
}
