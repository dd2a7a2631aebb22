package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/orchestream/internal/bridge"
	"github.com/nerrad567/orchestream/internal/infrastructure/config"
	"github.com/nerrad567/orchestream/internal/infrastructure/logging"
)

func wsTestConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		MaxMessageSize: 65536,
		PingInterval:   30,
		PongTimeout:    60,
	}
}

// dialTestWS stands up a server with a live hub and dials a client.
func dialTestWS(t *testing.T) (*Server, *websocket.Conn) {
	t.Helper()

	srv, err := New(Deps{
		Config:  config.APIConfig{},
		WS:      wsTestConfig(),
		Logger:  logging.Default(),
		Bridge:  &fakeBridge{},
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv.hub = NewHub(srv.wsCfg, srv.logger)
	go srv.hub.Run(ctx)

	httpSrv := httptest.NewServer(srv.buildRouter())
	t.Cleanup(httpSrv.Close)

	wsAddr := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsAddr, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() }) //nolint:errcheck // Test cleanup

	return srv, conn
}

// readMessage reads one message with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // Test deadline
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading websocket message: %v", err)
	}
	return msg
}

func TestWebSocket_SubscribeAndBroadcast(t *testing.T) {
	srv, conn := dialTestWS(t)

	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{ChannelBridgeStatus}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("writing subscribe: %v", err)
	}

	resp := readMessage(t, conn)
	if resp.Type != WSTypeResponse || resp.ID != "1" {
		t.Fatalf("subscribe response = %+v", resp)
	}

	srv.hub.Broadcast(ChannelBridgeStatus, bridge.Status{Running: true, EntitiesLoaded: 3})

	event := readMessage(t, conn)
	if event.Type != WSTypeEvent || event.EventType != ChannelBridgeStatus {
		t.Fatalf("event = %+v", event)
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		t.Fatalf("re-marshalling payload: %v", err)
	}
	var status bridge.Status
	if err := json.Unmarshal(payload, &status); err != nil {
		t.Fatalf("decoding status payload: %v", err)
	}
	if !status.Running || status.EntitiesLoaded != 3 {
		t.Errorf("status = %+v", status)
	}
}

func TestWebSocket_UnsubscribedClientReceivesNothing(t *testing.T) {
	srv, conn := dialTestWS(t)

	srv.hub.Broadcast(ChannelBridgeStatus, bridge.Status{Running: true})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond)) //nolint:errcheck // Test deadline
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err == nil {
		t.Errorf("unsubscribed client received %+v", msg)
	}
}

func TestWebSocket_Ping(t *testing.T) {
	_, conn := dialTestWS(t)

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "7"}); err != nil {
		t.Fatalf("writing ping: %v", err)
	}

	resp := readMessage(t, conn)
	if resp.Type != WSTypePong || resp.ID != "7" {
		t.Errorf("pong = %+v", resp)
	}
}

func TestWebSocket_UnknownType(t *testing.T) {
	_, conn := dialTestWS(t)

	if err := conn.WriteJSON(WSMessage{Type: "bogus", ID: "9"}); err != nil {
		t.Fatalf("writing message: %v", err)
	}

	resp := readMessage(t, conn)
	if resp.Type != WSTypeError {
		t.Errorf("response = %+v, want error", resp)
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := NewHub(wsTestConfig(), logging.Default())
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

func TestWebSocket_BroadcastWaitsForRegistration(t *testing.T) {
	srv, conn := dialTestWS(t)

	// Registration happens in the upgrade handler before pumps start, so
	// the dial returning means the hub already tracks this client.
	deadline := time.Now().Add(time.Second)
	for srv.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if srv.hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", srv.hub.ClientCount())
	}
	_ = conn
}
