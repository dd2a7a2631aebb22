package homeassistant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/orchestream/internal/infrastructure/config"
	"github.com/nerrad567/orchestream/internal/infrastructure/logging"
)

// fakeHA is a scripted Home Assistant WebSocket endpoint.
//
// It performs the auth handshake against wantToken, then passes every
// request to serve. serve is responsible for writing responses.
type fakeHA struct {
	srv       *httptest.Server
	wantToken string
	serve     func(conn *websocket.Conn, req map[string]any)
}

func newFakeHA(t *testing.T, wantToken string, serve func(conn *websocket.Conn, req map[string]any)) *fakeHA {
	t.Helper()

	f := &fakeHA{wantToken: wantToken, serve: serve}
	upgrader := websocket.Upgrader{}

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/websocket" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close() //nolint:errcheck // Test server cleanup

		if err := conn.WriteJSON(map[string]any{"type": "auth_required", "ha_version": "2025.8.0"}); err != nil {
			return
		}

		var auth map[string]any
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		if auth["access_token"] != f.wantToken {
			conn.WriteJSON(map[string]any{"type": "auth_invalid", "message": "Invalid access token"}) //nolint:errcheck
			return
		}
		if err := conn.WriteJSON(map[string]any{"type": "auth_ok", "ha_version": "2025.8.0"}); err != nil {
			return
		}

		for {
			var req map[string]any
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if f.serve != nil {
				f.serve(conn, req)
			}
		}
	}))
	t.Cleanup(f.srv.Close)

	return f
}

// respondOK writes a success result for a request.
func respondOK(conn *websocket.Conn, req map[string]any, result any) {
	conn.WriteJSON(map[string]any{ //nolint:errcheck // Test server
		"id":      req["id"],
		"type":    "result",
		"success": true,
		"result":  result,
	})
}

func newTestClient(url string) *Client {
	return NewClient(config.HomeAssistantConfig{
		URL:             url,
		Token:           "valid-token",
		Label:           "orchestream",
		ResponseTimeout: 1,
	}, logging.Default())
}

func connectTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client := newTestClient(url)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func TestClient_Connect(t *testing.T) {
	fake := newFakeHA(t, "valid-token", nil)

	client := connectTestClient(t, fake.srv.URL)
	if !client.Connected() {
		t.Error("Connected() = false after successful handshake")
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.Connected() {
		t.Error("Connected() = true after Close")
	}
}

func TestClient_ConnectAuthInvalid(t *testing.T) {
	fake := newFakeHA(t, "other-token", nil)

	client := newTestClient(fake.srv.URL)
	err := client.Connect(context.Background())
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("Connect() error = %v, want ErrAuthFailed", err)
	}
	if client.Connected() {
		t.Error("Connected() = true after failed auth")
	}
}

func TestClient_RequestBeforeConnect(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	if _, err := client.GetStates(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("GetStates() error = %v, want ErrNotConnected", err)
	}
}

func TestClient_GetStates(t *testing.T) {
	fake := newFakeHA(t, "valid-token", func(conn *websocket.Conn, req map[string]any) {
		if req["type"] != "get_states" {
			respondOK(conn, req, nil)
			return
		}
		respondOK(conn, req, []map[string]any{
			{"entity_id": "light.kitchen", "state": "on", "attributes": map[string]any{"friendly_name": "Kitchen"}},
			{"entity_id": "switch.fan", "state": "off", "attributes": map[string]any{}},
		})
	})

	client := connectTestClient(t, fake.srv.URL)

	states, err := client.GetStates(context.Background())
	if err != nil {
		t.Fatalf("GetStates() error = %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("GetStates() returned %d entities, want 2", len(states))
	}
	if states[0].EntityID != "light.kitchen" || states[0].FriendlyName() != "Kitchen" {
		t.Errorf("states[0] = %+v", states[0])
	}
	if states[1].FriendlyName() != "switch.fan" {
		t.Errorf("FriendlyName fallback = %q, want entity id", states[1].FriendlyName())
	}
}

func TestClient_CorrelationDiscardsStrayMessages(t *testing.T) {
	var receivedIDs []int64

	fake := newFakeHA(t, "valid-token", func(conn *websocket.Conn, req map[string]any) {
		id := int64(req["id"].(float64))
		receivedIDs = append(receivedIDs, id)

		// A stale reply from some earlier request arrives first
		conn.WriteJSON(map[string]any{ //nolint:errcheck // Test server
			"id": 9999, "type": "result", "success": true,
		})
		respondOK(conn, req, []map[string]any{})
	})

	client := connectTestClient(t, fake.srv.URL)
	ctx := context.Background()

	if _, err := client.GetStates(ctx); err != nil {
		t.Fatalf("first GetStates() error = %v", err)
	}
	if _, err := client.GetStates(ctx); err != nil {
		t.Fatalf("second GetStates() error = %v", err)
	}

	// Correlation ids are strictly increasing across requests
	if len(receivedIDs) != 2 || receivedIDs[1] <= receivedIDs[0] {
		t.Errorf("request ids = %v, want strictly increasing", receivedIDs)
	}
}

func TestClient_ResponseTimeout(t *testing.T) {
	fake := newFakeHA(t, "valid-token", func(conn *websocket.Conn, req map[string]any) {
		// Never respond
	})

	client := connectTestClient(t, fake.srv.URL)

	start := time.Now()
	_, err := client.GetStates(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("GetStates() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout took %v, want about 1s", elapsed)
	}
}

func TestClient_RequestFailure(t *testing.T) {
	fake := newFakeHA(t, "valid-token", func(conn *websocket.Conn, req map[string]any) {
		conn.WriteJSON(map[string]any{ //nolint:errcheck // Test server
			"id":      req["id"],
			"type":    "result",
			"success": false,
			"error":   map[string]any{"code": "unknown_command", "message": "no such thing"},
		})
	})

	client := connectTestClient(t, fake.srv.URL)

	_, err := client.GetStates(context.Background())
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("GetStates() error = %v, want ErrRequestFailed", err)
	}
}

func TestClient_GetEntitiesWithLabel(t *testing.T) {
	fake := newFakeHA(t, "valid-token", func(conn *websocket.Conn, req map[string]any) {
		switch req["type"] {
		case "get_states":
			respondOK(conn, req, []map[string]any{
				{"entity_id": "light.tagged", "state": "on", "attributes": map[string]any{}},
				{"entity_id": "light.plain", "state": "on", "attributes": map[string]any{}},
				{"entity_id": "light.legacy", "state": "on", "attributes": map[string]any{
					"labels": []any{"orchestream"},
				}},
			})
		case "config/entity_registry/get":
			switch req["entity_id"] {
			case "light.tagged":
				respondOK(conn, req, map[string]any{
					"entity_id": "light.tagged",
					"labels":    []any{"orchestream", "upstairs"},
				})
			case "light.plain":
				respondOK(conn, req, map[string]any{
					"entity_id": "light.plain",
					"labels":    []any{},
				})
			default:
				// Registry has no entry: force the attribute fallback
				conn.WriteJSON(map[string]any{ //nolint:errcheck // Test server
					"id": req["id"], "type": "result", "success": false,
					"error": map[string]any{"code": "not_found", "message": "Entity not found"},
				})
			}
		}
	})

	client := connectTestClient(t, fake.srv.URL)

	entities, err := client.GetEntitiesWithLabel(context.Background(), "orchestream")
	if err != nil {
		t.Fatalf("GetEntitiesWithLabel() error = %v", err)
	}

	if len(entities) != 2 {
		t.Fatalf("matched %d entities, want 2: %+v", len(entities), entities)
	}
	// Discovery order preserved
	if entities[0].EntityID != "light.tagged" || entities[1].EntityID != "light.legacy" {
		t.Errorf("matched = [%s %s], want [light.tagged light.legacy]",
			entities[0].EntityID, entities[1].EntityID)
	}
}

func TestClient_CallService(t *testing.T) {
	type captured struct {
		domain  string
		service string
		data    map[string]any
	}
	var calls []captured

	fake := newFakeHA(t, "valid-token", func(conn *websocket.Conn, req map[string]any) {
		if req["type"] == "call_service" {
			calls = append(calls, captured{
				domain:  req["domain"].(string),
				service: req["service"].(string),
				data:    req["service_data"].(map[string]any),
			})
		}
		respondOK(conn, req, nil)
	})

	client := connectTestClient(t, fake.srv.URL)
	ctx := context.Background()

	if err := client.TurnOn(ctx, "light.kitchen", map[string]any{"brightness": 128}); err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	if err := client.TurnOff(ctx, "switch.fan"); err != nil {
		t.Fatalf("TurnOff() error = %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("captured %d calls, want 2", len(calls))
	}

	on := calls[0]
	if on.domain != "light" || on.service != "turn_on" {
		t.Errorf("first call = %s.%s, want light.turn_on", on.domain, on.service)
	}
	if on.data["entity_id"] != "light.kitchen" {
		t.Errorf("entity_id = %v, want light.kitchen", on.data["entity_id"])
	}
	if on.data["brightness"] != float64(128) {
		t.Errorf("brightness = %v, want 128", on.data["brightness"])
	}

	off := calls[1]
	if off.domain != "switch" || off.service != "turn_off" {
		t.Errorf("second call = %s.%s, want switch.turn_off", off.domain, off.service)
	}
}

func TestWSURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		want    string
		wantErr bool
	}{
		{"http", "http://ha.local:8123", "ws://ha.local:8123/api/websocket", false},
		{"https", "https://ha.example.com", "wss://ha.example.com/api/websocket", false},
		{"trailing slash", "http://ha.local:8123/", "ws://ha.local:8123/api/websocket", false},
		{"already ws", "ws://ha.local:8123", "ws://ha.local:8123/api/websocket", false},
		{"bad scheme", "ftp://ha.local", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := wsURL(tt.base)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wsURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("wsURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
