package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/orchestream/internal/infrastructure/config"
	"github.com/nerrad567/orchestream/internal/infrastructure/logging"
)

// Connection constants.
const (
	// wsPath is the Home Assistant WebSocket API endpoint.
	wsPath = "/api/websocket"

	// handshakeTimeout bounds the WebSocket dial and auth exchange.
	handshakeTimeout = 10 * time.Second
)

// Client is a Home Assistant WebSocket API client.
//
// Requests carry strictly increasing correlation ids and run one at a
// time; the id counter survives across requests for the life of the
// client. A response timeout bounds every exchange so a dropped
// response cannot wedge the pipeline.
type Client struct {
	cfg             config.HomeAssistantConfig
	logger          *logging.Logger
	responseTimeout time.Duration

	// connMu guards conn and connected.
	connMu    sync.RWMutex
	conn      *websocket.Conn
	connected bool

	// reqMu serialises requests: exactly one in flight.
	reqMu  sync.Mutex
	nextID int64

	requestsSent   atomic.Uint64
	requestsFailed atomic.Uint64
}

// NewClient creates a client for the given configuration.
// The connection is not established until Connect is called.
func NewClient(cfg config.HomeAssistantConfig, logger *logging.Logger) *Client {
	timeout := time.Duration(cfg.ResponseTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:             cfg,
		logger:          logger.With("component", "homeassistant"),
		responseTimeout: timeout,
	}
}

// Connect dials the WebSocket endpoint and performs the auth handshake.
//
// The handshake is: receive auth_required, send the access token,
// receive auth_ok. Any other reply (including auth_invalid) fails the
// connect and closes the socket.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.connected {
		return nil
	}

	endpoint, err := wsURL(c.cfg.URL)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w: dialing %s: %s: %w", ErrNotConnected, endpoint, resp.Status, err)
		}
		return fmt.Errorf("%w: dialing %s: %w", ErrNotConnected, endpoint, err)
	}

	if err := c.authenticate(conn); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup on error path
		return err
	}

	c.conn = conn
	c.connected = true

	c.logger.Info("connected to home assistant", "url", endpoint)
	return nil
}

// authenticate runs the auth handshake on a fresh connection.
func (c *Client) authenticate(conn *websocket.Conn) error {
	deadline := time.Now().Add(handshakeTimeout)

	var hello serverMessage
	if err := readJSON(conn, deadline, &hello); err != nil {
		return fmt.Errorf("%w: reading auth_required: %w", ErrAuthFailed, err)
	}
	if hello.Type != msgAuthRequired {
		return fmt.Errorf("%w: unexpected greeting %q", ErrAuthFailed, hello.Type)
	}

	if err := writeJSON(conn, deadline, authMessage{Type: msgAuth, AccessToken: c.cfg.Token}); err != nil {
		return fmt.Errorf("%w: sending token: %w", ErrAuthFailed, err)
	}

	var verdict serverMessage
	if err := readJSON(conn, deadline, &verdict); err != nil {
		return fmt.Errorf("%w: reading auth result: %w", ErrAuthFailed, err)
	}
	if verdict.Type != msgAuthOK {
		return fmt.Errorf("%w: %s %s", ErrAuthFailed, verdict.Type, verdict.Message)
	}

	return nil
}

// Close shuts the connection down. Safe to call on a closed client.
func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false

	conn := c.conn
	c.conn = nil

	// Best effort close frame; the peer may already be gone.
	_ = conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))

	if err := conn.Close(); err != nil {
		return fmt.Errorf("closing connection: %w", err)
	}

	c.logger.Info("disconnected from home assistant")
	return nil
}

// Connected reports the last known connection state.
func (c *Client) Connected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

// GetStates fetches the state of every entity.
func (c *Client) GetStates(ctx context.Context) ([]Entity, error) {
	result, err := c.sendRequest(ctx, map[string]any{"type": "get_states"})
	if err != nil {
		return nil, err
	}

	var entities []Entity
	if err := json.Unmarshal(result, &entities); err != nil {
		return nil, fmt.Errorf("decoding states: %w", err)
	}
	return entities, nil
}

// GetEntitiesWithLabel returns entities carrying the given label, in
// discovery order.
//
// The entity registry is the authoritative label source. When a
// registry lookup fails for an entity (older installs, helper
// entities), the client falls back to scanning the entity's attributes
// for a labels list or a label substring.
func (c *Client) GetEntitiesWithLabel(ctx context.Context, label string) ([]Entity, error) {
	states, err := c.GetStates(ctx)
	if err != nil {
		return nil, err
	}

	var matched []Entity
	for _, e := range states {
		entry, err := c.registryEntry(ctx, e.EntityID)
		if err != nil {
			if attributesCarryLabel(e, label) {
				matched = append(matched, e)
			}
			continue
		}
		for _, l := range entry.Labels {
			if l == label {
				matched = append(matched, e)
				break
			}
		}
	}

	c.logger.Info("label discovery complete", "label", label, "matched", len(matched))
	return matched, nil
}

// registryEntry fetches the entity registry entry for one entity.
func (c *Client) registryEntry(ctx context.Context, entityID string) (*registryEntry, error) {
	result, err := c.sendRequest(ctx, map[string]any{
		"type":      "config/entity_registry/get",
		"entity_id": entityID,
	})
	if err != nil {
		return nil, err
	}

	var entry registryEntry
	if err := json.Unmarshal(result, &entry); err != nil {
		return nil, fmt.Errorf("decoding registry entry: %w", err)
	}
	return &entry, nil
}

// attributesCarryLabel is the registry-less fallback: a labels attribute
// containing the label, or the label appearing anywhere in the
// marshalled attributes.
func attributesCarryLabel(e Entity, label string) bool {
	if raw, ok := e.Attributes["labels"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok && s == label {
				return true
			}
		}
	}

	blob, err := json.Marshal(e.Attributes)
	if err != nil {
		return false
	}
	return strings.Contains(string(blob), label)
}

// CallService invokes a Home Assistant service against one entity.
//
// An empty domain is derived from the entity id prefix. Extra service
// data fields are passed through alongside the entity id.
func (c *Client) CallService(ctx context.Context, domain, service, entityID string, data map[string]any) error {
	if domain == "" {
		domain, _, _ = strings.Cut(entityID, ".")
	}

	serviceData := map[string]any{"entity_id": entityID}
	for k, v := range data {
		serviceData[k] = v
	}

	_, err := c.sendRequest(ctx, map[string]any{
		"type":         "call_service",
		"domain":       domain,
		"service":      service,
		"service_data": serviceData,
	})
	return err
}

// TurnOn calls the turn_on service for an entity with optional service data.
func (c *Client) TurnOn(ctx context.Context, entityID string, data map[string]any) error {
	return c.CallService(ctx, "", "turn_on", entityID, data)
}

// TurnOff calls the turn_off service for an entity.
func (c *Client) TurnOff(ctx context.Context, entityID string) error {
	return c.CallService(ctx, "", "turn_off", entityID, nil)
}

// Stats returns request counters.
func (c *Client) Stats() (sent, failed uint64) {
	return c.requestsSent.Load(), c.requestsFailed.Load()
}

// sendRequest performs one correlated request/response exchange.
//
// The request mutex serialises callers, so the correlation loop only
// ever has one expected id. Responses with other ids are stale replies
// from timed-out requests and are discarded with a debug log.
func (c *Client) sendRequest(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	c.connMu.RLock()
	conn := c.conn
	connected := c.connected
	c.connMu.RUnlock()

	if !connected || conn == nil {
		return nil, ErrNotConnected
	}

	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	c.nextID++
	id := c.nextID
	payload["id"] = id

	deadline := time.Now().Add(c.responseTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	c.requestsSent.Add(1)

	if err := writeJSON(conn, deadline, payload); err != nil {
		c.requestsFailed.Add(1)
		c.markDisconnected()
		return nil, fmt.Errorf("%w: writing request: %w", ErrNotConnected, err)
	}

	for {
		var msg serverMessage
		if err := readJSON(conn, deadline, &msg); err != nil {
			c.requestsFailed.Add(1)
			if isTimeout(err) {
				return nil, fmt.Errorf("%w: request %d", ErrTimeout, id)
			}
			c.markDisconnected()
			return nil, fmt.Errorf("%w: reading response: %w", ErrNotConnected, err)
		}

		if msg.ID != id {
			c.logger.Debug("discarding unmatched message",
				"got_id", msg.ID,
				"want_id", id,
				"type", msg.Type,
			)
			continue
		}

		if msg.Success != nil && !*msg.Success {
			c.requestsFailed.Add(1)
			if msg.Error != nil {
				return nil, fmt.Errorf("%w: %s: %s", ErrRequestFailed, msg.Error.Code, msg.Error.Message)
			}
			return nil, ErrRequestFailed
		}

		return msg.Result, nil
	}
}

// markDisconnected flips the connection state after a transport fault.
func (c *Client) markDisconnected() {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()
}

// wsURL converts the configured HTTP base URL into the WebSocket endpoint.
func wsURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrBadURL, base, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrBadURL, u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + wsPath
	return u.String(), nil
}

// readJSON reads one JSON message with a deadline.
func readJSON(conn *websocket.Conn, deadline time.Time, v any) error {
	if err := conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	return conn.ReadJSON(v)
}

// writeJSON writes one JSON message with a deadline.
func writeJSON(conn *websocket.Conn, deadline time.Time, v any) error {
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// isTimeout reports whether err is a network timeout.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
