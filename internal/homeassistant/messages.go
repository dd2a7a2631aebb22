package homeassistant

import "encoding/json"

// Handshake and response message types on the wire.
const (
	msgAuthRequired = "auth_required"
	msgAuth         = "auth"
	msgAuthOK       = "auth_ok"
	msgAuthInvalid  = "auth_invalid"
	msgResult       = "result"
)

// Entity is one entity state as returned by get_states.
type Entity struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// FriendlyName returns the friendly_name attribute, falling back to the
// entity id.
func (e Entity) FriendlyName() string {
	if name, ok := e.Attributes["friendly_name"].(string); ok && name != "" {
		return name
	}
	return e.EntityID
}

// authMessage is the client half of the auth handshake.
type authMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token,omitempty"`
}

// serverMessage is the envelope for everything Home Assistant sends.
// Result payloads stay raw until the caller knows their shape.
type serverMessage struct {
	ID      int64           `json:"id"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *serverError    `json:"error,omitempty"`

	// HAVersion is only present on auth_required / auth_ok.
	HAVersion string `json:"ha_version,omitempty"`

	// Message is only present on auth_invalid.
	Message string `json:"message,omitempty"`
}

// serverError is the error object inside a failed result.
type serverError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// registryEntry is the slice of a config/entity_registry/get result the
// client cares about.
type registryEntry struct {
	EntityID string   `json:"entity_id"`
	Labels   []string `json:"labels"`
}
