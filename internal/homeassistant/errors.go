package homeassistant

import "errors"

// Sentinel errors for the homeassistant package.
var (
	// ErrNotConnected indicates an operation on a closed or failed connection.
	ErrNotConnected = errors.New("homeassistant: not connected")

	// ErrAuthFailed indicates the access token was rejected during the handshake.
	ErrAuthFailed = errors.New("homeassistant: authentication failed")

	// ErrTimeout indicates no matching response arrived within the response timeout.
	ErrTimeout = errors.New("homeassistant: response timeout")

	// ErrRequestFailed indicates Home Assistant answered with success=false.
	ErrRequestFailed = errors.New("homeassistant: request failed")

	// ErrBadURL indicates the configured base URL could not be parsed.
	ErrBadURL = errors.New("homeassistant: invalid base URL")
)
