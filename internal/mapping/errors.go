package mapping

import "errors"

// Sentinel errors for the mapping package.
var (
	// ErrChannelRange indicates a channel span that leaves 1..512.
	ErrChannelRange = errors.New("mapping: channel out of range")

	// ErrChannelConflict indicates a span that overlaps another device's channels.
	ErrChannelConflict = errors.New("mapping: channel conflict")

	// ErrInvalidType indicates a device type that cannot be mapped.
	ErrInvalidType = errors.New("mapping: invalid device type")

	// ErrStoreFailed indicates the backing store rejected a load or save.
	ErrStoreFailed = errors.New("mapping: store operation failed")
)
