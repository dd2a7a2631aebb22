package bridge

import "errors"

// Sentinel errors for the bridge package.
var (
	// ErrAlreadyRunning indicates Start on a running bridge.
	ErrAlreadyRunning = errors.New("bridge: already running")

	// ErrNotRunning indicates an operation that needs a running bridge.
	ErrNotRunning = errors.New("bridge: not running")

	// ErrMissingDependency indicates a Controller was built without a
	// required collaborator.
	ErrMissingDependency = errors.New("bridge: missing dependency")

	// ErrConnectFailed indicates the automation platform connection failed.
	ErrConnectFailed = errors.New("bridge: automation connect failed")

	// ErrDiscoveryFailed indicates entity discovery failed during start or refresh.
	ErrDiscoveryFailed = errors.New("bridge: entity discovery failed")
)
