package mqtt

import "fmt"

// DefaultTopicPrefix is the base for all OrcheStream topics when the
// configuration does not override it.
const DefaultTopicPrefix = "orchestream"

// Topics provides builders for OrcheStream MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{Base: cfg.BaseTopic}
//	statusTopic := topics.BridgeStatus()
//	// Returns: "orchestream/bridge/status"
type Topics struct {
	// Base overrides the topic prefix. Empty means DefaultTopicPrefix.
	Base string
}

// prefix returns the effective topic prefix.
func (t Topics) prefix() string {
	if t.Base == "" {
		return DefaultTopicPrefix
	}
	return t.Base
}

// SystemStatus returns the service online/offline status topic. The
// Last Will and Testament is published here on unexpected disconnect.
//
// Example: orchestream/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.prefix())
}

// BridgeStatus returns the bridge health status topic.
//
// Example: orchestream/bridge/status
func (t Topics) BridgeStatus() string {
	return fmt.Sprintf("%s/bridge/status", t.prefix())
}

// BridgeCommands returns the topic for dispatched command events.
//
// Example: orchestream/bridge/commands
func (t Topics) BridgeCommands() string {
	return fmt.Sprintf("%s/bridge/commands", t.prefix())
}

// AllTopics returns a pattern matching all OrcheStream topics.
// Use with caution, this receives ALL traffic.
//
// Pattern: orchestream/#
func (t Topics) AllTopics() string {
	return t.prefix() + "/#"
}
