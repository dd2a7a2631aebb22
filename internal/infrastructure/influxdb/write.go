package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteCommandEvent records one dispatched (or throttled) command.
//
// This is the primary telemetry write for the bridge pipeline. The
// write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: The automation entity the command targeted (e.g., "light.kitchen")
//   - action: "activate" or "deactivate"
//   - throttled: Whether the per-device throttle suppressed the command
//
// Example:
//
//	client.WriteCommandEvent("light.kitchen", "activate", false)
func (c *Client) WriteCommandEvent(deviceID string, action string, throttled bool) {
	if !c.IsConnected() {
		return
	}

	dispatched := 1.0
	if throttled {
		dispatched = 0.0
	}

	point := write.NewPoint(
		"bridge_commands",
		map[string]string{
			"device_id": deviceID,
			"action":    action,
		},
		map[string]interface{}{
			"dispatched": dispatched,
			"throttled":  throttled,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBridgeStatus records a bridge status snapshot.
//
// Used for dashboarding pipeline health over time.
//
// Parameters:
//   - receiverActive: Whether the Art-Net listener is up
//   - automationConnected: Whether the Home Assistant session is up
//   - entitiesLoaded: Number of labelled entities under control
func (c *Client) WriteBridgeStatus(receiverActive, automationConnected bool, entitiesLoaded int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bridge_status",
		map[string]string{},
		map[string]interface{}{
			"receiver_active":      boolField(receiverActive),
			"automation_connected": boolField(automationConnected),
			"entities_loaded":      float64(entitiesLoaded),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteFrameStats records receive-path counters.
//
// Parameters:
//   - received: Total datagrams received
//   - accepted: Frames that passed change suppression
//   - suppressed: Frames identical to their predecessor
//   - parseErrors: Malformed datagrams
func (c *Client) WriteFrameStats(received, accepted, suppressed, parseErrors uint64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"frame_stats",
		map[string]string{},
		map[string]interface{}{
			"received":     float64(received),
			"accepted":     float64(accepted),
			"suppressed":   float64(suppressed),
			"parse_errors": float64(parseErrors),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "bridge-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}

// boolField converts a bool to the 0/1 float convention used for
// graphing boolean series.
func boolField(v bool) float64 {
	if v {
		return 1.0
	}
	return 0.0
}
