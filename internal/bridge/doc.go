// Package bridge wires the Art-Net receive path to Home Assistant.
//
// The Controller owns the pipeline lifecycle: it connects the
// automation client, discovers labelled entities into the mapping
// table, starts the Art-Net receiver, and runs a single dispatch
// goroutine that turns frames into service calls.
//
// Frames cross from the receive goroutine to the dispatcher through a
// depth-1 superseding slot: a frame arriving while one is already
// queued replaces it. DMX sources repeat full state continuously, so a
// newer frame always makes a stale one irrelevant.
//
// Dispatch applies a per-device throttle (default 50ms between commands
// to the same device, measured from the last successful dispatch) and a
// short pause between commands within a batch so the automation
// platform is not flooded.
//
// The optional HealthReporter publishes bridge status over MQTT, both
// periodically and on demand after status transitions.
package bridge
