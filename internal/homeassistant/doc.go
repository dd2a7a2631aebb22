// Package homeassistant implements the Home Assistant WebSocket API
// client used by OrcheStream to discover and command entities.
//
// The client speaks the JSON request/response protocol on
// /api/websocket: an auth handshake at connect time, then numbered
// requests with strictly increasing correlation ids. Exactly one request
// is in flight at a time; responses that do not carry the expected id
// are discarded until the matching one arrives or the response timeout
// expires.
//
// Usage:
//
//	client := homeassistant.NewClient(cfg.HomeAssistant, logger)
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	entities, err := client.GetEntitiesWithLabel(ctx, "orchestream")
//
// Thread Safety: all methods are safe for concurrent use; concurrent
// requests serialise on an internal mutex.
package homeassistant
