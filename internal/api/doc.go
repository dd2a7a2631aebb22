// Package api implements the admin HTTP REST API and WebSocket server
// for OrcheStream.
//
// This package provides:
//   - REST endpoints for bridge lifecycle control and mapping management
//   - Live DMX channel inspection for troubleshooting
//   - WebSocket hub for real-time bridge status broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits beside the bridge controller: it starts and stops
// the pipeline, edits the channel mapping table, and relays status
// transitions to WebSocket subscribers. It never sits in the frame
// dispatch path, so a slow admin client cannot stall lighting.
//
// # Graceful Degradation
//
// The server operates while the bridge is stopped. Mapping reads and
// WebSocket connections keep working, only operations that need a
// running pipeline return errors.
package api
