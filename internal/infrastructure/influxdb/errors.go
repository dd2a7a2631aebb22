package influxdb

import "errors"

// Sentinel errors, matched with errors.Is.
var (
	// ErrDisabled indicates the InfluxDB integration is off in config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed indicates the initial ping failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected indicates the client has been closed or never
	// connected.
	ErrNotConnected = errors.New("influxdb: not connected")
)
