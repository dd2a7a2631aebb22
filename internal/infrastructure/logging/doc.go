// Package logging wraps log/slog into the one logger OrcheStream uses
// everywhere.
//
// Every entry carries the service name and build version as default
// fields, so logs from multiple deployments can be separated after
// aggregation. Format, level, and destination come from config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json for collectors, text for a terminal
//	  output: "stdout"   # stdout, stderr, or a file path
//
// File destinations are opened append-only with 0600 permissions; if
// the file cannot be opened the logger falls back to stderr rather
// than failing startup.
//
// Typical use:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("artnet receiver listening", "port", 6454)
//	logger.Error("dispatch failed", "entity_id", id, "error", err)
//
// Keep secrets out of log fields. Home Assistant tokens and broker
// passwords must never appear in an entry, truncated or otherwise.
package logging
