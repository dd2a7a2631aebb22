package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testConfigYAML returns a minimal valid configuration with the
// optional integrations disabled and auto-start off, so run() can
// come up without a broker, InfluxDB, or Home Assistant instance.
func testConfigYAML(dbPath string, apiPort string) string {
	return `
artnet:
  bind_ip: "127.0.0.1"
  port: 6454
  universe: 0

dmx:
  start_channel: 1

homeassistant:
  url: "ws://127.0.0.1:8123/api/websocket"
  token: "test-token-not-real"
  label: "orchestream"
  response_timeout: 5

bridge:
  auto_start: false
  throttle_ms: 100
  command_delay_ms: 50

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

api:
  host: "127.0.0.1"
  port: ` + apiPort + `
  timeouts:
    read: 30
    write: 60
    idle: 120

websocket:
  path: "/api/v1/ws"
  max_message_size: 4096
  ping_interval: 30
  pong_timeout: 60

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("ORCHESTREAM_CONFIG")
	defer os.Setenv("ORCHESTREAM_CONFIG", originalEnv)

	os.Setenv("ORCHESTREAM_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingHomeAssistantToken verifies run fails when the
// Home Assistant token is absent from config and environment.
func TestRun_MissingHomeAssistantToken(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
homeassistant:
  url: "ws://127.0.0.1:8123/api/websocket"
  token: ""

database:
  path: "` + filepath.Join(tmpDir, "test.db") + `"

mqtt:
  enabled: false

influxdb:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("ORCHESTREAM_CONFIG")
	defer os.Setenv("ORCHESTREAM_CONFIG", originalEnv)
	os.Setenv("ORCHESTREAM_CONFIG", configPath)

	originalToken := os.Getenv("ORCHESTREAM_HA_TOKEN")
	defer os.Setenv("ORCHESTREAM_HA_TOKEN", originalToken)
	os.Unsetenv("ORCHESTREAM_HA_TOKEN")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail without a Home Assistant token")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("ORCHESTREAM_CONFIG")
	defer os.Setenv("ORCHESTREAM_CONFIG", originalEnv)

	os.Unsetenv("ORCHESTREAM_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("ORCHESTREAM_CONFIG")
	defer os.Setenv("ORCHESTREAM_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("ORCHESTREAM_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_StartupAndShutdown boots the full stack with the optional
// integrations disabled and verifies a clean shutdown on context
// cancellation. No broker or Home Assistant instance is required
// because auto_start is off.
func TestRun_StartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := testConfigYAML(dbPath, "18090")
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("ORCHESTREAM_CONFIG")
	defer os.Setenv("ORCHESTREAM_CONFIG", originalEnv)
	os.Setenv("ORCHESTREAM_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v, want clean shutdown", err)
	}

	// The database file should exist after a successful boot.
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

// TestRun_CancelledBeforeStartup verifies a pre-cancelled context
// still produces an orderly return rather than a hang.
func TestRun_CancelledBeforeStartup(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := testConfigYAML(dbPath, "18091")
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("ORCHESTREAM_CONFIG")
	defer os.Setenv("ORCHESTREAM_CONFIG", originalEnv)
	os.Setenv("ORCHESTREAM_CONFIG", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- run(ctx)
	}()

	select {
	case <-done:
		// Clean return, error or not, is acceptable here.
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not return after context cancellation")
	}
}
