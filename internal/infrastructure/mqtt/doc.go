// Package mqtt is the broker connection OrcheStream publishes health
// and command telemetry through.
//
// Dashboards and external monitors subscribe at the broker instead of
// polling the admin API, which keeps observers fully decoupled from
// the dispatch path:
//
//	OrcheStream Bridge → MQTT Broker → Monitors / Dashboards
//
// The client handles reconnection with backoff, replays subscriptions
// after a reconnect, and registers a Last Will so the broker announces
// a crashed bridge as offline. Graceful shutdown publishes a retained
// offline status first.
//
// Production deployments should enable TLS (broker.tls: true) and
// broker credentials; anonymous plaintext is for local development
// only. Payloads are not encrypted beyond the transport.
//
// Typical use:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{Base: cfg.MQTT.BaseTopic}.BridgeStatus()
//	client.Publish(topic, payload, 1, true)
package mqtt
