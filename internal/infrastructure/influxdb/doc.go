// Package influxdb records OrcheStream telemetry as time series.
//
// It wraps influxdb-client-go v2 for three measurement streams:
// per-device command dispatch events (sent or throttled), periodic
// bridge status snapshots, and Art-Net receive-path counters.
//
// Writes go through the client's non-blocking batched write API, sized
// by batch_size and flush_interval in config.yaml. Batch errors
// surface through an error callback and are logged; a telemetry outage
// therefore never stalls frame dispatch. Connect and HealthCheck
// return errors directly.
//
// All methods are safe for concurrent use.
//
// Typical use:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteCommandEvent("light.kitchen", "activate", false)
package influxdb
