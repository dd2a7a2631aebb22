// Package config loads, defaults, and validates the OrcheStream
// configuration.
//
// Configuration comes from a YAML file, with ORCHESTREAM_* environment
// variables overriding individual fields afterwards. Load applies
// defaults for everything optional and then validates the result, so
// the rest of the application never sees a half-formed Config.
//
// Secrets such as the Home Assistant token and broker passwords belong
// in environment variables, not in the file. Keep the file itself at
// 0600 regardless.
//
// Loading happens once at startup:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
