// Package config loads and validates the casacore configuration.
//
// Configuration comes from a YAML file, with CASACORE_* environment
// variables taking precedence for deployment-specific values. Load
// applies defaults, then overrides, then validates, so a returned
// Config is always usable.
//
// Secrets (broker credentials, InfluxDB tokens) belong in environment
// variables, not in committed YAML.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
