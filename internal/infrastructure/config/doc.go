// Package config loads the engine's YAML configuration.
//
// Load reads the file, applies CINNAMON_* environment overrides on top and
// validates the result. Fields left out of the file keep the values from
// defaultConfig. Keep secrets such as the MQTT password, the InfluxDB token
// and the JWT secret in the environment, not in the file:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//		return fmt.Errorf("loading config: %w", err)
//	}
package config
