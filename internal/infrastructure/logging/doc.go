// Package logging builds the slog loggers used across the engine.
//
// Every entry carries service and version attributes. Packages take a
// logger tagged with Component so entries can be filtered per subsystem:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
//	log := logging.New(cfg.Logging, version).Component("sequence")
//	log.Info("stage advanced", "run_id", id, "stage", name)
//
// The level is shared by a logger and everything derived from it and may
// be changed with SetLevel while running.
package logging
