// Package logging provides structured logging for Casa Core.
//
// Built on log/slog with:
//   - JSON output for production, text for development
//   - Level filtering (debug, info, warn, error)
//   - Default service/version attributes on every record
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("event processed", "event_id", id, "matches", n)
//
// Components receive a *Logger (or a narrow consumer-side interface) via
// their constructors; there is no package-level global logger.
package logging
