// Package logging provides structured logging utilities with context propagation.
//
// Key features:
//   - JSON and text output formats (LOG_FORMAT)
//   - Configurable log levels (LOG_LEVEL)
//   - Context-aware logging: a cycle-scoped logger travels with the poll context
//
// Example usage:
//
//	logger := logging.NewFromEnv()
//	slog.SetDefault(logger)
//
//	ctx = logging.WithLogger(ctx, logger.With(slog.String("url", link.URL)))
//	logging.FromContext(ctx).Info("checking link")
package logging
