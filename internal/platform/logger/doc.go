// Package logger provides structured logging for the service.
//
// It configures a JSON log/slog handler from ServerConfig and carries
// request-scoped loggers (with trace IDs) through context.Context.
package logger
