// Package logger builds the router's slog loggers. Production environments log
// JSON; every other environment logs text.
package logger
