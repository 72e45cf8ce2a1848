// Package logging builds slog loggers with console and JSON handlers and
// provides the attribute helpers the rest of the repository logs with.
package logging
