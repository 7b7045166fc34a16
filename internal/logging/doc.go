// Package logging provides the shared zap logger for the CLI and the
// controller client. Logging is silent unless PROTECT_LOG_LEVEL is set,
// keeping command output parseable by default.
package logging
