// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - the Verbosity enum used by the configuration file,
//   - convenience functions (Infof, WarnKV, etc.).
//
// The monitor, observers and notifiers accept a context and extract the
// logger from it, so every line carries the component name.
package logger
