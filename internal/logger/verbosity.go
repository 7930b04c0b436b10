package logger

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Verbosity is the closed set of log levels accepted in the settings file.
// Levels are ordered: a higher value shows more.
type Verbosity int

const (
	// VerbosityNone keeps only errors.
	VerbosityNone Verbosity = iota
	// VerbosityWarn adds state changes and summary reports.
	VerbosityWarn
	// VerbosityInfo adds every search and callback dispatch.
	VerbosityInfo
	// VerbosityDebug adds scanner and storage details.
	VerbosityDebug
)

// ParseVerbosity converts a settings value into a Verbosity.
// Both "info" and the legacy "LOG_INFO" spellings are accepted; "brief" is an alias of "warn".
func ParseVerbosity(s string) (Verbosity, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "log_")

	switch s {
	case "none":
		return VerbosityNone, true
	case "warn", "brief":
		return VerbosityWarn, true
	case "info":
		return VerbosityInfo, true
	case "debug":
		return VerbosityDebug, true
	default:
		return VerbosityWarn, false
	}
}

// String returns the settings spelling of v.
func (v Verbosity) String() string {
	switch v {
	case VerbosityNone:
		return "none"
	case VerbosityWarn:
		return "warn"
	case VerbosityInfo:
		return "info"
	case VerbosityDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// Enabled reports whether messages of verbosity other are shown at v.
func (v Verbosity) Enabled(other Verbosity) bool {
	return v >= other
}

// Level maps v to the zap level the global logger is set to.
func (v Verbosity) Level() zapcore.Level {
	switch {
	case v <= VerbosityNone:
		return zapcore.ErrorLevel
	case v == VerbosityWarn:
		return zapcore.WarnLevel
	case v == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func verbosityFromLevel(l zapcore.Level) Verbosity {
	switch {
	case l <= zapcore.DebugLevel:
		return VerbosityDebug
	case l == zapcore.InfoLevel:
		return VerbosityInfo
	case l == zapcore.WarnLevel:
		return VerbosityWarn
	default:
		return VerbosityNone
	}
}
