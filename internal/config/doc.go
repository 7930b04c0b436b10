// Package config defines the lamplighter settings file and provides helpers
// to load, validate and save it in YAML format.
//
// Values from the file can be overridden by LAMPLIGHTER_* environment
// variables, e.g. LAMPLIGHTER_LOG_LEVEL=debug or LAMPLIGHTER_QUIET_HOURS_START=23.
package config
