// Package config loads gazeshm settings and the OpenTelemetry exporter
// configuration.
//
// Settings are layered: built-in defaults, then an optional YAML file,
// then GAZESHM_* environment variables, then command-line flags that
// were explicitly set. OpenTelemetry settings come from the standard
// OTEL_* variables.
package config
