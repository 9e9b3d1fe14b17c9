// Package config loads, normalizes, and validates the TOML configuration
// consumed by the showrunner daemon and CLI. Invalid configuration is a
// fatal startup error; nothing in this package is runtime-recoverable.
package config
