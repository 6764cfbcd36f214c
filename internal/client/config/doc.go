// Package config loads runtime configuration for the flogger CLI.
//
// # Sources and precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. FLOGGER_* environment variables, optionally from a .env file.
//  3. Optional JSON file selected via -c or -config.
//  4. Command-line flags, which override earlier values.
//
// The result is validated with go-playground/validator struct tags.
//
// # JSON schema
//
// Keys are snake_case versions of the Config fields. Durations may be
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "provider": "dropbox",
//	  "oauth_client_id": "abc123",
//	  "session_dsn": "/home/me/.local/state/flogger/session.db",
//	  "request_timeout": "15s"
//	}
package config
