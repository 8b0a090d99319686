// Package config loads, normalizes, and validates Postline configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// fallbacks such as POSTLINE_NTFY_TOPIC. The Config type centralizes every knob
// the daemon and CLI need, from the posting schedule to the publisher command.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a resolved schedule timezone, and clear validation errors.
package config
