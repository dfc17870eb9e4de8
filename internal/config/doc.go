// Package config loads, normalizes, and validates vestry's TOML
// configuration. Path fields are tilde-expanded and made absolute during
// load so downstream code never deals with relative or user-home paths.
package config
