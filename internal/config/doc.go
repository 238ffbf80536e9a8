// Package config loads, normalizes, and validates factstream's TOML
// configuration.
package config
