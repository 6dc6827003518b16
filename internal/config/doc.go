// Package config loads, normalizes, and validates Reel configuration from
// TOML files, applying repository defaults for anything unset.
package config
