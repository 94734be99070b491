// Package config loads, normalizes, and validates substr's TOML configuration.
//
// Configuration resolves from an explicit --config path, then
// ~/.config/substr/config.toml, then a substr.toml in the working directory.
// Missing files fall back to defaults so the CLI works out of the box against
// the public relay set.
package config
