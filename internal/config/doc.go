// Package config loads, normalizes, and validates nemoctl configuration.
//
// Configuration is TOML with a documented sample embedded in the binary.
// Load resolves the file (explicit flag, ~/.config/nemoctl/config.toml, or
// ./nemoctl.toml), applies defaults for missing values, expands ~ in path
// fields, and validates the result before returning it.
package config
