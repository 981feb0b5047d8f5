// Package config loads, normalizes, and validates diary assistant configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the DEEPSEEK_API_KEY environment
// fallback. The Config type centralizes every knob the runner and CLI need:
// diary source directories, summary output, state and log locations, API
// credentials, retry budget, and the daily/weekly generation settings.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
