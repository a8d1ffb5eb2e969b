// Package config loads, normalizes, and validates dualout configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the DUALOUT_USER environment
// fallback for the account gate. The Config type centralizes the data and log
// locations, per-display base resolutions, and the destination -> display
// assignments consulted before going live.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
