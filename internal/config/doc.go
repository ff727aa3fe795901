// Package config loads, normalizes, and validates reawwise configuration.
//
// Configuration lives in a TOML file (default ~/.config/reawwise/config.toml,
// falling back to ./reawwise.toml). Load applies defaults, expands ~ in paths,
// honours WAAPI_HOST and WAAPI_PORT overrides, and rejects unusable values
// before any component starts. CreateSample writes the annotated sample used
// by `reawwise config init`.
package config
