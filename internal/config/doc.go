// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/barkmods/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/barkmods/config.cue on macOS, %APPDATA%\barkmods\config.cue
// on Windows), falling back to ./config.cue. Values are validated against an embedded CUE
// schema (config_schema.cue) and can be overridden with BARKMODS_* environment variables.
//
// The package also reads the engine's host configuration (details.json) and the catalog
// password file. Both are plain JSON files that tolerate comments.
package config
