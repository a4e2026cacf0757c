// Package config loads, normalizes, and validates silkstaff configuration.
//
// It supplies repository defaults, resolves the installed or development
// directory layout, reads TOML files, and falls back to environment variables
// (EMD_API, EMD_TOKEN and friends) from the process or an optional env file.
// Remote credentials are validated on demand through ValidateAPI so commands
// that never reach the table API work without them.
package config
