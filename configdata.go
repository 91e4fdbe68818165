// Package codecord embeds the default configuration written to the data
// directory on first run.
package codecord

import _ "embed"

// DefaultConfigTOML holds config.default.toml, generated by cmd/genconfig.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
