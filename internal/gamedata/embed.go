// Package gamedata provides embedded game data and utilities for loading it.
package gamedata

import "embed"

// dataFS embeds the JSON tables and message catalogs from this directory at build time.
//
//go:embed *.json locales/*.po
var dataFS embed.FS
