// Package resources embeds the default suite configuration.
package resources

import "embed"

// Files holds config.yaml, profiles/*.yaml and policies/*.yaml.
//
//go:embed config.yaml profiles/*.yaml policies/*.yaml
var Files embed.FS
