// Package appfs embeds the app's static assets: goose migrations and email templates.
package appfs

import "embed"

//go:embed migrations all:templates
var FS embed.FS
