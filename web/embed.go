// Package web embeds the page templates, Datastar fragments and static
// assets.
package web

import "embed"

//go:embed templates static
var FS embed.FS
