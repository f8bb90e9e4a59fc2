package web

import "embed"

// TemplatesFS embeds HTML templates for statement rendering.
//
//go:embed templates/*.html
var TemplatesFS embed.FS
