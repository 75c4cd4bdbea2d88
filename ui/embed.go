// Package ui holds the templates and static assets of the web front-end.
package ui

import "embed"

// Files contains templates/ with the page and partial templates and static/ with assets served as is.
//
//go:embed templates static
var Files embed.FS
