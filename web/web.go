// Package web holds the HTML templates compiled into the binary.
package web

import "embed"

//go:embed templates
var FS embed.FS
