package web

import (
	"embed"
	"io/fs"
)

//go:embed dist
var dist embed.FS

// Dist returns the embedded production build of the signup form.
func Dist() (fs.FS, error) {
	return fs.Sub(dist, "dist")
}
