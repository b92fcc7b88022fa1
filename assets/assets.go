// Package assets holds files embedded into the server binary.
package assets

import _ "embed"

// IndexHTML is the map viewer served at "/".
//
//go:embed index.html
var IndexHTML []byte
