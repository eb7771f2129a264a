package railyard

import (
	_ "embed"
)

// Version is the release of the library and of the railyard binary.
//
//go:embed VERSION
var Version string
