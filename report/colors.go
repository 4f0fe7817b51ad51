package report

// colors.go contains the ANSI palette used by progress rendering.

import (
	"os"

	"github.com/mattn/go-isatty"
)

// Palette holds the ANSI escapes used in progress output. The zero
// value renders without color.
type Palette struct {
	Red    string
	Green  string
	Yellow string
	Reset  string
}

// NewPalette returns the colored palette when f is a terminal and
// coloring was not disabled, and the empty palette otherwise.
func NewPalette(f *os.File, noColors bool) Palette {
	if noColors || !isatty.IsTerminal(f.Fd()) {
		return Palette{}
	}
	return Palette{
		Red:    "[31m",
		Green:  "[32m",
		Yellow: "[33m",
		Reset:  "[0m",
	}
}
