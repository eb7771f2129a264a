package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	`  ____       _ _                     _ `,
	` |  _ \ __ _(_) |_   _  __ _ _ __ __| |`,
	` | |_) / _' | | | | | |/ _' | '__/ _' |`,
	` |  _ < (_| | | | |_| | (_| | | | (_| |`,
	` |_| \_\__,_|_|_|\__, |\__,_|_|  \__,_|`,
	`                 |___/                 `,
}

// Rail greens, darkest at the bottom.
var bannerColors = []string{"#a7f3d0", "#6ee7b7", "#34d399", "#10b981", "#059669", "#047857"}

// PrintBanner writes the Railyard banner to w, colored when the output supports it.
func PrintBanner(w io.Writer, version string) {
	p := termenv.NewOutput(w).Profile

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, p.String(line).Foreground(p.Color(bannerColors[i])))
	}
	if version != "" {
		fmt.Fprintln(w, p.String("  track layout engine v"+version).Faint())
	}
	fmt.Fprintln(w)
}
