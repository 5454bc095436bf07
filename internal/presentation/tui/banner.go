package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the canopy banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Leafy gradient, top to bottom.
	lines := []struct {
		text  string
		color string
	}{
		{`   ___ __ _ _ __   ___  _ __  _   _ `, "#bbf7d0"},
		{`  / __/ _' | '_ \ / _ \| '_ \| | | |`, "#86efac"},
		{` | (_| (_| | | | | (_) | |_) | |_| |`, "#4ade80"},
		{`  \___\__,_|_| |_|\___/| .__/ \__, |`, "#22c55e"},
		{`                       |_|    |___/ `, "#16a34a"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}

// Highlight renders s in bold yellow when the terminal supports color.
func Highlight(s string) string {
	p := termenv.ColorProfile()
	return termenv.String(s).Foreground(p.Color("#facc15")).Bold().String()
}
