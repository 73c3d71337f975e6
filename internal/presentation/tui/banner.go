package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the OpenStars banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"   ___                   ____  _                 ", "#818cf8"},
		{"  / _ \\ _ __   ___ _ __ / ___|| |_ __ _ _ __ ___ ", "#a78bfa"},
		{" | | | | '_ \\ / _ \\ '_ \\\\___ \\| __/ _` | '__/ __|", "#c084fc"},
		{" | |_| | |_) |  __/ | | |___) | || (_| | |  \\__ \\", "#e879f9"},
		{"  \\___/| .__/ \\___|_| |_|____/ \\__\\__,_|_|  |___/", "#f472b6"},
		{"       |_|                                       ", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
