package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the intake ASCII banner with a teal-to-blue ramp.
func PrintBanner() {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  _       _        _        ", "#2dd4bf"},
		{" (_)_ __ | |_ __ _| | _____ ", "#22d3ee"},
		{" | | '_ \\| __/ _` | |/ / _ \\", "#38bdf8"},
		{" | | | | | || (_| |   <  __/", "#60a5fa"},
		{" |_|_| |_|\\__\\__,_|_|\\_\\___|", "#818cf8"},
	}

	fmt.Println()
	for _, l := range lines {
		fmt.Println(termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Println()
}

// Urgent styles a line as an urgent-care notice.
func Urgent(text string) string {
	p := termenv.ColorProfile()
	return termenv.String(text).Foreground(p.Color("#f87171")).Bold().String()
}

// Prompt styles the input prompt marker.
func Prompt() string {
	p := termenv.ColorProfile()
	return termenv.String("you> ").Foreground(p.Color("#34d399")).String()
}
