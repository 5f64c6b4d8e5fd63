package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the freelingo banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text, color string
	}{
		{"   __           _ _                    ", "#818cf8"},
		{"  / _|_ _ ___ ___| (_)_ _  __ _ ___    ", "#a78bfa"},
		{" |  _| '_/ -_) -_) | | ' \\/ _` / _ \\   ", "#c084fc"},
		{" |_| |_| \\___\\___|_|_|_||_\\__, \\___/   ", "#f472b6"},
		{"                          |___/        ", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// PrintNotice writes a highlighted one-line message to w.
func PrintNotice(w io.Writer, msg string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w, out.String("! "+msg).Foreground(out.Color("#fbc02d")).Bold())
}
