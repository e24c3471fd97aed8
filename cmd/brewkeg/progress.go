package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/brewkeg/brewkeg/internal/download"
)

// newProgressFunc renders a single-line, width-aware progress bar for
// label, or nil when stdout isn't a terminal (scripted/piped runs get
// no progress output at all rather than a stream of carriage returns).
func newProgressFunc(label string) download.ProgressFunc {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		width = 80
	}

	return func(downloaded, total int64) {
		barWidth := width - len(label) - 20
		if barWidth < 10 {
			barWidth = 10
		}
		if total <= 0 {
			fmt.Printf("\r%s: %d bytes", label, downloaded)
			return
		}
		filled := int(float64(barWidth) * float64(downloaded) / float64(total))
		if filled > barWidth {
			filled = barWidth
		}
		bar := make([]byte, barWidth)
		for i := range bar {
			if i < filled {
				bar[i] = '='
			} else {
				bar[i] = ' '
			}
		}
		pct := float64(downloaded) / float64(total) * 100
		fmt.Printf("\r%s: [%s] %5.1f%%", label, bar, pct)
		if downloaded >= total {
			fmt.Println()
		}
	}
}
