package output

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

func PrintProgressBar(current, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	if total <= 0 {
		total = 1
	}
	current = max(0, min(current, total))
	percent := float64(current) / float64(total)
	filled := max(0, min(int(percent*float64(width)), width))
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	if filled < width {
		bar += strings.Repeat(" ", width-filled)
	}
	bar += StyleSymbols["bullet"]
	return debugStyle.Render(fmt.Sprintf("%s %5.1f%% %s ", bar, percent*100, StyleSymbols["bullet"]))
}

func getTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		return 80, 24 // Default fallback size
	}
	return width, height
}

// barWidth sizes progress bars so a rendered line, with its label and
// byte counters, fits the terminal.
func barWidth(termWidth int) int {
	return max(10, min(30, termWidth-50))
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
