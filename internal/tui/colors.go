package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// IsInteractive reports whether stdout is a terminal. Styling and prompts are
// skipped when output is piped.
func IsInteractive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// ColorRed colors text red
func ColorRed(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("1")).
		Render(text)
}

// ColorGreen colors text green
func ColorGreen(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("2")).
		Render(text)
}

// ColorYellow colors text yellow
func ColorYellow(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("3")).
		Render(text)
}

// ColorDim makes text dim/gray
func ColorDim(text string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Render(text)
}

// ColorPackageName styles a package name for listings
func ColorPackageName(name string) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("6")).
		Render(name)
}

// ColorCommit styles a short commit hash
func ColorCommit(sha string) string {
	if len(sha) > 12 {
		sha = sha[:12]
	}
	return ColorYellow(sha)
}
