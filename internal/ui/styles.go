package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette
var (
	PrimaryColor = lipgloss.Color("#3B82F6") // headers, panel titles
	SuccessColor = lipgloss.Color("#22C55E")
	ErrorColor   = lipgloss.Color("#EF4444")
	WarningColor = lipgloss.Color("#F59E0B") // running steps, confirmations
	MutedColor   = lipgloss.Color("#6B7280") // keys, notes, timestamps
	TextColor    = lipgloss.Color("#F9FAFB")
)

// Terminal width bounds used by every renderer
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	HeaderTitleStyle      = fg(TextColor).Bold(true).PaddingLeft(2)
	HeaderCommandStyle    = fg(MutedColor).PaddingLeft(2)
	HeaderParamKeyStyle   = fg(MutedColor).PaddingLeft(2)
	HeaderParamValueStyle = fg(TextColor)

	ProgressLabelStyle = fg(TextColor).PaddingLeft(2)
	StepCompleteStyle  = fg(SuccessColor)
	StepRunningStyle   = fg(WarningColor)
	StepPendingStyle   = fg(MutedColor)
	StepFailedStyle    = fg(ErrorColor)
	StepNoteStyle      = fg(MutedColor).Italic(true)

	SuccessTitleStyle        = fg(SuccessColor).Bold(true)
	ErrorTitleStyle          = fg(ErrorColor).Bold(true)
	ErrorMessageStyle        = fg(ErrorColor)
	TroubleshootingItemStyle = fg(MutedColor)

	// ResultKeyStyle pads keys so values line up
	ResultKeyStyle   = fg(MutedColor).Width(18)
	ResultValueStyle = fg(TextColor)

	EventKindStyle = fg(PrimaryColor).Width(22)
	EventTimeStyle = fg(MutedColor)
)

const (
	StepMarkerComplete = "✓"
	StepMarkerRunning  = "●"
	StepMarkerPending  = "·"
	SuccessMarker      = "✓"
	FailureMarker      = "✗"
	ReservedMarker     = "★" // protected image
)

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// GetTerminalWidth returns the stdout width clamped to
// [MinTerminalWidth, MaxContentWidth]. Non-terminals get the minimum.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth
	}
	return max(MinTerminalWidth, min(width, MaxContentWidth))
}

// box returns a bordered style whose outer width is width
func box(border lipgloss.Border, color lipgloss.Color, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(border).
		BorderForeground(color).
		Width(width - 2)
}

// HeaderBorderStyle frames command headers
func HeaderBorderStyle(width int) lipgloss.Style {
	return box(lipgloss.RoundedBorder(), PrimaryColor, width)
}

// PanelStyle frames status panels
func PanelStyle(width int) lipgloss.Style {
	return box(lipgloss.RoundedBorder(), MutedColor, width).Padding(0, 1)
}

// SuccessBoxStyle frames success results
func SuccessBoxStyle(width int) lipgloss.Style {
	return box(lipgloss.DoubleBorder(), SuccessColor, width).Padding(1, 2)
}

// ErrorBoxStyle frames error results
func ErrorBoxStyle(width int) lipgloss.Style {
	return box(lipgloss.DoubleBorder(), ErrorColor, width).Padding(1, 2)
}

// TroubleshootingBoxStyle frames hints nested inside an error box
func TroubleshootingBoxStyle(width int) lipgloss.Style {
	return box(lipgloss.RoundedBorder(), MutedColor, width-6).Padding(0, 1)
}

// RenderHorizontalDivider draws a line of char, width cells long
func RenderHorizontalDivider(width int, char string) string {
	return fg(PrimaryColor).Render(strings.Repeat(char, width))
}
