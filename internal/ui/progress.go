package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// MaxVisibleSteps is the largest step list rendered under the bar. Longer
// transfers show only the bar and the running step.
const MaxVisibleSteps = 10

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Currently transferring
	StepComplete                   // Written to disk
	StepFailed                     // Failed
	StepSkipped                    // Already present locally or not a JPEG
)

// Step is one item of a multi-item transfer
type Step struct {
	Number  int
	Name    string
	Status  StepStatus
	Message string // e.g. "2.1 MiB", "exists"
}

// Progress is a bar plus item list for commands that move several images.
type Progress struct {
	Label string
	Steps []Step
	Width int

	current int
	bar     progress.Model
}

// NewProgress creates a progress display with one pending step per name
func NewProgress(label string, names []string) *Progress {
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Number: i + 1, Name: name}
	}

	p := &Progress{Label: label, Steps: steps}
	return p.SetWidth(GetTerminalWidth())
}

// SetWidth sets the terminal width for responsive rendering
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	barWidth := width - 24 // percentage and counter
	barWidth = max(20, min(barWidth, 50))
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// Total returns the number of steps
func (p *Progress) Total() int {
	return len(p.Steps)
}

// Current returns the number of the step most recently started
func (p *Progress) Current() int {
	return p.current
}

// Percent returns the finished fraction, counting skipped items as done
func (p *Progress) Percent() float64 {
	if len(p.Steps) == 0 {
		return 1
	}
	done := 0
	for _, s := range p.Steps {
		if s.Status == StepComplete || s.Status == StepSkipped {
			done++
		}
	}
	return float64(done) / float64(len(p.Steps))
}

// Failed returns the number of failed steps
func (p *Progress) Failed() int {
	n := 0
	for _, s := range p.Steps {
		if s.Status == StepFailed {
			n++
		}
	}
	return n
}

// UpdateStep sets a step's status and note. Out-of-range numbers are ignored.
func (p *Progress) UpdateStep(number int, status StepStatus, message string) {
	if number < 1 || number > len(p.Steps) {
		return
	}
	p.Steps[number-1].Status = status
	p.Steps[number-1].Message = message
	if status == StepRunning {
		p.current = number
	}
}

// StartStep marks a step as running
func (p *Progress) StartStep(number int, message string) {
	p.UpdateStep(number, StepRunning, message)
}

// CompleteStep marks a step as complete
func (p *Progress) CompleteStep(number int, message string) {
	p.UpdateStep(number, StepComplete, message)
}

// FailStep marks a step as failed
func (p *Progress) FailStep(number int, message string) {
	p.UpdateStep(number, StepFailed, message)
}

// SkipStep marks a step as skipped
func (p *Progress) SkipStep(number int, message string) {
	p.UpdateStep(number, StepSkipped, message)
}

// Render returns the styled progress display
func (p *Progress) Render() string {
	var b strings.Builder

	if p.Label != "" {
		b.WriteString(ProgressLabelStyle.Render(p.Label))
		b.WriteString("\n\n")
	}

	b.WriteString(p.renderBar())
	b.WriteString("\n")

	switch {
	case len(p.Steps) <= MaxVisibleSteps:
		b.WriteString("\n")
		lines := make([]string, 0, len(p.Steps))
		for _, s := range p.Steps {
			lines = append(lines, p.renderStepLine(s))
		}
		b.WriteString(strings.Join(lines, "\n"))
	case p.current > 0:
		b.WriteString("\n")
		b.WriteString(p.renderStepLine(p.Steps[p.current-1]))
	}

	return b.String()
}

func (p *Progress) renderBar() string {
	pct := p.Percent()
	return lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %3.0f%%  [%d/%d]", p.bar.ViewAs(pct), pct*100, p.current, len(p.Steps)))
}

func (p *Progress) renderStepLine(step Step) string {
	var marker string
	style := StepPendingStyle

	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, StepFailedStyle
	case StepSkipped:
		marker = "-"
	default:
		marker = StepMarkerPending
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  [%d/%d] ", step.Number, len(p.Steps))
	b.WriteString(style.Render(step.Name))
	b.WriteString(strings.Repeat(" ", max(1, 32-lipgloss.Width(step.Name))))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}

	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}
