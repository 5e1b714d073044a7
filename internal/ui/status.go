package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/omd/internal/camera"
)

var panelTitleStyle = lipgloss.NewStyle().
	Foreground(PrimaryColor).
	Bold(true)

// StatusFields returns the identification fields of a device snapshot in
// display order.
func StatusFields(s camera.DeviceState) []Field {
	model := s.Model
	if model == "" {
		model = "(unknown)"
	}
	fields := []Field{
		{Key: "Model", Value: model},
		{Key: "Operating Mode", Value: s.CamMode.String()},
		{Key: "Connect Mode", Value: s.ConnectMode.String()},
		{Key: "Free Storage", Value: camera.FormatBytes(s.UnusedCapacity)},
		{Key: "Images", Value: fmt.Sprintf("%d", len(s.Images))},
	}
	if s.Properties != nil && s.Properties.Len() > 0 {
		fields = append(fields, Field{Key: "Properties", Value: fmt.Sprintf("%d", s.Properties.Len())})
	}
	return fields
}

// RenderStatus renders the camera status panel
func RenderStatus(s camera.DeviceState, width int) string {
	lines := []string{panelTitleStyle.Render("Camera"), ""}
	for _, f := range StatusFields(s) {
		lines = append(lines, ResultKeyStyle.Render(f.Key+":")+" "+ResultValueStyle.Render(f.Value))
	}
	return PanelStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderImages renders the image listing panel sorted by path. Reserved
// (protected) images carry a star.
func RenderImages(images map[string]camera.ImageDescriptor, width int) string {
	lines := []string{panelTitleStyle.Render(fmt.Sprintf("Images (%d)", len(images))), ""}

	if len(images) == 0 {
		lines = append(lines, StepPendingStyle.Render("No images listed"))
		return PanelStyle(width).Render(strings.Join(lines, "\n"))
	}

	for _, img := range camera.SortedImages(images) {
		marker := " "
		if img.Reserved {
			marker = StepRunningStyle.Render(ReservedMarker)
		}
		line := fmt.Sprintf("%s %-28s %10s  %s",
			marker,
			img.Path,
			camera.FormatBytes(img.Size),
			EventTimeStyle.Render(img.Timestamp.Format("2006-01-02 15:04")),
		)
		lines = append(lines, line)
	}

	return PanelStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderProperties renders the property table. Writable properties list
// their allowed values.
func RenderProperties(props *camera.Properties, width int) string {
	if props == nil || props.Len() == 0 {
		lines := []string{panelTitleStyle.Render("Properties"), "", StepPendingStyle.Render("No properties reported")}
		return PanelStyle(width).Render(strings.Join(lines, "\n"))
	}

	lines := []string{panelTitleStyle.Render(fmt.Sprintf("Properties (%d)", props.Len())), ""}
	valueWidth := max(10, width-48)

	for _, name := range props.Names() {
		p, _ := props.Get(name)
		value := p.Value
		if value == "" {
			value = "-"
		}
		line := ResultKeyStyle.Width(24).Render(p.Name) + " " +
			ResultValueStyle.Render(fmt.Sprintf("%-12s", value)) + " " +
			StepPendingStyle.Render(fmt.Sprintf("%-6s", p.Attribute))
		if p.Writable() && len(p.Enum) > 0 {
			line += " " + StepNoteStyle.Render(truncate(strings.Join(p.Enum, " "), valueWidth))
		}
		lines = append(lines, line)
	}

	return PanelStyle(width).Render(strings.Join(lines, "\n"))
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
