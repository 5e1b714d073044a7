package camera

import (
	"fmt"
	"sort"
	"strings"
)

// Summary returns a one-line summary of the device state
func (s DeviceState) Summary() string {
	model := s.Model
	if model == "" {
		model = "(unknown model)"
	}
	return fmt.Sprintf("%s, mode %s, %s free, %d image(s)", model, s.CamMode, FormatBytes(s.UnusedCapacity), len(s.Images))
}

// FormatDeviceInfo returns the identification section
func (s DeviceState) FormatDeviceInfo() string {
	var b strings.Builder

	b.WriteString("=== Camera Information ===\n")
	fmt.Fprintf(&b, "Model:           %s\n", s.Model)
	fmt.Fprintf(&b, "Connect Mode:    %s\n", s.ConnectMode)
	fmt.Fprintf(&b, "Operating Mode:  %s\n", s.CamMode)
	fmt.Fprintf(&b, "Free Storage:    %s\n", FormatBytes(s.UnusedCapacity))
	if s.CommandList != nil && s.CommandList.Root() != nil {
		fmt.Fprintf(&b, "Commands:        %d\n", len(s.CommandList.Root().ChildElements()))
	}

	return b.String()
}

// FormatImages returns the image listing sorted by path
func (s DeviceState) FormatImages() string {
	var b strings.Builder

	b.WriteString("=== Images ===\n")
	if len(s.Images) == 0 {
		b.WriteString("(none)\n")
		return b.String()
	}

	for _, img := range SortedImages(s.Images) {
		marker := " "
		if img.Reserved {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %-32s %10s  %s\n", marker, img.Path, FormatBytes(img.Size), img.Timestamp.Format("2006-01-02 15:04:05"))
	}

	return b.String()
}

// FormatProperties returns the property table
func (s DeviceState) FormatProperties() string {
	var b strings.Builder

	b.WriteString("=== Properties ===\n")
	if s.Properties == nil || s.Properties.Len() == 0 {
		b.WriteString("(none)\n")
		return b.String()
	}

	for _, name := range s.Properties.Names() {
		p, _ := s.Properties.Get(name)
		fmt.Fprintf(&b, "%-20s %-8s %s", p.Name, p.Attribute, p.Value)
		if len(p.Enum) > 0 {
			fmt.Fprintf(&b, "  [%s]", strings.Join(p.Enum, " "))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatCompact returns a compact multi-line format suitable for terminal display
func (s DeviceState) FormatCompact() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Camera:   %s (%s)\n", s.Model, s.ConnectMode)
	fmt.Fprintf(&b, "Mode:     %s\n", s.CamMode)
	fmt.Fprintf(&b, "Storage:  %s free\n", FormatBytes(s.UnusedCapacity))
	fmt.Fprintf(&b, "Images:   %d\n", len(s.Images))

	return b.String()
}

// FormatDetailed returns every section
func (s DeviceState) FormatDetailed() string {
	var b strings.Builder

	b.WriteString(s.FormatDeviceInfo())
	b.WriteString("\n")
	b.WriteString(s.FormatImages())
	b.WriteString("\n")
	b.WriteString(s.FormatProperties())

	return b.String()
}

// SortedImages returns the images ordered by path
func SortedImages(images map[string]ImageDescriptor) []ImageDescriptor {
	out := make([]ImageDescriptor, 0, len(images))
	for _, img := range images {
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// FormatBytes renders a byte count with a binary unit
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
