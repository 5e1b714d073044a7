package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Source records how a camera was found
type Source string

const (
	SourceMDNS  Source = "mdns"
	SourceProbe Source = "probe"
)

// Device represents a camera found on the network
type Device struct {
	// Name is the host label without the ".local" suffix (e.g., "E-M10MarkII-4F2A")
	Name string `json:"name"`

	// Hostname is the mDNS hostname, empty for probed cameras
	Hostname string `json:"hostname,omitempty"`

	// IP is the address the camera answered on
	IP string `json:"ip"`

	// Port is the HTTP port (typically 80)
	Port int `json:"port"`

	// Model is the model the camera reported, if it was asked
	Model string `json:"model,omitempty"`

	// Metadata contains mDNS TXT record data
	Metadata map[string]string `json:"metadata,omitempty"`

	Source       Source    `json:"source"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	label := d.Model
	if label == "" {
		label = d.Name
	}
	if label == "" {
		label = "camera"
	}
	return fmt.Sprintf("%s at %s (%s)", label, net.JoinHostPort(d.IP, strconv.Itoa(d.Port)), d.Source)
}

// BaseURL returns the HTTP base URL for the camera
func (d *Device) BaseURL() string {
	return "http://" + net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
