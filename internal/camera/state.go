package camera

import (
	"maps"

	"github.com/beevik/etree"
)

// CamMode is the camera's top-level operating state.
type CamMode int

const (
	ModeUnknown CamMode = iota
	ModeRecord
	ModePlay
	ModeShutter
)

// String returns the mode name used in logs and CLI output
func (m CamMode) String() string {
	switch m {
	case ModeRecord:
		return "record"
	case ModePlay:
		return "play"
	case ModeShutter:
		return "shutter"
	default:
		return "unknown"
	}
}

// ParseCamMode accepts the CLI spellings of a mode ("rec", "record", "play",
// "shutter"). Anything else yields ModeUnknown.
func ParseCamMode(s string) CamMode {
	switch s {
	case "rec", "record":
		return ModeRecord
	case "play":
		return ModePlay
	case "shutter":
		return ModeShutter
	default:
		return ModeUnknown
	}
}

// ConnectMode is the network-sharing posture reported by the camera.
type ConnectMode int

const (
	ConnectUnknown ConnectMode = iota
	ConnectPrivate
	ConnectShared
)

// String returns the wire spelling of the connect mode
func (c ConnectMode) String() string {
	switch c {
	case ConnectPrivate:
		return "private"
	case ConnectShared:
		return "shared"
	default:
		return "unknown"
	}
}

func parseConnectMode(s string) ConnectMode {
	switch s {
	case "private":
		return ConnectPrivate
	case "shared":
		return ConnectShared
	default:
		return ConnectUnknown
	}
}

// DeviceState holds the last known values reported by the camera.
// Only the response router writes to it.
type DeviceState struct {
	Model          string
	UnusedCapacity uint64
	ConnectMode    ConnectMode
	CamMode        CamMode
	CommandList    *etree.Document
	Images         map[string]ImageDescriptor
	Properties     *Properties
}

func newDeviceState() *DeviceState {
	return &DeviceState{
		Images:     make(map[string]ImageDescriptor),
		Properties: NewProperties(),
	}
}

// Snapshot returns a copy that shares no mutable maps with the receiver.
// The command list document and properties are copied as well.
func (s *DeviceState) Snapshot() DeviceState {
	out := *s
	out.Images = maps.Clone(s.Images)
	if out.Images == nil {
		out.Images = make(map[string]ImageDescriptor)
	}
	if s.CommandList != nil {
		out.CommandList = s.CommandList.Copy()
	}
	if s.Properties != nil {
		out.Properties = s.Properties.Clone()
	}
	return out
}
