package camera

import (
	"image"
	"time"
)

// EventKind identifies which piece of state a notification is about.
type EventKind int

const (
	EventModelUpdated EventKind = iota
	EventCapacityUpdated
	EventConnectModeChanged
	EventCamModeChanged
	EventCommandListUpdated
	EventPropertiesUpdated
	EventImagesUpdated
	EventImageReceived
	EventPoweredOff
)

// String returns the event name used on the relay wire and in logs
func (k EventKind) String() string {
	switch k {
	case EventModelUpdated:
		return "model_updated"
	case EventCapacityUpdated:
		return "capacity_updated"
	case EventConnectModeChanged:
		return "connect_mode_changed"
	case EventCamModeChanged:
		return "cam_mode_changed"
	case EventCommandListUpdated:
		return "command_list_updated"
	case EventPropertiesUpdated:
		return "properties_updated"
	case EventImagesUpdated:
		return "images_updated"
	case EventImageReceived:
		return "image_received"
	case EventPoweredOff:
		return "powered_off"
	default:
		return "unknown"
	}
}

// Event is a point-in-time notification carrying the new value. Only the
// field matching Kind is set. Maps and properties are copies owned by the
// receiver.
type Event struct {
	Kind     EventKind
	Time     time.Time
	Endpoint Endpoint

	Model       string
	Capacity    uint64
	ConnectMode ConnectMode
	CamMode     CamMode
	Properties  *Properties
	Images      map[string]ImageDescriptor

	// ImageName, Image and ImageData are set for EventImageReceived.
	// ImageData holds the bytes as sent by the camera.
	ImageName string
	Image     image.Image
	ImageData []byte
}

// Observer receives camera notifications. HandleEvent runs on the goroutine
// that drains the camera. It may issue new requests but must not call Drain
// or ProcessNext.
type Observer interface {
	HandleEvent(Event)
}

// ObserverFunc adapts a plain function to Observer
type ObserverFunc func(Event)

// HandleEvent implements Observer
func (f ObserverFunc) HandleEvent(e Event) {
	f(e)
}
