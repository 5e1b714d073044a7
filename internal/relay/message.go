package relay

import (
	"time"

	"github.com/muurk/omd/internal/camera"
)

// MessageTypeError is the type of messages reporting a failed command or reply
const MessageTypeError = "error"

// Message is the JSON form of a camera notification pushed to websocket clients.
type Message struct {
	Type     string    `json:"type"`
	Time     time.Time `json:"time"`
	Endpoint string    `json:"endpoint,omitempty"`

	Model       string            `json:"model,omitempty"`
	Capacity    *uint64           `json:"capacity,omitempty"`
	ConnectMode string            `json:"connect_mode,omitempty"`
	CamMode     string            `json:"cam_mode,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
	Images      []ImageInfo       `json:"images,omitempty"`

	ImageName   string `json:"image_name,omitempty"`
	ImageWidth  int    `json:"image_width,omitempty"`
	ImageHeight int    `json:"image_height,omitempty"`

	Error string `json:"error,omitempty"`
}

// ImageInfo is one listing entry
type ImageInfo struct {
	Path      string    `json:"path"`
	Size      uint64    `json:"size"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Reserved  bool      `json:"reserved,omitempty"`
}

// NewMessage converts a camera event
func NewMessage(e camera.Event) Message {
	msg := Message{
		Type:     e.Kind.String(),
		Time:     e.Time,
		Endpoint: e.Endpoint.Name(),
	}

	switch e.Kind {
	case camera.EventModelUpdated:
		msg.Model = e.Model
	case camera.EventCapacityUpdated:
		capacity := e.Capacity
		msg.Capacity = &capacity
	case camera.EventConnectModeChanged:
		msg.ConnectMode = e.ConnectMode.String()
	case camera.EventCamModeChanged:
		msg.CamMode = e.CamMode.String()
	case camera.EventPropertiesUpdated:
		if e.Properties != nil {
			msg.Properties = make(map[string]string, e.Properties.Len())
			for _, name := range e.Properties.Names() {
				p, _ := e.Properties.Get(name)
				msg.Properties[name] = p.Value
			}
		}
	case camera.EventImagesUpdated:
		for _, img := range camera.SortedImages(e.Images) {
			msg.Images = append(msg.Images, ImageInfo{
				Path:      img.Path,
				Size:      img.Size,
				Timestamp: img.Timestamp,
				Reserved:  img.Reserved,
			})
		}
	case camera.EventImageReceived:
		msg.ImageName = e.ImageName
		if e.Image != nil {
			b := e.Image.Bounds()
			msg.ImageWidth, msg.ImageHeight = b.Dx(), b.Dy()
		}
	}

	return msg
}

// ErrorMessage wraps err for clients
func ErrorMessage(err error) Message {
	return Message{
		Type:  MessageTypeError,
		Time:  time.Now(),
		Error: camera.GetShortErrorMessage(err),
	}
}

// Command is what clients send to drive the camera.
type Command struct {
	Command string `json:"command"`
	Arg     string `json:"arg,omitempty"`
	Value   string `json:"value,omitempty"`
}
