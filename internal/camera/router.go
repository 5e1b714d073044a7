package camera

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/muurk/omd/internal/logging"
)

// Content types the camera declares on its responses.
const (
	ContentTypeXML   = "text/xml"
	ContentTypePlain = "text/plain"
	ContentTypeJPEG  = "image/jpeg"

	// ContentTypeEmpty is what the firmware declares on bodiless acknowledgements.
	ContentTypeEmpty = "www/unknown"
)

// Category is the outcome of classifying a response.
type Category int

const (
	CategoryUnclassifiable Category = iota
	CategoryXML
	CategoryList
	CategoryEmpty
	CategoryImage
)

// String implements fmt.Stringer
func (c Category) String() string {
	switch c {
	case CategoryXML:
		return "xml"
	case CategoryList:
		return "list"
	case CategoryEmpty:
		return "empty"
	case CategoryImage:
		return "image"
	default:
		return "unclassifiable"
	}
}

// Classify maps a declared content type and body size to a category. The
// URL never takes part in classification.
func Classify(contentType string, size int) Category {
	switch {
	case contentType == ContentTypeXML && size > 0:
		return CategoryXML
	case contentType == ContentTypePlain && size > 0:
		return CategoryList
	case contentType == ContentTypeEmpty && size == 0:
		return CategoryEmpty
	case contentType == ContentTypeJPEG && size > 0:
		return CategoryImage
	default:
		return CategoryUnclassifiable
	}
}

// router turns completed responses into state updates and events.
type router struct {
	state *DeviceState
	emit  func(Event)
	now   func() time.Time
}

func newRouter(state *DeviceState, emit func(Event)) *router {
	return &router{state: state, emit: emit, now: time.Now}
}

// route handles one completion. It never panics; every failure comes back
// as an error for the caller to report.
func (r *router) route(req *PendingRequest, env *Envelope) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &DeviceError{
				Type:     ErrTypeUnknown,
				Message:  fmt.Sprintf("panic while handling response: %v", rec),
				Endpoint: env.EndpointName,
				URL:      env.URL,
			}
		}
	}()

	if env.Err != nil {
		return env.Err
	}

	category := Classify(env.ContentType, env.Size)
	logging.Debug("Routing response",
		zap.String("endpoint", env.EndpointName),
		zap.String("category", category.String()),
	)

	switch category {
	case CategoryXML:
		return r.routeXML(env)
	case CategoryList:
		return r.parseList(env)
	case CategoryEmpty:
		return r.routeEmpty(req, env)
	case CategoryImage:
		return r.parseImage(env)
	default:
		logging.LogRawBytes("Unclassifiable response body", env.Body)
		return NewUnclassifiableError(env.EndpointName, env.ContentType, env.Size, env.URL)
	}
}

func (r *router) routeXML(env *Envelope) error {
	doc, err := parseXML(env.Body)
	if err != nil {
		logging.LogRawBytes("Malformed XML body", env.Body)
		return NewMalformedBodyError(env.EndpointName, "failed to parse XML reply", err)
	}

	switch env.Endpoint {
	case EndpointCamInfo:
		return r.parseCamInfo(doc)
	case EndpointUnusedCapacity:
		return r.parseCapacity(env, doc)
	case EndpointConnectMode:
		return r.parseConnectMode(doc)
	case EndpointCommandList:
		return r.parseCommandList(doc)
	case EndpointGetCamProp, EndpointSetCamProp:
		return r.parseProperties(env, doc)
	case EndpointTakeMotion:
		return r.parseTakeMotion(doc)
	case EndpointTakeMisc:
		return r.parseTakeMisc(doc)
	default:
		logging.Debug("Ignoring XML reply for unhandled endpoint",
			zap.String("endpoint", env.EndpointName),
		)
		return nil
	}
}

func (r *router) routeEmpty(req *PendingRequest, env *Envelope) error {
	switch env.Endpoint {
	case EndpointSwitchCamMode:
		if req == nil || req.Operation == nil {
			logging.Warn("Mode switch acknowledged without a matching request",
				zap.String("url", env.URL),
			)
			return nil
		}
		r.state.CamMode = req.Operation.Mode
		logging.Info("Camera mode changed", zap.String("mode", r.state.CamMode.String()))
		r.notify(Event{Kind: EventCamModeChanged, Endpoint: env.Endpoint, CamMode: r.state.CamMode})

	case EndpointPowerOff:
		logging.Info("Camera powered off")
		r.notify(Event{Kind: EventPoweredOff, Endpoint: env.Endpoint})

	default:
		logging.Debug("Empty acknowledgement", zap.String("endpoint", env.EndpointName))
	}
	return nil
}

func (r *router) notify(e Event) {
	if e.Time.IsZero() {
		e.Time = r.now()
	}
	if r.emit != nil {
		r.emit(e)
	}
}

// parseXML parses body into a document. The strict decoder pass rejects
// documents with unbalanced or unclosed elements before etree sees them.
// Declared encodings are transcoded to UTF-8.
func parseXML(body []byte) (*etree.Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, errors.New("document has no root element")
	}
	return doc, nil
}
