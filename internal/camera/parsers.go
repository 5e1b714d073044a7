package camera

import (
	"bytes"
	"image/jpeg"
	"maps"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/muurk/omd/internal/logging"
)

func (r *router) parseCamInfo(doc *etree.Document) error {
	caminfo := doc.SelectElement("caminfo")
	if caminfo == nil {
		return nil
	}
	model := caminfo.SelectElement("model")
	if model == nil {
		return nil
	}

	r.state.Model = strings.TrimSpace(model.Text())
	logging.Info("Camera model", zap.String("model", r.state.Model))
	r.notify(Event{Kind: EventModelUpdated, Endpoint: EndpointCamInfo, Model: r.state.Model})
	return nil
}

func (r *router) parseCapacity(env *Envelope, doc *etree.Document) error {
	unused := doc.SelectElement("unused")
	if unused == nil {
		return nil
	}

	capacity, err := strconv.ParseUint(strings.TrimSpace(unused.Text()), 10, 64)
	if err != nil {
		return NewMalformedBodyError(env.EndpointName, "unused capacity is not a number", err)
	}

	r.state.UnusedCapacity = capacity
	r.notify(Event{Kind: EventCapacityUpdated, Endpoint: EndpointUnusedCapacity, Capacity: capacity})
	return nil
}

func (r *router) parseConnectMode(doc *etree.Document) error {
	elm := doc.SelectElement("connectmode")
	if elm == nil {
		return nil
	}

	r.state.ConnectMode = parseConnectMode(strings.TrimSpace(elm.Text()))
	r.notify(Event{Kind: EventConnectModeChanged, Endpoint: EndpointConnectMode, ConnectMode: r.state.ConnectMode})
	return nil
}

// parseCommandList keeps the catalog verbatim; nothing reads into it yet.
func (r *router) parseCommandList(doc *etree.Document) error {
	r.state.CommandList = doc
	r.notify(Event{Kind: EventCommandListUpdated, Endpoint: EndpointCommandList})
	return nil
}

func (r *router) parseProperties(env *Envelope, doc *etree.Document) error {
	desclist := doc.SelectElement("desclist")
	if desclist == nil {
		return nil
	}

	if err := r.state.Properties.Parse(desclist); err != nil {
		return NewMalformedBodyError(env.EndpointName, "invalid property description", err)
	}
	r.notify(Event{Kind: EventPropertiesUpdated, Endpoint: env.Endpoint, Properties: r.state.Properties.Clone()})
	return nil
}

// parseTakeMotion is where exec_takemotion results (focus and shot
// outcomes) would be decoded. The camera's replies are accepted and dropped.
func (r *router) parseTakeMotion(doc *etree.Document) error {
	logging.Debug("exec_takemotion reply not interpreted", zap.String("root", doc.Root().Tag))
	return nil
}

// parseTakeMisc mirrors parseTakeMotion for exec_takemisc.
func (r *router) parseTakeMisc(doc *etree.Document) error {
	logging.Debug("exec_takemisc reply not interpreted", zap.String("root", doc.Root().Tag))
	return nil
}

func (r *router) parseList(env *Envelope) error {
	reserved := env.Endpoint == EndpointReservedImageList

	header, images, bad := parseListing(env.Body, reserved)
	logging.Debug("Image listing", zap.String("version_header", header), zap.Int("entries", len(images)))

	for _, err := range bad {
		logging.Warn("Skipping listing line", zap.String("endpoint", env.EndpointName), zap.Error(err))
	}

	for _, img := range images {
		r.state.Images[img.Path] = img
	}

	r.notify(Event{Kind: EventImagesUpdated, Endpoint: env.Endpoint, Images: maps.Clone(r.state.Images)})
	return nil
}

func (r *router) parseImage(env *Envelope) error {
	img, err := jpeg.Decode(bytes.NewReader(env.Body))
	if err != nil {
		return NewImageDecodeError(env.EndpointName, env.Size, err)
	}

	r.notify(Event{
		Kind:      EventImageReceived,
		Endpoint:  env.Endpoint,
		ImageName: env.EndpointName,
		Image:     img,
		ImageData: env.Body,
	})
	return nil
}
