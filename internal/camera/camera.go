package camera

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/omd/internal/logging"
)

const (
	// DefaultAddress is where cameras put themselves in access point mode
	DefaultAddress = "192.168.0.10"

	// DefaultPort is the camera's HTTP port
	DefaultPort = 80

	// DefaultTimeout is the per-request HTTP timeout
	DefaultTimeout = 10 * time.Second

	// DefaultLiveViewQuality is sent along with a switch to record mode
	DefaultLiveViewQuality = "0320x0240"

	// onlineTimeout bounds the TCP probe in IsOnline
	onlineTimeout = 2 * time.Second

	// completionQueueSize is how many finished exchanges may wait for a drain
	// before their goroutines block
	completionQueueSize = 32
)

// ErrIdle is returned by ProcessNext when nothing is in flight.
var ErrIdle = errors.New("no requests in flight")

// ZoomMode is a zoom lens command for ControlZoom.
type ZoomMode int

const (
	ZoomOff ZoomMode = iota
	ZoomWideMove
	ZoomTeleMove
	ZoomWideTerm
	ZoomTeleTerm
)

// String returns the wire spelling of the zoom command
func (z ZoomMode) String() string {
	switch z {
	case ZoomWideMove:
		return "widemove"
	case ZoomTeleMove:
		return "telemove"
	case ZoomWideTerm:
		return "wideterm"
	case ZoomTeleTerm:
		return "teleterm"
	default:
		return "off"
	}
}

// ParseZoomMode accepts the wire spelling of a zoom command
func ParseZoomMode(s string) (ZoomMode, error) {
	for _, z := range []ZoomMode{ZoomOff, ZoomWideMove, ZoomTeleMove, ZoomWideTerm, ZoomTeleTerm} {
		if z.String() == s {
			return z, nil
		}
	}
	return ZoomOff, fmt.Errorf("unknown zoom mode %q (expected off, widemove, telemove, wideterm or teleterm)", s)
}

type subscription struct {
	id       int
	observer Observer
}

// Camera is a client for one camera. Requests are issued without blocking;
// their responses are routed, and device state updated, only while the
// caller is inside Drain or ProcessNext. A Camera must be driven from a
// single goroutine.
type Camera struct {
	// BaseURL is the base URL for the camera (e.g., "http://192.168.0.10")
	BaseURL string

	// UserAgent is sent on every request
	UserAgent string

	// HTTPClient performs the exchanges
	HTTPClient Doer

	// DrainTimeout bounds each Drain call (0 = wait as long as ctx allows)
	DrainTimeout time.Duration

	// LiveViewQuality is sent with switches to record mode
	LiveViewQuality string

	// OnError, if set, receives every error met while routing responses
	OnError func(error)

	state       *DeviceState
	pending     *pendingSet
	router      *router
	completions chan completion
	inflight    int

	subscriptions []subscription
	nextSubID     int

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a camera client for address:port
func New(address string, port int) *Camera {
	return NewWithURL(fmt.Sprintf("http://%s:%d", address, port))
}

// NewWithURL creates a camera client with a full base URL
func NewWithURL(baseURL string) *Camera {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Camera{
		BaseURL:         strings.TrimSuffix(baseURL, "/"),
		UserAgent:       DefaultUserAgent,
		HTTPClient:      &http.Client{Timeout: DefaultTimeout},
		LiveViewQuality: DefaultLiveViewQuality,
		state:           newDeviceState(),
		pending:         newPendingSet(),
		completions:     make(chan completion, completionQueueSize),
		ctx:             ctx,
		cancel:          cancel,
	}
	c.router = newRouter(c.state, c.emit)
	return c
}

// SetTimeout sets the per-request HTTP timeout when the default client is used
func (c *Camera) SetTimeout(timeout time.Duration) {
	if hc, ok := c.HTTPClient.(*http.Client); ok {
		hc.Timeout = timeout
	}
}

// Close aborts in-flight requests. The camera must not be used afterwards.
func (c *Camera) Close() {
	c.cancel()
}

// Subscribe registers an observer for notifications and returns a function
// that removes it again.
func (c *Camera) Subscribe(o Observer) func() {
	c.nextSubID++
	id := c.nextSubID
	c.subscriptions = append(c.subscriptions, subscription{id: id, observer: o})

	return func() {
		for i, s := range c.subscriptions {
			if s.id == id {
				c.subscriptions = append(c.subscriptions[:i], c.subscriptions[i+1:]...)
				return
			}
		}
	}
}

// emit walks a copy so observers may unsubscribe from HandleEvent.
func (c *Camera) emit(e Event) {
	for _, s := range slices.Clone(c.subscriptions) {
		s.observer.HandleEvent(e)
	}
}

// Issue registers op as in flight and starts it. It never blocks.
func (c *Camera) Issue(op *Operation) (*PendingRequest, error) {
	return c.issue(op, true)
}

func (c *Camera) issue(op *Operation, tracked bool) (*PendingRequest, error) {
	req, err := op.Request(c.BaseURL, c.UserAgent)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(c.ctx)

	p := &PendingRequest{
		ID:        uuid.New(),
		Operation: op,
		URL:       req.URL.String(),
		IssuedAt:  time.Now(),
		Tracked:   tracked,
	}
	if tracked {
		c.pending.add(p)
	}
	c.inflight++

	logging.LogRequest(p.ID.String(), req.Method, p.URL, tracked)

	doer := c.HTTPClient
	go func() {
		env := execute(doer, req)
		select {
		case c.completions <- completion{request: p, envelope: env}:
		case <-c.ctx.Done():
		}
	}()

	return p, nil
}

// Pending returns the number of tracked requests not yet completed
func (c *Camera) Pending() int {
	return c.pending.len()
}

// Drain blocks until every tracked request issued before the call has
// completed, routing completions as they arrive. Completions of requests
// issued later are routed too but do not extend the wait.
func (c *Camera) Drain(ctx context.Context) error {
	waiting := c.pending.snapshot()
	if len(waiting) == 0 {
		return nil
	}

	if c.DrainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.DrainTimeout)
		defer cancel()
	}

	for len(waiting) > 0 {
		select {
		case cpl := <-c.completions:
			c.complete(cpl)
			delete(waiting, cpl.request.ID)
		case <-ctx.Done():
			return drainError(len(waiting), ctx.Err())
		}
	}
	return nil
}

// ProcessNext blocks for a single completion, tracked or not, and routes it.
func (c *Camera) ProcessNext(ctx context.Context) error {
	if c.inflight == 0 {
		return ErrIdle
	}

	select {
	case cpl := <-c.completions:
		c.complete(cpl)
		return nil
	case <-ctx.Done():
		return drainError(c.inflight, ctx.Err())
	}
}

func drainError(outstanding int, err error) error {
	t := ErrTypeTimeout
	if !errors.Is(err, context.DeadlineExceeded) {
		t = ErrTypeUnknown
	}
	return &DeviceError{
		Type:    t,
		Message: fmt.Sprintf("%d request(s) still outstanding", outstanding),
		Err:     err,
	}
}

// complete routes one completion and then deregisters its request.
func (c *Camera) complete(cpl completion) {
	c.inflight--
	env := cpl.envelope
	logging.LogCompletion(cpl.request.ID.String(), env.URL, env.ContentType, env.Size)

	if err := c.router.route(cpl.request, env); err != nil {
		c.report(err)
	}
	c.pending.remove(cpl.request.ID)
}

func (c *Camera) report(err error) {
	if IsTransportError(err) {
		logging.Warn("Request failed", zap.Error(err))
	} else {
		logging.Error("Failed to handle reply", zap.Error(err))
	}
	if c.OnError != nil {
		c.OnError(err)
	}
}

// Initialize brings the client in sync with the camera: identity and
// catalog in play mode, storage and images, then properties in record mode.
func (c *Camera) Initialize(ctx context.Context) error {
	steps := []func() error{
		c.RequestConnectMode,
		c.RequestCamInfo,
		c.RequestCommands,
		func() error { return c.SwitchCamMode(ModePlay) },
	}
	if err := c.run(ctx, steps); err != nil {
		return err
	}

	steps = []func() error{
		c.RequestCapacity,
		func() error { return c.RequestImages(DefaultImageDir, false) },
		func() error { return c.SwitchCamMode(ModeRecord) },
	}
	if err := c.run(ctx, steps); err != nil {
		return err
	}

	return c.run(ctx, []func() error{c.RequestProperties})
}

func (c *Camera) run(ctx context.Context, steps []func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return c.Drain(ctx)
}

// IsOnline reports whether the camera accepts TCP connections on its HTTP port
func (c *Camera) IsOnline(ctx context.Context) bool {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return false
	}
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), strconv.Itoa(DefaultPort))
	}

	dialer := net.Dialer{Timeout: onlineTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (c *Camera) get(endpoint Endpoint, params ...Param) error {
	_, err := c.issue(NewGet(endpoint, params...), true)
	return err
}

// RequestCamInfo asks for the camera model
func (c *Camera) RequestCamInfo() error { return c.get(EndpointCamInfo) }

// RequestCapacity asks for the unused storage capacity
func (c *Camera) RequestCapacity() error { return c.get(EndpointUnusedCapacity) }

// RequestConnectMode asks for the network sharing mode
func (c *Camera) RequestConnectMode() error { return c.get(EndpointConnectMode) }

// RequestCommands asks for the command catalog
func (c *Camera) RequestCommands() error { return c.get(EndpointCommandList) }

// TakeShot triggers the shutter
func (c *Camera) TakeShot() error { return c.get(EndpointTakeMotion) }

// PowerOff switches the camera off
func (c *Camera) PowerOff() error { return c.get(EndpointPowerOff) }

// RequestProperties asks for the description of every camera property
func (c *Camera) RequestProperties() error {
	return c.get(EndpointGetCamProp,
		Param{Key: "com", Value: "desc"},
		Param{Key: "propname", Value: "desclist"},
	)
}

// RequestImages lists dir (DefaultImageDir if empty). reserved selects the
// reserved-image listing instead.
func (c *Camera) RequestImages(dir string, reserved bool) error {
	if dir == "" {
		dir = DefaultImageDir
	}
	endpoint := EndpointImageList
	if reserved {
		endpoint = EndpointReservedImageList
	}
	return c.get(endpoint, Param{Key: "DIR", Value: strings.ReplaceAll(dir, "/", "%2F")})
}

// RequestImage fetches /DCIM/100OLYMP/<name>.JPG. The fetch is not tracked:
// Drain does not wait for it, but its reply is routed whenever it is
// picked up by Drain or ProcessNext and raises EventImageReceived.
func (c *Camera) RequestImage(name string) error {
	_, err := c.issue(newImageFetch(name), false)
	return err
}

// ImageURL returns the URL RequestImage fetches for name
func (c *Camera) ImageURL(name string) string {
	return newImageFetch(name).URL(c.BaseURL)
}

// SwitchCamMode asks the camera to change its operating mode. ModeUnknown
// is ignored.
func (c *Camera) SwitchCamMode(mode CamMode) error {
	var params []Param

	switch mode {
	case ModePlay:
		params = []Param{{Key: "mode", Value: "play"}}
	case ModeRecord:
		params = []Param{{Key: "mode", Value: "rec"}, {Key: "lvqty", Value: c.LiveViewQuality}}
	case ModeShutter:
		params = []Param{{Key: "mode", Value: "shutter"}}
	default:
		return nil
	}

	op := NewGet(EndpointSwitchCamMode, params...)
	op.Mode = mode
	_, err := c.issue(op, true)
	return err
}

// ControlZoom drives the zoom lens
func (c *Camera) ControlZoom(zoom ZoomMode) error {
	return c.get(EndpointTakeMisc,
		Param{Key: "com", Value: "ctrlzoom"},
		Param{Key: "move", Value: zoom.String()},
	)
}

// SetProperty changes a camera property. When the property description is
// known, read-only properties and values outside the enum are refused
// without contacting the camera.
func (c *Camera) SetProperty(name, value string) error {
	if p, ok := c.state.Properties.Get(name); ok {
		if !p.Writable() {
			return fmt.Errorf("property %s is read-only", name)
		}
		if !p.Allows(value) {
			return fmt.Errorf("invalid value %q for property %s (allowed: %s)", value, name, strings.Join(p.Enum, ", "))
		}
	}

	op := NewPost(EndpointSetCamProp, setPropertyBody(value),
		Param{Key: "com", Value: "set"},
		Param{Key: "propname", Value: name},
	)
	_, err := c.issue(op, true)
	return err
}

// Property returns the last known value of a camera property
func (c *Camera) Property(name string) (string, bool) {
	p, ok := c.state.Properties.Get(name)
	if !ok {
		return "", false
	}
	return p.Value, true
}

// Model returns the last reported camera model
func (c *Camera) Model() string { return c.state.Model }

// UnusedCapacity returns the last reported free storage in bytes
func (c *Camera) UnusedCapacity() uint64 { return c.state.UnusedCapacity }

// ConnectMode returns the last reported connect mode
func (c *Camera) ConnectMode() ConnectMode { return c.state.ConnectMode }

// CamMode returns the last acknowledged operating mode
func (c *Camera) CamMode() CamMode { return c.state.CamMode }

// CommandList returns the stored command catalog, or nil
func (c *Camera) CommandList() *etree.Document { return c.state.CommandList }

// Images returns a copy of the known images keyed by path
func (c *Camera) Images() map[string]ImageDescriptor { return maps.Clone(c.state.Images) }

// Properties returns a copy of the known property descriptions
func (c *Camera) Properties() *Properties { return c.state.Properties.Clone() }

// State returns a snapshot of everything the client knows about the camera
func (c *Camera) State() DeviceState { return c.state.Snapshot() }

// ClearImages forgets every known image so the next listing starts fresh
func (c *Camera) ClearImages() {
	clear(c.state.Images)
}
