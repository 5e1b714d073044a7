package camera

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		contentType string
		size        int
		want        Category
	}{
		{"text/xml", 120, CategoryXML},
		{"text/xml", 0, CategoryUnclassifiable},
		{"text/plain", 64, CategoryList},
		{"text/plain", 0, CategoryUnclassifiable},
		{"www/unknown", 0, CategoryEmpty},
		{"www/unknown", 5, CategoryUnclassifiable},
		{"image/jpeg", 2048, CategoryImage},
		{"image/jpeg", 0, CategoryUnclassifiable},
		{"application/octet-stream", 10, CategoryUnclassifiable},
		{"", 0, CategoryUnclassifiable},
	}

	for _, tt := range tests {
		t.Run(tt.contentType+"/"+tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.contentType, tt.size))
		})
	}
}

// routerFixture routes envelopes into a fresh state and records events.
type routerFixture struct {
	state  *DeviceState
	router *router
	events []Event
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{state: newDeviceState()}
	f.router = newRouter(f.state, func(e Event) { f.events = append(f.events, e) })
	return f
}

func (f *routerFixture) route(req *PendingRequest, endpoint Endpoint, contentType string, body []byte) error {
	return f.router.route(req, &Envelope{
		Endpoint:     endpoint,
		EndpointName: endpoint.Name(),
		ContentType:  contentType,
		Body:         body,
		Size:         len(body),
		URL:          "http://cam/" + endpoint.Name() + ".cgi",
		StatusCode:   200,
	})
}

func (f *routerFixture) kinds() []EventKind {
	var kinds []EventKind
	for _, e := range f.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// changedFields names the DeviceState fields that differ between two snapshots.
func changedFields(before, after DeviceState) []string {
	var changed []string
	if before.Model != after.Model {
		changed = append(changed, "Model")
	}
	if before.UnusedCapacity != after.UnusedCapacity {
		changed = append(changed, "UnusedCapacity")
	}
	if before.ConnectMode != after.ConnectMode {
		changed = append(changed, "ConnectMode")
	}
	if before.CamMode != after.CamMode {
		changed = append(changed, "CamMode")
	}
	if (before.CommandList == nil) != (after.CommandList == nil) {
		changed = append(changed, "CommandList")
	}
	if len(before.Images) != len(after.Images) {
		changed = append(changed, "Images")
	}
	if before.Properties.Len() != after.Properties.Len() {
		changed = append(changed, "Properties")
	}
	return changed
}

func TestRoute_EachEndpointOwnsOneField(t *testing.T) {
	tests := []struct {
		name        string
		endpoint    Endpoint
		contentType string
		body        string
		field       string
		kind        EventKind
	}{
		{
			name:        "caminfo",
			endpoint:    EndpointCamInfo,
			contentType: ContentTypeXML,
			body:        `<?xml version="1.0"?><caminfo><model>E-M10MarkII</model></caminfo>`,
			field:       "Model",
			kind:        EventModelUpdated,
		},
		{
			name:        "unused capacity",
			endpoint:    EndpointUnusedCapacity,
			contentType: ContentTypeXML,
			body:        `<?xml version="1.0"?><unused>15538896896</unused>`,
			field:       "UnusedCapacity",
			kind:        EventCapacityUpdated,
		},
		{
			name:        "connect mode",
			endpoint:    EndpointConnectMode,
			contentType: ContentTypeXML,
			body:        `<?xml version="1.0"?><connectmode>private</connectmode>`,
			field:       "ConnectMode",
			kind:        EventConnectModeChanged,
		},
		{
			name:        "command list",
			endpoint:    EndpointCommandList,
			contentType: ContentTypeXML,
			body:        `<?xml version="1.0"?><oishare><version>2.60</version><cgi name="get_caminfo"/></oishare>`,
			field:       "CommandList",
			kind:        EventCommandListUpdated,
		},
		{
			name:        "properties",
			endpoint:    EndpointGetCamProp,
			contentType: ContentTypeXML,
			body:        desclistXML,
			field:       "Properties",
			kind:        EventPropertiesUpdated,
		},
		{
			name:        "image list",
			endpoint:    EndpointImageList,
			contentType: ContentTypePlain,
			body:        "VER_100\r\n/DCIM/100OLYMP,P1010001.JPG,2592339,0,18242,40154\r\n",
			field:       "Images",
			kind:        EventImagesUpdated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture()
			before := f.state.Snapshot()

			require.NoError(t, f.route(nil, tt.endpoint, tt.contentType, []byte(tt.body)))

			assert.Equal(t, []string{tt.field}, changedFields(before, f.state.Snapshot()))
			assert.Equal(t, []EventKind{tt.kind}, f.kinds())
		})
	}
}

func TestRoute_ParsedValues(t *testing.T) {
	f := newRouterFixture()

	require.NoError(t, f.route(nil, EndpointCamInfo, ContentTypeXML,
		[]byte(`<?xml version="1.0"?><caminfo><model> E-M10MarkII </model></caminfo>`)))
	require.NoError(t, f.route(nil, EndpointUnusedCapacity, ContentTypeXML,
		[]byte(`<?xml version="1.0"?><unused>15538896896</unused>`)))
	require.NoError(t, f.route(nil, EndpointConnectMode, ContentTypeXML,
		[]byte(`<?xml version="1.0"?><connectmode>shared</connectmode>`)))

	assert.Equal(t, "E-M10MarkII", f.state.Model)
	assert.Equal(t, uint64(15538896896), f.state.UnusedCapacity)
	assert.Equal(t, ConnectShared, f.state.ConnectMode)

	require.Len(t, f.events, 3)
	assert.Equal(t, "E-M10MarkII", f.events[0].Model)
	assert.Equal(t, uint64(15538896896), f.events[1].Capacity)
	assert.Equal(t, ConnectShared, f.events[2].ConnectMode)
}

func TestRoute_MalformedCamInfoKeepsModel(t *testing.T) {
	f := newRouterFixture()
	f.state.Model = "E-M5"

	err := f.route(nil, EndpointCamInfo, ContentTypeXML, []byte(`<caminfo><model>E-M10`))

	require.Error(t, err)
	assert.True(t, IsMalformedBody(err))
	assert.Equal(t, "E-M5", f.state.Model)
	assert.Empty(t, f.events)
}

func TestRoute_MissingElementIsNoOp(t *testing.T) {
	f := newRouterFixture()
	f.state.Model = "E-M5"

	require.NoError(t, f.route(nil, EndpointCamInfo, ContentTypeXML, []byte(`<?xml version="1.0"?><other/>`)))
	require.NoError(t, f.route(nil, EndpointUnusedCapacity, ContentTypeXML, []byte(`<?xml version="1.0"?><other/>`)))

	assert.Equal(t, "E-M5", f.state.Model)
	assert.Empty(t, f.events)
}

func TestRoute_NonNumericCapacity(t *testing.T) {
	f := newRouterFixture()
	f.state.UnusedCapacity = 42

	err := f.route(nil, EndpointUnusedCapacity, ContentTypeXML, []byte(`<?xml version="1.0"?><unused>lots</unused>`))

	assert.True(t, IsMalformedBody(err))
	assert.Equal(t, uint64(42), f.state.UnusedCapacity)
}

func TestRoute_UnclassifiableLeavesStateAlone(t *testing.T) {
	f := newRouterFixture()
	before := f.state.Snapshot()

	err := f.route(nil, EndpointCamInfo, "application/octet-stream", []byte{0x01, 0x02, 0x03})

	require.Error(t, err)
	assert.True(t, IsUnclassifiable(err))
	assert.Contains(t, err.Error(), "application/octet-stream")
	assert.Empty(t, changedFields(before, f.state.Snapshot()))
	assert.Empty(t, f.events)
}

func TestRoute_TransportErrorSkipsClassification(t *testing.T) {
	f := newRouterFixture()
	transportErr := NewHTTPError("get_caminfo", "http://cam/get_caminfo.cgi", 503)

	err := f.router.route(nil, &Envelope{
		Endpoint:    EndpointCamInfo,
		ContentType: ContentTypeXML,
		Body:        []byte(`<caminfo><model>X</model></caminfo>`),
		Size:        36,
		Err:         transportErr,
	})

	assert.Same(t, transportErr, err)
	assert.Empty(t, f.state.Model)
}

func TestRoute_TakeMotionAndTakeMiscAreNoOps(t *testing.T) {
	f := newRouterFixture()
	before := f.state.Snapshot()

	require.NoError(t, f.route(nil, EndpointTakeMotion, ContentTypeXML,
		[]byte(`<?xml version="1.0"?><response><result>ok</result></response>`)))
	require.NoError(t, f.route(nil, EndpointTakeMisc, ContentTypeXML,
		[]byte(`<?xml version="1.0"?><response><result>ok</result></response>`)))

	assert.Empty(t, changedFields(before, f.state.Snapshot()))
	assert.Empty(t, f.events)
}

func TestRoute_ModeAckCommitsRequestedMode(t *testing.T) {
	f := newRouterFixture()
	op := NewGet(EndpointSwitchCamMode, Param{Key: "mode", Value: "play"})
	op.Mode = ModePlay

	require.NoError(t, f.route(&PendingRequest{Operation: op}, EndpointSwitchCamMode, ContentTypeEmpty, nil))

	assert.Equal(t, ModePlay, f.state.CamMode)
	require.Len(t, f.events, 1)
	assert.Equal(t, EventCamModeChanged, f.events[0].Kind)
	assert.Equal(t, ModePlay, f.events[0].CamMode)
}

func TestRoute_EmptyAckForOtherEndpointsIsIgnored(t *testing.T) {
	f := newRouterFixture()
	before := f.state.Snapshot()

	require.NoError(t, f.route(nil, EndpointSetCamProp, ContentTypeEmpty, nil))
	require.NoError(t, f.route(nil, EndpointSwitchCamMode, ContentTypeEmpty, nil))

	assert.Empty(t, changedFields(before, f.state.Snapshot()))
	assert.Empty(t, f.events)
}

func TestRoute_PowerOff(t *testing.T) {
	f := newRouterFixture()

	require.NoError(t, f.route(nil, EndpointPowerOff, ContentTypeEmpty, nil))
	assert.Equal(t, []EventKind{EventPoweredOff}, f.kinds())
}

func TestRoute_ListingIsIdempotent(t *testing.T) {
	f := newRouterFixture()
	body := []byte("VER_100\r\n" +
		"/DCIM/100OLYMP,P1010001.JPG,2592339,0,18242,40154\r\n" +
		"/DCIM/100OLYMP,P1010002.JPG,2600000,0,18242,40160\r\n")

	require.NoError(t, f.route(nil, EndpointImageList, ContentTypePlain, body))
	first := f.state.Snapshot().Images
	require.NoError(t, f.route(nil, EndpointImageList, ContentTypePlain, body))

	assert.Equal(t, first, f.state.Images)
	assert.Len(t, f.state.Images, 2)
}

func TestRoute_ListingAccumulates(t *testing.T) {
	f := newRouterFixture()

	require.NoError(t, f.route(nil, EndpointImageList, ContentTypePlain,
		[]byte("VER_100\r\n/DCIM/100OLYMP,P1010001.JPG,1,0,18242,40154\r\n")))
	require.NoError(t, f.route(nil, EndpointReservedImageList, ContentTypePlain,
		[]byte("VER_100\r\n/DCIM/100OLYMP,P1010009.JPG,1,0,18242,40154\r\n")))

	require.Len(t, f.state.Images, 2)
	assert.True(t, f.state.Images["/DCIM/100OLYMP/P1010009.JPG"].Reserved)
	assert.False(t, f.state.Images["/DCIM/100OLYMP/P1010001.JPG"].Reserved)
}

func TestRoute_ImageDecode(t *testing.T) {
	f := newRouterFixture()

	err := f.route(nil, EndpointImage, ContentTypeJPEG, []byte("not a jpeg at all"))
	require.Error(t, err)
	assert.True(t, IsImageDecodeError(err))
	assert.Empty(t, f.events)

	require.NoError(t, f.route(nil, EndpointImage, ContentTypeJPEG, testJPEG(t)))
	require.Len(t, f.events, 1)
	assert.Equal(t, EventImageReceived, f.events[0].Kind)
	assert.Equal(t, 4, f.events[0].Image.Bounds().Dx())
}

func TestRoute_RecoversFromObserverPanic(t *testing.T) {
	state := newDeviceState()
	r := newRouter(state, func(Event) { panic("observer exploded") })

	err := r.route(nil, &Envelope{
		Endpoint:     EndpointPowerOff,
		EndpointName: "exec_pwoff",
		ContentType:  ContentTypeEmpty,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "observer exploded")
}

func TestRoute_DeclaredEncoding(t *testing.T) {
	f := newRouterFixture()

	body := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><caminfo><model>E-M10 `), 0xC9, 't', 'e')
	body = append(body, []byte(`</model></caminfo>`)...)

	require.NoError(t, f.route(nil, EndpointCamInfo, ContentTypeXML, body))
	assert.Equal(t, "E-M10 Éte", f.state.Model)
	require.Len(t, f.events, 1)
}

func TestParseXML(t *testing.T) {
	_, err := parseXML([]byte(`<a><b></a>`))
	assert.Error(t, err)

	_, err = parseXML([]byte(`   `))
	assert.Error(t, err)

	_, err = parseXML([]byte(`<?xml version="1.0" encoding="x-no-such-charset"?><a/>`))
	assert.Error(t, err)

	doc, err := parseXML([]byte(`<?xml version="1.0"?><a><b>x</b></a>`))
	require.NoError(t, err)
	assert.Equal(t, "a", doc.Root().Tag)
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}
