package relay

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/omd/internal/camera"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 5*time.Second, 10*time.Millisecond)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage(camera.Event{Kind: camera.EventCamModeChanged, Endpoint: camera.EndpointSwitchCamMode, CamMode: camera.ModePlay})
	assert.Equal(t, "cam_mode_changed", msg.Type)
	assert.Equal(t, "switch_cammode", msg.Endpoint)
	assert.Equal(t, "play", msg.CamMode)

	msg = NewMessage(camera.Event{Kind: camera.EventCapacityUpdated, Capacity: 0})
	require.NotNil(t, msg.Capacity)
	assert.Equal(t, uint64(0), *msg.Capacity)

	msg = NewMessage(camera.Event{Kind: camera.EventImagesUpdated, Images: map[string]camera.ImageDescriptor{
		"/DCIM/100OLYMP/B.JPG": {Path: "/DCIM/100OLYMP/B.JPG", Size: 2},
		"/DCIM/100OLYMP/A.JPG": {Path: "/DCIM/100OLYMP/A.JPG", Size: 1},
	}})
	require.Len(t, msg.Images, 2)
	assert.Equal(t, "/DCIM/100OLYMP/A.JPG", msg.Images[0].Path)
}

func TestErrorMessage(t *testing.T) {
	msg := ErrorMessage(camera.NewHTTPError("get_caminfo", "u", 503))
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Contains(t, msg.Error, "503")
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	first := dial(t, server.URL)
	second := dial(t, server.URL)
	waitForClients(t, hub, 2)

	hub.HandleEvent(camera.Event{Kind: camera.EventModelUpdated, Model: "E-M10MarkII"})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, "model_updated", msg.Type)
		assert.Equal(t, "E-M10MarkII", msg.Model)
	}
}

func TestHub_ReplaysLatestStateToNewClients(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	hub.HandleEvent(camera.Event{Kind: camera.EventModelUpdated, Model: "E-M5"})
	hub.HandleEvent(camera.Event{Kind: camera.EventModelUpdated, Model: "E-M10MarkII"})
	hub.HandleEvent(camera.Event{Kind: camera.EventCamModeChanged, CamMode: camera.ModeRecord})
	hub.Broadcast(ErrorMessage(errors.New("transient")))

	conn := dial(t, server.URL)

	modeMsg := readMessage(t, conn)
	modelMsg := readMessage(t, conn)
	assert.Equal(t, "cam_mode_changed", modeMsg.Type)
	assert.Equal(t, "record", modeMsg.CamMode)
	assert.Equal(t, "model_updated", modelMsg.Type)
	assert.Equal(t, "E-M10MarkII", modelMsg.Model)
}

func TestHub_ForwardsCommands(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server.URL)
	require.NoError(t, conn.WriteJSON(Command{Command: "mode", Arg: "play"}))

	select {
	case cmd := <-hub.Commands():
		assert.Equal(t, Command{Command: "mode", Arg: "play"}, cmd)
	case <-time.After(5 * time.Second):
		t.Fatal("command not forwarded")
	}
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server.URL)
	waitForClients(t, hub, 1)

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

// fakeCamera answers the calls Initialize and the commands make.
func fakeCamera(t *testing.T) *httptest.Server {
	t.Helper()
	xmlReplies := map[string]string{
		"/get_connectmode.cgi":    `<?xml version="1.0"?><connectmode>private</connectmode>`,
		"/get_caminfo.cgi":        `<?xml version="1.0"?><caminfo><model>E-M10MarkII</model></caminfo>`,
		"/get_commandlist.cgi":    `<?xml version="1.0"?><oishare><version>2.60</version></oishare>`,
		"/get_unusedcapacity.cgi": `<?xml version="1.0"?><unused>1024</unused>`,
		"/get_camprop.cgi":        `<?xml version="1.0"?><desclist><desc><propname>takemode</propname><attribute>getset</attribute><value>P</value></desc></desclist>`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if body, ok := xmlReplies[r.URL.Path]; ok {
			w.Header().Set("Content-Type", "text/xml")
			_, _ = io.WriteString(w, body)
			return
		}
		if r.URL.Path == "/DCIM/100OLYMP/P1010001.JPG" {
			var buf bytes.Buffer
			_ = jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 6)), nil)
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(buf.Bytes())
			return
		}
		if r.URL.Path == "/get_imglist.cgi" {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = io.WriteString(w, "VER_100\r\n/DCIM/100OLYMP,P1010001.JPG,1024,0,18242,40154\r\n")
			return
		}
		w.Header().Set("Content-Type", "www/unknown")
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRun_ExecutesCommands(t *testing.T) {
	camServer := fakeCamera(t)
	cam := camera.NewWithURL(camServer.URL)
	defer cam.Close()

	hub := NewHub()
	wsServer := httptest.NewServer(hub)
	defer wsServer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cam, hub, time.Hour) }()

	conn := dial(t, wsServer.URL)
	require.NoError(t, conn.WriteJSON(Command{Command: "bogus"}))
	require.NoError(t, conn.WriteJSON(Command{Command: "mode", Arg: "play"}))

	var sawError, sawPlay bool
	deadline := time.Now().Add(5 * time.Second)
	for !(sawError && sawPlay) && time.Now().Before(deadline) {
		msg := readMessage(t, conn)
		switch {
		case msg.Type == MessageTypeError && strings.Contains(msg.Error, "bogus"):
			sawError = true
		case msg.Type == "cam_mode_changed" && msg.CamMode == "play" && sawError:
			sawPlay = true
		}
	}
	assert.True(t, sawError, "unknown command should be reported")
	assert.True(t, sawPlay, "mode command should switch to play")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRun_DeliversFetchedImages(t *testing.T) {
	cam := camera.NewWithURL(fakeCamera(t).URL)
	defer cam.Close()

	hub := NewHub()
	wsServer := httptest.NewServer(hub)
	defer wsServer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = Run(ctx, cam, hub, time.Hour) }()

	conn := dial(t, wsServer.URL)
	require.NoError(t, conn.WriteJSON(Command{Command: "fetch", Arg: "P1010001.JPG"}))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msg := readMessage(t, conn)
		if msg.Type == "image_received" {
			assert.Equal(t, "P1010001", msg.ImageName)
			assert.Equal(t, 8, msg.ImageWidth)
			assert.Equal(t, 6, msg.ImageHeight)
			return
		}
	}
	t.Fatal("no image_received message")
}

func TestExecute_Validation(t *testing.T) {
	cam := camera.NewWithURL("http://127.0.0.1:1")
	defer cam.Close()

	assert.Error(t, Execute(cam, Command{Command: "mode", Arg: "sideways"}))
	assert.Error(t, Execute(cam, Command{Command: "zoom", Arg: "sideways"}))
	assert.Error(t, Execute(cam, Command{Command: "fetch"}))
	assert.Error(t, Execute(cam, Command{Command: "set_property"}))
	assert.Equal(t, 0, cam.Pending())
}

func TestServer_StartAndShutdown(t *testing.T) {
	hub := NewHub()
	server := NewServer(&Config{Listen: "127.0.0.1:0"}, hub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	select {
	case <-server.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	base := "http://" + server.Addr().String()
	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	conn := dial(t, base+"/events")
	waitForClients(t, hub, 1)
	hub.HandleEvent(camera.Event{Kind: camera.EventPoweredOff})
	assert.Equal(t, "powered_off", readMessage(t, conn).Type)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
