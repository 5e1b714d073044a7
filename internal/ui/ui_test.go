package ui

import (
	"bytes"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/omd/internal/camera"
)

func TestPrinter_BoxesKeepFieldOrder(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(80)

	p.PrintSuccess("Image saved", Field{Key: "File", Value: "P1010001.JPG"}, Field{Key: "Size", Value: "2.0 MiB"})

	out := buf.String()
	assert.Contains(t, out, "Image saved")
	assert.Less(t, strings.Index(out, "P1010001.JPG"), strings.Index(out, "2.0 MiB"))
}

func TestPrinter_ErrorBox(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(80)

	p.PrintError("Request failed", errors.New("boom"), []string{"Check the Wi-Fi link"})

	out := buf.String()
	assert.Contains(t, out, "Request failed")
	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, "Check the Wi-Fi link")
}

func TestPrinter_MinimumWidth(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}).SetWidth(10)
	assert.Equal(t, MinTerminalWidth, p.Width())
}

func TestRenderHeader_Params(t *testing.T) {
	out := RenderHeader("camera status", "omd-ctl info", []Field{{Key: "Address", Value: "192.168.0.10"}}, 80)
	assert.Contains(t, out, "CAMERA STATUS")
	assert.Contains(t, out, "omd-ctl info")
	assert.Contains(t, out, "192.168.0.10")
}

func TestProgress(t *testing.T) {
	p := NewProgress("Downloading images...", []string{"A.JPG", "B.JPG", "C.JPG", "D.JPG"}).SetWidth(80)
	require.Equal(t, 4, p.Total())
	assert.Zero(t, p.Percent())

	p.StartStep(1, "")
	p.CompleteStep(1, "1.0 MiB")
	p.SkipStep(2, "exists")
	p.StartStep(3, "")
	p.FailStep(3, "timeout")

	assert.Equal(t, 3, p.Current())
	assert.InDelta(t, 0.5, p.Percent(), 1e-9)
	assert.Equal(t, 1, p.Failed())

	out := p.Render()
	assert.Contains(t, out, "Downloading images...")
	assert.Contains(t, out, "(1.0 MiB)")
	assert.Contains(t, out, "D.JPG")
}

func TestProgress_IgnoresOutOfRange(t *testing.T) {
	p := NewProgress("", []string{"A.JPG"})
	p.CompleteStep(0, "")
	p.CompleteStep(2, "")
	assert.Zero(t, p.Percent())
}

func TestProgress_HidesLongStepLists(t *testing.T) {
	names := make([]string, MaxVisibleSteps+5)
	for i := range names {
		names[i] = "IMG" + string(rune('A'+i)) + ".JPG"
	}
	p := NewProgress("", names).SetWidth(80)
	p.StartStep(3, "")

	out := p.Render()
	assert.Contains(t, out, names[2])
	assert.NotContains(t, out, names[0])
}

func TestProgress_Empty(t *testing.T) {
	assert.Equal(t, 1.0, NewProgress("", nil).Percent())
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := Confirm(strings.NewReader(tt.input), &out, "POWER OFF", []string{"warning"})
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Contains(t, out.String(), "POWER OFF")
	}
}

func TestConfirmPowerOff_NamesModel(t *testing.T) {
	var out bytes.Buffer
	assert.False(t, ConfirmPowerOff(strings.NewReader("no\n"), &out, "E-M10MarkII"))
	assert.Contains(t, out.String(), "E-M10MarkII")
}

func testState() camera.DeviceState {
	return camera.DeviceState{
		Model:          "E-M5MarkII",
		UnusedCapacity: 3 << 30,
		CamMode:        camera.ModePlay,
		ConnectMode:    camera.ConnectPrivate,
		Images: map[string]camera.ImageDescriptor{
			"/DCIM/100OLYMP/P2.JPG": {Path: "/DCIM/100OLYMP/P2.JPG", Name: "P2.JPG", Size: 2048, Reserved: true},
			"/DCIM/100OLYMP/P1.JPG": {Path: "/DCIM/100OLYMP/P1.JPG", Name: "P1.JPG", Size: 1024},
		},
		Properties: camera.NewProperties(),
	}
}

func TestStatusFields(t *testing.T) {
	fields := StatusFields(testState())
	require.GreaterOrEqual(t, len(fields), 5)
	assert.Equal(t, Field{Key: "Model", Value: "E-M5MarkII"}, fields[0])
	assert.Equal(t, "play", fields[1].Value)
	assert.Equal(t, "3.0 GiB", fields[3].Value)

	assert.Equal(t, "(unknown)", StatusFields(camera.DeviceState{})[0].Value)
}

func TestRenderImages(t *testing.T) {
	out := RenderImages(testState().Images, 90)
	assert.Contains(t, out, "Images (2)")
	assert.Less(t, strings.Index(out, "P1.JPG"), strings.Index(out, "P2.JPG"))
	assert.Contains(t, out, ReservedMarker)

	assert.Contains(t, RenderImages(nil, 80), "No images listed")
}

func TestRenderProperties_Empty(t *testing.T) {
	assert.Contains(t, RenderProperties(nil, 80), "No properties reported")
	assert.Contains(t, RenderProperties(camera.NewProperties(), 80), "No properties reported")
}

func TestWatchModel_AppliesEvents(t *testing.T) {
	events := make(chan camera.Event, 4)
	m := NewWatchModel("Live", events, nil, nil)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	next, cmd := m.Update(eventMsg(camera.Event{Kind: camera.EventModelUpdated, Time: at, Model: "E-M1"}))
	require.NotNil(t, cmd)
	m = next.(WatchModel)

	next, _ = m.Update(eventMsg(camera.Event{Kind: camera.EventCapacityUpdated, Time: at, Capacity: 1024}))
	m = next.(WatchModel)

	next, _ = m.Update(eventMsg(camera.Event{
		Kind:      camera.EventImageReceived,
		Time:      at,
		ImageName: "P1.JPG",
		Image:     image.NewRGBA(image.Rect(0, 0, 4, 3)),
	}))
	m = next.(WatchModel)

	assert.Equal(t, "E-M1", m.State.Model)
	assert.Equal(t, uint64(1024), m.State.UnusedCapacity)
	require.Len(t, m.Log, 3)
	assert.Contains(t, m.Log[0], "03:04:05")
	assert.Contains(t, m.Log[2], "P1.JPG 4x3")
	assert.Contains(t, m.View(), "E-M1")
}

func TestWatchModel_LogIsBounded(t *testing.T) {
	m := NewWatchModel("Live", nil, nil, nil)
	for i := 0; i < watchLogSize+5; i++ {
		m.apply(camera.Event{Kind: camera.EventCapacityUpdated, Capacity: uint64(i)})
	}
	assert.Len(t, m.Log, watchLogSize)
}

func TestWatchModel_QuitsOnPowerOffAndClose(t *testing.T) {
	m := NewWatchModel("Live", nil, nil, nil)

	_, cmd := m.Update(eventMsg(camera.Event{Kind: camera.EventPoweredOff}))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	next, cmd := m.Update(feedClosedMsg{})
	assert.True(t, next.(WatchModel).Closed)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWatchModel_Keys(t *testing.T) {
	refresh := make(chan struct{}, 1)
	m := NewWatchModel("Live", nil, nil, refresh)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}) // full channel does not block
	assert.Len(t, refresh, 1)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWatchModel_Errors(t *testing.T) {
	errs := make(chan error, 1)
	m := NewWatchModel("Live", nil, errs, nil)

	next, cmd := m.Update(errMsg{err: camera.NewHTTPError("get_caminfo", "http://x/get_caminfo.cgi", 500)})
	m = next.(WatchModel)
	require.NotNil(t, cmd)
	require.Error(t, m.LastErr)
	require.Len(t, m.Log, 1)
	assert.Contains(t, m.Log[0], "error")
}
