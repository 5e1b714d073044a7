package camera

import (
	"strings"
	"testing"
	"time"
)

func getSampleState() *DeviceState {
	s := newDeviceState()
	s.Model = "E-M10MarkII"
	s.ConnectMode = ConnectPrivate
	s.CamMode = ModePlay
	s.UnusedCapacity = 15538896896
	s.Images["/DCIM/100OLYMP/P1010002.JPG"] = ImageDescriptor{
		Path: "/DCIM/100OLYMP/P1010002.JPG", Name: "P1010002.JPG", Size: 2048,
		Timestamp: time.Date(2015, 10, 2, 19, 38, 52, 0, time.UTC),
	}
	s.Images["/DCIM/100OLYMP/P1010001.JPG"] = ImageDescriptor{
		Path: "/DCIM/100OLYMP/P1010001.JPG", Name: "P1010001.JPG", Size: 1024, Reserved: true,
	}
	return s
}

func TestDeviceState_Summary(t *testing.T) {
	summary := getSampleState().Summary()

	if strings.Count(summary, "\n") > 0 {
		t.Error("Summary() should return a single line")
	}
	for _, part := range []string{"E-M10MarkII", "play", "14.5 GiB", "2 image(s)"} {
		if !strings.Contains(summary, part) {
			t.Errorf("Summary() missing expected part: %s", part)
		}
	}
}

func TestDeviceState_FormatImages(t *testing.T) {
	out := getSampleState().FormatImages()

	first := strings.Index(out, "P1010001.JPG")
	second := strings.Index(out, "P1010002.JPG")
	if first < 0 || second < 0 || first > second {
		t.Errorf("FormatImages() should list images sorted by path:\n%s", out)
	}
	if !strings.Contains(out, "* /DCIM/100OLYMP/P1010001.JPG") {
		t.Errorf("reserved images should be marked:\n%s", out)
	}
}

func TestDeviceState_FormatEmpty(t *testing.T) {
	s := newDeviceState()

	if !strings.Contains(s.FormatImages(), "(none)") {
		t.Error("empty image list should print (none)")
	}
	if !strings.Contains(s.FormatProperties(), "(none)") {
		t.Error("empty property list should print (none)")
	}
	if !strings.Contains(s.Summary(), "(unknown model)") {
		t.Error("summary should flag an unknown model")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestDeviceState_FormatOnSnapshot(t *testing.T) {
	cam := NewWithURL("http://192.168.0.10")
	t.Cleanup(cam.Close)
	cam.state = getSampleState()

	if got := cam.State().Summary(); !strings.Contains(got, "E-M10MarkII") {
		t.Errorf("State().Summary() = %q, want model", got)
	}
	if got := cam.State().FormatCompact(); got == "" {
		t.Error("State().FormatCompact() should not be empty")
	}
}
