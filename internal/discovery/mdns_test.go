package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantName string
		wantIP   string
		wantPort int
	}{
		{
			name: "camera with IPv4",
			entry: &zeroconf.ServiceEntry{
				HostName: "E-M10MarkII-4F2A.local.",
				Port:     80,
				AddrIPv4: []net.IP{net.ParseIP("192.168.0.10")},
				Text:     []string{"path=/", "model=E-M10MarkII"},
			},
			wantName: "E-M10MarkII-4F2A",
			wantIP:   "192.168.0.10",
			wantPort: 80,
		},
		{
			name: "vendor prefix without trailing dot",
			entry: &zeroconf.ServiceEntry{
				HostName: "OLYMPUS-E-M1.local",
				Port:     8080,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantName: "OLYMPUS-E-M1",
			wantIP:   "10.0.0.5",
			wantPort: 8080,
		},
		{
			name: "no port defaults to 80",
			entry: &zeroconf.ServiceEntry{
				HostName: "om-d.local",
				AddrIPv4: []net.IP{net.ParseIP("172.16.0.1")},
			},
			wantName: "om-d",
			wantIP:   "172.16.0.1",
			wantPort: 80,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				HostName: "PEN-F.local",
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantName: "PEN-F",
			wantIP:   "fe80::1",
			wantPort: 80,
		},
		{
			name: "prefers IPv4",
			entry: &zeroconf.ServiceEntry{
				HostName: "TG-6.local",
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::2")},
			},
			wantName: "TG-6",
			wantIP:   "192.168.1.50",
			wantPort: 80,
		},
		{
			name: "printer is not a camera",
			entry: &zeroconf.ServiceEntry{
				HostName: "printer.local",
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name:    "empty hostname",
			entry:   &zeroconf.ServiceEntry{AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")}},
			wantNil: true,
		},
		{
			name:    "no address",
			entry:   &zeroconf.ServiceEntry{HostName: "E-M5.local"},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if device != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", device)
				}
				return
			}
			if device == nil {
				t.Fatal("parseServiceEntry() = nil, want device")
			}

			if device.Name != tt.wantName {
				t.Errorf("device.Name = %v, want %v", device.Name, tt.wantName)
			}
			if device.IP != tt.wantIP {
				t.Errorf("device.IP = %v, want %v", device.IP, tt.wantIP)
			}
			if device.Port != tt.wantPort {
				t.Errorf("device.Port = %v, want %v", device.Port, tt.wantPort)
			}
			if device.Source != SourceMDNS {
				t.Errorf("device.Source = %v, want mdns", device.Source)
			}
		})
	}
}

func TestParseServiceEntry_Metadata(t *testing.T) {
	device := parseServiceEntry(&zeroconf.ServiceEntry{
		HostName: "E-M10MarkII.local",
		AddrIPv4: []net.IP{net.ParseIP("192.168.0.10")},
		Text:     []string{"path=/", "model=E-M10MarkII", "flag"},
	})
	if device == nil {
		t.Fatal("parseServiceEntry() = nil, want device")
	}

	if device.Model != "E-M10MarkII" {
		t.Errorf("device.Model = %q, want E-M10MarkII", device.Model)
	}
	if v, ok := device.Metadata["flag"]; !ok || v != "" {
		t.Errorf("key without value should map to empty string, got %q, %v", v, ok)
	}
}

// fakeBrowse feeds entries and closes the channel when ctx ends, as the
// zeroconf resolver does.
func fakeBrowse(entries ...*zeroconf.ServiceEntry) func(context.Context, chan<- *zeroconf.ServiceEntry) error {
	return func(ctx context.Context, out chan<- *zeroconf.ServiceEntry) error {
		go func() {
			defer close(out)
			for _, e := range entries {
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
			<-ctx.Done()
		}()
		return nil
	}
}

func TestScanMDNS_DeduplicatesAndFilters(t *testing.T) {
	camEntry := &zeroconf.ServiceEntry{
		HostName: "E-M10MarkII.local.",
		AddrIPv4: []net.IP{net.ParseIP("192.168.0.10")},
	}
	scanner := &Scanner{
		Timeout: 100 * time.Millisecond,
		browse: fakeBrowse(
			camEntry,
			&zeroconf.ServiceEntry{HostName: "nas.local.", AddrIPv4: []net.IP{net.ParseIP("192.168.0.2")}},
			camEntry,
		),
	}

	devices, err := scanner.ScanMDNS(context.Background())
	if err != nil {
		t.Fatalf("ScanMDNS() error = %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("ScanMDNS() found %d devices, want 1", len(devices))
	}
	if devices[0].IP != "192.168.0.10" {
		t.Errorf("device IP = %v, want 192.168.0.10", devices[0].IP)
	}
}

func TestScanMDNS_BrowseError(t *testing.T) {
	scanner := &Scanner{
		Timeout: time.Second,
		browse: func(context.Context, chan<- *zeroconf.ServiceEntry) error {
			return errors.New("no multicast interface")
		},
	}

	if _, err := scanner.ScanMDNS(context.Background()); err == nil {
		t.Error("ScanMDNS() should return the browse error")
	}
}

func TestDiscover_NoFallback(t *testing.T) {
	scanner := &Scanner{Timeout: 50 * time.Millisecond, browse: fakeBrowse()}

	devices, err := scanner.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("Discover() = %v, want none", devices)
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
	if !scanner.ProbeFallback {
		t.Error("probe fallback should be on by default")
	}
}

func TestHostnamePattern(t *testing.T) {
	tests := []struct {
		hostname    string
		shouldMatch bool
	}{
		{"E-M10MarkII.local", true},
		{"e-m1.local.", true},
		{"OLYMPUS-E-PL9.local", true},
		{"OM-1.local", true},
		{"PEN-F.local", true},
		{"TG-6.local", true},
		{"E-M10MarkII", false},
		{"eValve315260240.local", false},
		{"somedevice.local", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			if got := hostnamePattern.MatchString(tt.hostname); got != tt.shouldMatch {
				t.Errorf("hostnamePattern.MatchString(%q) = %v, want %v", tt.hostname, got, tt.shouldMatch)
			}
		})
	}
}
