package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/omd/internal/camera"
	"github.com/muurk/omd/internal/logging"
)

const (
	// ServiceType is the mDNS service type cameras advertise their web server under
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for discovery
	DefaultScanTimeout = 5 * time.Second
)

// hostnamePattern matches camera hostnames such as "E-M10MarkII-4F2A.local",
// "OLYMPUS-E-M1.local" or "OM-D.local". The first group is the host label.
var hostnamePattern = regexp.MustCompile(`(?i)^((?:olympus|om-?d|om-\d|e-m\d|e-p|pen|tg-\d)[\w-]*)\.local\.?$`)

// Scanner handles camera discovery
type Scanner struct {
	// Timeout is the maximum time to wait for mDNS answers
	Timeout time.Duration

	// ProbeFallback makes Discover probe camera.DefaultAddress when mDNS
	// finds nothing. Cameras in access point mode rarely advertise.
	ProbeFallback bool

	browse func(ctx context.Context, entries chan<- *zeroconf.ServiceEntry) error
}

// NewScanner creates a new scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout:       DefaultScanTimeout,
		ProbeFallback: true,
		browse:        browseMDNS,
	}
}

func browseMDNS(ctx context.Context, entries chan<- *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}
	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	return nil
}

// Discover browses mDNS for cameras and, if none answer and ProbeFallback
// is set, probes the default access point address.
func (s *Scanner) Discover(ctx context.Context) ([]*Device, error) {
	devices, err := s.ScanMDNS(ctx)
	if err != nil {
		logging.Warn("mDNS browse failed", zap.Error(err))
	}
	if len(devices) > 0 || !s.ProbeFallback {
		return devices, err
	}

	device, probeErr := Probe(ctx, camera.DefaultAddress, camera.DefaultPort)
	if probeErr != nil {
		logging.Debug("Default address probe failed", zap.Error(probeErr))
		return nil, err
	}
	return []*Device{device}, nil
}

// ScanMDNS collects camera advertisements until Timeout elapses
func (s *Scanner) ScanMDNS(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	var mu sync.Mutex
	seen := make(map[string]bool)
	devices := make([]*Device, 0)

	go func() {
		for entry := range entries {
			device := parseServiceEntry(entry)
			if device == nil {
				continue
			}
			mu.Lock()
			if !seen[device.Hostname] {
				seen[device.Hostname] = true
				devices = append(devices, device)
				logging.Debug("Camera advertised", zap.String("hostname", device.Hostname), zap.String("ip", device.IP))
			}
			mu.Unlock()
		}
	}()

	if err := s.browse(ctx, entries); err != nil {
		return nil, err
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return append([]*Device(nil), devices...), nil
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil if the entry does not look like a camera.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	hostname := entry.HostName
	if hostname == "" {
		return nil
	}

	matches := hostnamePattern.FindStringSubmatch(hostname)
	if len(matches) < 2 {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = camera.DefaultPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &Device{
		Name:         matches[1],
		Hostname:     hostname,
		IP:           ip,
		Port:         port,
		Model:        metadata["model"],
		Metadata:     metadata,
		Source:       SourceMDNS,
		DiscoveredAt: time.Now(),
	}
}
