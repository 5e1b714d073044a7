package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/muurk/omd/internal/camera"
)

// probeTimeout bounds the get_caminfo exchange of a probe
const probeTimeout = 3 * time.Second

// Probe checks whether a camera answers at address:port. It needs both a
// TCP connection and a get_caminfo reply naming a model.
func Probe(ctx context.Context, address string, port int) (*Device, error) {
	hostport := net.JoinHostPort(address, strconv.Itoa(port))

	cam := camera.New(address, port)
	defer cam.Close()
	cam.SetTimeout(probeTimeout)
	cam.DrainTimeout = probeTimeout

	if !cam.IsOnline(ctx) {
		return nil, fmt.Errorf("nothing listening on %s", hostport)
	}

	var replyErr error
	cam.OnError = func(err error) { replyErr = err }

	if err := cam.RequestCamInfo(); err != nil {
		return nil, err
	}
	if err := cam.Drain(ctx); err != nil {
		return nil, fmt.Errorf("probe of %s failed: %w", hostport, err)
	}
	if replyErr != nil {
		return nil, fmt.Errorf("probe of %s failed: %w", hostport, replyErr)
	}
	if cam.Model() == "" {
		return nil, fmt.Errorf("%s did not report a camera model", hostport)
	}

	return &Device{
		IP:           address,
		Port:         port,
		Model:        cam.Model(),
		Source:       SourceProbe,
		DiscoveredAt: time.Now(),
	}, nil
}
