package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/omd/internal/camera"
	"github.com/muurk/omd/internal/logging"
)

// DefaultPollInterval is how often Run refreshes the free capacity
const DefaultPollInterval = 30 * time.Second

// Run drives cam on the calling goroutine until ctx ends: it initializes
// the camera, then executes hub commands and polls capacity, pushing every
// notification and error to the hub.
func Run(ctx context.Context, cam *camera.Camera, hub *Hub, poll time.Duration) error {
	unsubscribe := cam.Subscribe(hub)
	defer unsubscribe()

	onError := cam.OnError
	cam.OnError = func(err error) {
		hub.Broadcast(ErrorMessage(err))
		if onError != nil {
			onError(err)
		}
	}
	defer func() { cam.OnError = onError }()

	if err := cam.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize camera: %w", err)
	}
	state := cam.State()
	logging.Info("Camera ready", zap.String("summary", state.Summary()))

	if poll <= 0 {
		poll = DefaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-hub.Commands():
			err = Execute(cam, cmd)
		case <-ticker.C:
			err = cam.RequestCapacity()
		}

		if err == nil {
			err = cam.Drain(ctx)
		}
		if err == nil {
			err = settle(ctx, cam)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logging.Warn("Command failed", zap.Error(err))
			hub.Broadcast(ErrorMessage(err))
		}
	}
}

// settle routes untracked completions, such as image fetches, that Drain
// does not wait for.
func settle(ctx context.Context, cam *camera.Camera) error {
	for {
		err := cam.ProcessNext(ctx)
		if errors.Is(err, camera.ErrIdle) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Execute issues the requests for one client command. It does not drain.
func Execute(cam *camera.Camera, cmd Command) error {
	switch cmd.Command {
	case "info":
		if err := cam.RequestCamInfo(); err != nil {
			return err
		}
		return cam.RequestConnectMode()
	case "capacity":
		return cam.RequestCapacity()
	case "mode":
		mode := camera.ParseCamMode(cmd.Arg)
		if mode == camera.ModeUnknown {
			return fmt.Errorf("unknown mode %q (expected rec, play or shutter)", cmd.Arg)
		}
		return cam.SwitchCamMode(mode)
	case "images":
		cam.ClearImages()
		return cam.RequestImages(cmd.Arg, cmd.Value == "reserved")
	case "fetch":
		if cmd.Arg == "" {
			return errors.New("fetch needs an image name")
		}
		return cam.RequestImage(strings.TrimSuffix(cmd.Arg, ".JPG"))
	case "properties":
		return cam.RequestProperties()
	case "set_property":
		if cmd.Arg == "" {
			return errors.New("set_property needs a property name")
		}
		return cam.SetProperty(cmd.Arg, cmd.Value)
	case "shot":
		return cam.TakeShot()
	case "zoom":
		zoom, err := camera.ParseZoomMode(cmd.Arg)
		if err != nil {
			return err
		}
		return cam.ControlZoom(zoom)
	case "power_off":
		return cam.PowerOff()
	default:
		return fmt.Errorf("unknown command %q", cmd.Command)
	}
}
