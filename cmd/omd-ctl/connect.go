package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/omd/internal/camera"
	"github.com/muurk/omd/internal/config"
	"github.com/muurk/omd/internal/discovery"
	"github.com/muurk/omd/internal/logging"
	"github.com/muurk/omd/internal/ui"
)

// Connection flags, persistent on root
var (
	cameraAddress string
	cameraPort    int
	timeoutSecs   int
	logLevel      string
	outputFormat  string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cameraAddress, "address", "", "Camera IP address or nickname (default from config, then 192.168.0.10)")
	rootCmd.PersistentFlags().IntVar(&cameraPort, "port", 0, "Camera HTTP port (default from config, then 80)")
	rootCmd.PersistentFlags().IntVar(&timeoutSecs, "timeout", 0, "Per-request timeout in seconds (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, compact, json)")
}

// loadRegistry returns the user configuration, falling back to defaults
// when the file cannot be read.
func loadRegistry() *config.Registry {
	reg, err := config.LoadRegistry()
	if err != nil {
		logging.Warn("Ignoring unreadable config file", zap.Error(err))
		return config.NewRegistry()
	}
	return reg
}

// resolveAddress decides which host and port to talk to: flags first (a
// known nickname maps to its last IP), then mDNS discovery when enabled,
// then the configured address.
func resolveAddress(ctx context.Context, reg *config.Registry) (string, int) {
	settings := reg.Camera
	address, port := settings.Address, settings.Port
	if port == 0 {
		port = camera.DefaultPort
	}

	if cameraAddress != "" {
		address = cameraAddress
		if model, known := reg.FindByNickname(cameraAddress); known != nil && known.LastIP != "" {
			logging.Debug("Resolved nickname", zap.String("nickname", cameraAddress), zap.String("model", model))
			address = known.LastIP
		}
	} else if reg.Preferences != nil && reg.Preferences.AutoDiscover {
		scanner := discovery.NewScanner()
		if reg.Preferences.DiscoverTimeout > 0 {
			scanner.Timeout = time.Duration(reg.Preferences.DiscoverTimeout) * time.Second
		}
		devices, err := scanner.ScanMDNS(ctx)
		if err != nil {
			logging.Warn("Discovery failed", zap.Error(err))
		} else if len(devices) > 0 {
			logging.Info("Using discovered camera", zap.String("device", devices[0].String()))
			address, port = devices[0].IP, devices[0].Port
		}
	}
	if address == "" {
		address = camera.DefaultAddress
	}

	if cameraPort != 0 {
		port = cameraPort
	}
	return address, port
}

// connect builds a camera client from flags and config.
func connect(ctx context.Context) (*camera.Camera, *config.Registry, string) {
	reg := loadRegistry()
	address, port := resolveAddress(ctx, reg)

	cam := camera.New(address, port)
	reg.Camera.Apply(cam)
	if timeoutSecs > 0 {
		cam.SetTimeout(time.Duration(timeoutSecs) * time.Second)
	}

	logging.Debug("Camera client ready", zap.String("base_url", cam.BaseURL))
	return cam, reg, address
}

// errorCollector records the errors a camera reports while routing replies.
type errorCollector struct {
	errs []error
}

func (c *errorCollector) record(err error) {
	c.errs = append(c.errs, err)
}

// first returns the first error seen, if any
func (c *errorCollector) first() error {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs[0]
}

// session is one command's conversation with the camera.
type session struct {
	ctx     context.Context
	cam     *camera.Camera
	reg     *config.Registry
	address string
	errs    *errorCollector
	printer *ui.Printer
}

func newSession(cmd *cobra.Command) *session {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cam, reg, address := connect(ctx)
	errs := &errorCollector{}
	cam.OnError = errs.record

	return &session{
		ctx:     ctx,
		cam:     cam,
		reg:     reg,
		address: address,
		errs:    errs,
		printer: ui.NewPrinter(cmd.OutOrStdout()),
	}
}

// do issues the requests, drains them and returns the first failure,
// either from issuing, draining or routing.
func (s *session) do(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	if err := s.cam.Drain(s.ctx); err != nil {
		return err
	}
	return s.errs.first()
}

// switchMode moves the camera into mode and checks that it got there.
func (s *session) switchMode(mode camera.CamMode) error {
	if s.cam.CamMode() == mode {
		return nil
	}
	if err := s.do(func() error { return s.cam.SwitchCamMode(mode) }); err != nil {
		return err
	}
	if s.cam.CamMode() != mode {
		return fmt.Errorf("camera did not switch to %s mode", mode)
	}
	return nil
}

// remember saves the camera identity to the config file.
func (s *session) remember() {
	model := s.cam.Model()
	if model == "" {
		return
	}
	s.reg.RememberCamera(model, s.address, s.cam.ConnectMode())
	if err := s.reg.Save(); err != nil {
		logging.Warn("Failed to save config", zap.Error(err))
	}
}

func (s *session) close() {
	s.cam.Close()
}

// fail prints an error box with the camera's troubleshooting hint and
// returns err for cobra.
func (s *session) fail(title string, err error) error {
	if outputFormat == "json" {
		return err
	}
	var tips []string
	if hint := camera.GetTroubleshootingHint(err); hint != "" {
		tips = append(tips, hint)
	}
	s.printer.PrintError(title, err, tips)
	return fmt.Errorf("%s: %s", title, camera.GetShortErrorMessage(err))
}
