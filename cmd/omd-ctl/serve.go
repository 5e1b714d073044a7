package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/omd/internal/camera"
	"github.com/muurk/omd/internal/config"
	"github.com/muurk/omd/internal/discovery"
	"github.com/muurk/omd/internal/logging"
	"github.com/muurk/omd/internal/relay"
	"github.com/muurk/omd/internal/ui"
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configNicknameCmd)
}

// Scan flags
var (
	scanTimeout int
	scanNoProbe bool
)

// scanCmd discovers cameras on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for cameras on the network",
	Long: `Scan for cameras using mDNS/DNS-SD discovery.

Cameras joined to a shared network may announce themselves over mDNS.
When nothing answers, the default camera address is probed directly,
which finds a camera whose own Wi-Fi network you have joined.`,
	Example: `  omd-ctl scan
  omd-ctl scan --timeout 10
  omd-ctl scan --no-probe`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "scan-timeout", int(discovery.DefaultScanTimeout/time.Second), "Scan timeout in seconds")
	scanCmd.Flags().BoolVar(&scanNoProbe, "no-probe", false, "Do not probe the default camera address")
}

func runScan(cmd *cobra.Command, args []string) error {
	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second
	scanner.ProbeFallback = !scanNoProbe

	printer := ui.NewPrinter(cmd.OutOrStdout())
	if outputFormat != "json" {
		printer.Println(fmt.Sprintf("Scanning for cameras (timeout: %ds)...", scanTimeout))
		printer.Newline()
	}

	devices, err := scanner.Discover(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), devices)
	}

	if len(devices) == 0 {
		printer.PrintError("No cameras found", nil, []string{
			"Ensure the camera's Wi-Fi is enabled (Menu > Connection to Smartphone)",
			"Join the camera's Wi-Fi network from this computer",
			"Try increasing --scan-timeout on slow networks",
			"Use --address to specify the camera IP manually",
		})
		return nil
	}

	reg := loadRegistry()
	for i, d := range devices {
		fields := []ui.Field{
			{Key: "Address", Value: d.BaseURL()},
			{Key: "Found via", Value: string(d.Source)},
		}
		if d.Model != "" {
			fields = append(fields, ui.Field{Key: "Model", Value: d.Model})
			if known := reg.GetCamera(d.Model); known != nil && known.Nickname != "" {
				fields = append(fields, ui.Field{Key: "Nickname", Value: known.Nickname})
			}
		}
		printer.PrintSuccess(fmt.Sprintf("%d. %s", i+1, d.String()), fields...)
	}
	return nil
}

// Serve flags
var (
	serveListen string
	servePoll   int
)

// serveCmd relays camera notifications over websocket
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Relay camera events to websocket clients",
	Long: `Connect to the camera and relay its notifications to websocket clients.

Clients connect to ws://<listen>/events and receive one JSON message per
camera notification. New clients first receive the latest known state.
Clients may send commands as JSON, for example:

  {"command": "mode", "arg": "play"}
  {"command": "set_property", "arg": "isospeedvalue", "value": "400"}

Free capacity is refreshed periodically. GET /healthz reports status.`,
	Example: `  omd-ctl serve
  omd-ctl serve --listen 0.0.0.0:8765 --poll 10`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", relay.DefaultListen, "Address to listen on")
	serveCmd.Flags().IntVar(&servePoll, "poll", int(relay.DefaultPollInterval/time.Second), "Capacity refresh interval in seconds")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cam, _, _ := connect(ctx)
	defer cam.Close()

	hub := relay.NewHub()
	server := relay.NewServer(&relay.Config{Listen: serveListen}, hub)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	select {
	case <-server.Ready():
		fmt.Fprintf(cmd.OutOrStdout(), "Relaying %s on ws://%s/events\n", cam.BaseURL, server.Addr())
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	runErr := relay.Run(ctx, cam, hub, time.Duration(servePoll)*time.Second)
	stop()

	if err := <-serverErr; err != nil {
		logging.Error("Server stopped with error", zap.Error(err))
	}
	return runErr
}

var watchPoll int

// watchCmd shows live camera notifications
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch camera state live",
	Long: `Initialize the camera and show its notifications as they arrive.

Free capacity and the image listing are refreshed periodically and on
demand with the r key. Press q to quit.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchPoll, "poll", 10, "Refresh interval in seconds")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cam, _, _ := connect(ctx)
	defer cam.Close()

	events := make(chan camera.Event, 64)
	errs := make(chan error, 16)
	refresh := make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		defer close(events)
		done <- watchCamera(ctx, cam, events, errs, refresh, time.Duration(watchPoll)*time.Second)
	}()

	model := ui.NewWatchModel("Camera Watch", events, errs, refresh)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return fmt.Errorf("watch error: %w", err)
	}

	cancel()
	if err := <-done; err != nil {
		return fmt.Errorf("failed to initialize camera: %w", err)
	}
	return nil
}

// watchCamera owns cam on its own goroutine and forwards notifications.
// It returns only the initialization error; later errors go to errs.
func watchCamera(ctx context.Context, cam *camera.Camera, events chan<- camera.Event, errs chan<- error, refresh <-chan struct{}, poll time.Duration) error {
	send := func(err error) {
		select {
		case errs <- err:
		default:
		}
	}

	unsubscribe := cam.Subscribe(camera.ObserverFunc(func(e camera.Event) {
		select {
		case events <- e:
		case <-ctx.Done():
		}
	}))
	defer unsubscribe()
	cam.OnError = send

	if err := cam.Initialize(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	if poll <= 0 {
		poll = 10 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-refresh:
		}

		// Capacity is available in every mode; listing needs play.
		err := cam.RequestCapacity()
		if err == nil && cam.CamMode() == camera.ModePlay {
			err = cam.RequestImages("", false)
		}
		if err == nil {
			err = cam.Drain(ctx)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			send(err)
		}
	}
}

// configCmd groups config file commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.CreateDefaultConfig(configForce)
		if err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Configuration written", ui.Field{Key: "File", Value: path})
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), reg)
		}

		data, err := yaml.Marshal(reg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", path, data)
		return nil
	},
}

var configNicknameCmd = &cobra.Command{
	Use:   "nickname <model> <nickname>",
	Short: "Name a known camera",
	Long: `Give a camera seen before a nickname. The nickname can then be passed
to --address in place of its IP address.`,
	Example: `  omd-ctl config nickname E-M10MarkII travel
  omd-ctl info --address travel`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if reg.GetCamera(args[0]) == nil {
			return fmt.Errorf("unknown camera %q (run 'omd-ctl info' while connected to it first)", args[0])
		}

		reg.SetCameraNickname(args[0], args[1])
		if err := config.SaveGlobal(); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Nickname saved",
			ui.Field{Key: "Model", Value: args[0]},
			ui.Field{Key: "Nickname", Value: args[1]},
		)
		return nil
	},
}
