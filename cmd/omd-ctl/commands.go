package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/omd/internal/camera"
	"github.com/muurk/omd/internal/ui"
)

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(propsCmd)
	rootCmd.AddCommand(setPropCmd)
	rootCmd.AddCommand(shotCmd)
	rootCmd.AddCommand(zoomCmd)
	rootCmd.AddCommand(powerOffCmd)
}

// stateJSON is the --format json rendering of a device snapshot
type stateJSON struct {
	Model          string            `json:"model,omitempty"`
	ConnectMode    string            `json:"connect_mode"`
	CamMode        string            `json:"cam_mode"`
	UnusedCapacity uint64            `json:"unused_capacity"`
	Images         []imageJSON       `json:"images,omitempty"`
	Properties     map[string]string `json:"properties,omitempty"`
}

type imageJSON struct {
	Path      string    `json:"path"`
	Size      uint64    `json:"size"`
	Timestamp time.Time `json:"timestamp"`
	Reserved  bool      `json:"reserved,omitempty"`
}

func newStateJSON(s camera.DeviceState) stateJSON {
	out := stateJSON{
		Model:          s.Model,
		ConnectMode:    s.ConnectMode.String(),
		CamMode:        s.CamMode.String(),
		UnusedCapacity: s.UnusedCapacity,
	}
	for _, img := range camera.SortedImages(s.Images) {
		out.Images = append(out.Images, imageJSON{Path: img.Path, Size: img.Size, Timestamp: img.Timestamp, Reserved: img.Reserved})
	}
	if s.Properties != nil && s.Properties.Len() > 0 {
		out.Properties = make(map[string]string, s.Properties.Len())
		for _, name := range s.Properties.Names() {
			p, _ := s.Properties.Get(name)
			out.Properties[name] = p.Value
		}
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// infoCmd displays camera identity and storage
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show camera information",
	Long: `Connect to the camera and display its model, connect mode, operating
mode and free storage.

With --full the camera is fully synchronized first: the command catalog,
image listing and properties are read too, leaving it in record mode.

The camera model and address are remembered in the config file.`,
	Example: `  # Show info for the camera at the default address
  omd-ctl info

  # Compact output
  omd-ctl info --format compact

  # JSON output for scripting
  omd-ctl info --address 192.168.0.10 --format json

  # Everything the camera reports, including images and properties
  omd-ctl info --full`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

var infoFull bool

func init() {
	infoCmd.Flags().BoolVar(&infoFull, "full", false, "Synchronize images and properties as well")
}

func runInfo(cmd *cobra.Command, args []string) error {
	s := newSession(cmd)
	defer s.close()

	var err error
	if infoFull {
		err = s.cam.Initialize(s.ctx)
		if err == nil {
			err = s.errs.first()
		}
	} else {
		err = s.do(
			s.cam.RequestConnectMode,
			s.cam.RequestCamInfo,
			s.cam.RequestCapacity,
			s.cam.RequestCommands,
		)
	}
	if err != nil {
		return s.fail("Failed to read camera information", err)
	}
	s.remember()

	state := s.cam.State()
	switch outputFormat {
	case "json":
		return writeJSON(cmd.OutOrStdout(), newStateJSON(state))
	case "compact":
		s.printer.Println(state.FormatCompact())
	default:
		if !ui.IsTerminal(os.Stdout) {
			s.printer.Print(state.FormatDetailed())
			return nil
		}
		s.printer.PrintHeader("Camera Information", cmd.CommandPath(), ui.Field{Key: "Address", Value: s.cam.BaseURL})
		s.printer.Println(ui.RenderStatus(state, s.printer.Width()))
		if infoFull {
			s.printer.Println(ui.RenderImages(state.Images, s.printer.Width()))
			s.printer.Println(ui.RenderProperties(state.Properties, s.printer.Width()))
		}
	}
	return nil
}

// modeCmd switches the camera operating mode
var modeCmd = &cobra.Command{
	Use:   "mode <rec|play|shutter>",
	Short: "Switch the camera operating mode",
	Long: `Switch the camera between its operating modes.

  rec      Live view and remote shooting; properties can be changed
  play     Image browsing and transfer
  shutter  Remote shutter without live view`,
	Example: `  omd-ctl mode play
  omd-ctl mode rec`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"rec", "record", "play", "shutter"},
	RunE:      runMode,
}

func runMode(cmd *cobra.Command, args []string) error {
	mode := camera.ParseCamMode(args[0])
	if mode == camera.ModeUnknown {
		return fmt.Errorf("unknown mode %q (use rec, play or shutter)", args[0])
	}

	s := newSession(cmd)
	defer s.close()

	if err := s.switchMode(mode); err != nil {
		return s.fail("Failed to switch mode", err)
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]string{"cam_mode": s.cam.CamMode().String()})
	}
	s.printer.PrintSuccess("Mode switched", ui.Field{Key: "Mode", Value: s.cam.CamMode().String()})
	return nil
}

// Image listing flags
var (
	imagesDir      string
	imagesReserved bool
)

// imagesCmd lists images stored on the card
var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List images on the camera",
	Long: `Switch the camera to play mode and list the images in a directory.

Reserved (protected) images can be listed with --reserved.`,
	Example: `  omd-ctl images
  omd-ctl images --dir /DCIM/101OLYMP
  omd-ctl images --reserved --format json`,
	Args: cobra.NoArgs,
	RunE: runImages,
}

func init() {
	imagesCmd.Flags().StringVar(&imagesDir, "dir", "", "Directory to list (default from config, then /DCIM/100OLYMP)")
	imagesCmd.Flags().BoolVar(&imagesReserved, "reserved", false, "List reserved (protected) images only")
}

func runImages(cmd *cobra.Command, args []string) error {
	s := newSession(cmd)
	defer s.close()

	images, err := s.listImages(imagesDir, imagesReserved)
	if err != nil {
		return s.fail("Failed to list images", err)
	}

	switch outputFormat {
	case "json":
		state := camera.DeviceState{Images: images}
		return writeJSON(cmd.OutOrStdout(), newStateJSON(state).Images)
	case "compact":
		state := camera.DeviceState{Images: images}
		s.printer.Print(state.FormatImages())
	default:
		s.printer.Println(ui.RenderImages(images, s.printer.Width()))
	}
	return nil
}

// listImages switches to play mode and lists dir.
func (s *session) listImages(dir string, reserved bool) (map[string]camera.ImageDescriptor, error) {
	if dir == "" {
		dir = s.reg.Camera.ImageDir
	}
	if err := s.switchMode(camera.ModePlay); err != nil {
		return nil, err
	}
	if err := s.do(func() error { return s.cam.RequestImages(dir, reserved) }); err != nil {
		return nil, err
	}
	return s.cam.Images(), nil
}

// propsCmd shows camera properties
var propsCmd = &cobra.Command{
	Use:   "props [name]",
	Short: "Show camera properties",
	Long: `Switch the camera to record mode and show its shooting properties.

With a name, only that property's value is printed.`,
	Example: `  omd-ctl props
  omd-ctl props isospeedvalue`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProps,
}

func runProps(cmd *cobra.Command, args []string) error {
	s := newSession(cmd)
	defer s.close()

	if err := s.loadProperties(); err != nil {
		return s.fail("Failed to read properties", err)
	}

	if len(args) == 1 {
		value, ok := s.cam.Property(args[0])
		if !ok {
			return fmt.Errorf("camera has no property %q", args[0])
		}
		if outputFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), map[string]string{args[0]: value})
		}
		s.printer.Println(value)
		return nil
	}

	state := s.cam.State()
	switch outputFormat {
	case "json":
		return writeJSON(cmd.OutOrStdout(), newStateJSON(state).Properties)
	case "compact":
		s.printer.Print(state.FormatProperties())
	default:
		s.printer.Println(ui.RenderProperties(state.Properties, s.printer.Width()))
	}
	return nil
}

// loadProperties switches to record mode and reads the property descriptions.
func (s *session) loadProperties() error {
	if err := s.switchMode(camera.ModeRecord); err != nil {
		return err
	}
	return s.do(s.cam.RequestProperties)
}

// setPropCmd changes one camera property
var setPropCmd = &cobra.Command{
	Use:   "set-prop <name> <value>",
	Short: "Change a camera property",
	Long: `Change a shooting property in record mode.

The value is checked against the allowed values the camera reports
before anything is sent.`,
	Example: `  omd-ctl set-prop isospeedvalue 400
  omd-ctl set-prop takemode A`,
	Args: cobra.ExactArgs(2),
	RunE: runSetProp,
}

func runSetProp(cmd *cobra.Command, args []string) error {
	name, value := args[0], args[1]

	s := newSession(cmd)
	defer s.close()

	if err := s.loadProperties(); err != nil {
		return s.fail("Failed to read properties", err)
	}
	old, _ := s.cam.Property(name)

	err := s.do(
		func() error { return s.cam.SetProperty(name, value) },
		s.cam.RequestProperties,
	)
	if err != nil {
		return s.fail("Failed to set property", err)
	}

	current, _ := s.cam.Property(name)
	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]string{name: current})
	}
	s.printer.PrintSuccess("Property updated",
		ui.Field{Key: "Property", Value: name},
		ui.Field{Key: "Previous", Value: old},
		ui.Field{Key: "Current", Value: current},
	)
	return nil
}

// shotCmd triggers the shutter
var shotCmd = &cobra.Command{
	Use:   "shot",
	Short: "Take a picture",
	Long:  `Switch the camera to record mode and release the shutter once.`,
	Args:  cobra.NoArgs,
	RunE:  runShot,
}

func runShot(cmd *cobra.Command, args []string) error {
	s := newSession(cmd)
	defer s.close()

	if err := s.switchMode(camera.ModeRecord); err != nil {
		return s.fail("Failed to enter record mode", err)
	}
	if err := s.do(s.cam.TakeShot); err != nil {
		return s.fail("Failed to take picture", err)
	}

	if outputFormat != "json" {
		s.printer.PrintSuccess("Picture taken")
	}
	return nil
}

// zoomCmd drives the lens zoom
var zoomCmd = &cobra.Command{
	Use:   "zoom <widemove|telemove|wideterm|teleterm|off>",
	Short: "Drive the zoom lens",
	Long: `Drive a power zoom lens in record mode.

widemove and telemove start a continuous movement; off stops it.
wideterm and teleterm move to the end of the range.`,
	Example: `  omd-ctl zoom telemove
  omd-ctl zoom off`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"widemove", "telemove", "wideterm", "teleterm", "off"},
	RunE:      runZoom,
}

func runZoom(cmd *cobra.Command, args []string) error {
	zoom, err := camera.ParseZoomMode(args[0])
	if err != nil {
		return err
	}

	s := newSession(cmd)
	defer s.close()

	if err := s.switchMode(camera.ModeRecord); err != nil {
		return s.fail("Failed to enter record mode", err)
	}
	if err := s.do(func() error { return s.cam.ControlZoom(zoom) }); err != nil {
		return s.fail("Failed to drive zoom", err)
	}

	if outputFormat != "json" {
		s.printer.PrintSuccess("Zoom command sent", ui.Field{Key: "Zoom", Value: zoom.String()})
	}
	return nil
}

var powerOffYes bool

// powerOffCmd switches the camera off
var powerOffCmd = &cobra.Command{
	Use:   "poweroff",
	Short: "Switch the camera off",
	Long: `Switch the camera off. The Wi-Fi connection is lost immediately.

You are asked to confirm unless --yes is given.`,
	Example: `  omd-ctl poweroff
  omd-ctl poweroff --yes`,
	Args: cobra.NoArgs,
	RunE: runPowerOff,
}

func init() {
	powerOffCmd.Flags().BoolVarP(&powerOffYes, "yes", "y", false, "Do not ask for confirmation")
}

func runPowerOff(cmd *cobra.Command, args []string) error {
	s := newSession(cmd)
	defer s.close()

	if !powerOffYes {
		if !ui.IsTerminal(os.Stdin) {
			return fmt.Errorf("refusing to power off without --yes when stdin is not a terminal")
		}
		if !ui.ConfirmPowerOff(cmd.InOrStdin(), cmd.OutOrStdout(), s.cam.Model()) {
			return nil
		}
	}

	if err := s.do(s.cam.PowerOff); err != nil {
		return s.fail("Failed to power off", err)
	}

	if outputFormat != "json" {
		s.printer.PrintSuccess("Camera powered off")
	}
	return nil
}
