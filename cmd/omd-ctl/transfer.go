package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/omd/internal/camera"
	"github.com/muurk/omd/internal/logging"
	"github.com/muurk/omd/internal/ui"
)

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(pullCmd)
}

// Transfer flags
var (
	fetchOutput  string
	pullDir      string
	pullOverride bool
)

// fetchCmd downloads one image
var fetchCmd = &cobra.Command{
	Use:   "fetch <name>",
	Short: "Download one image",
	Long: `Download one image from /DCIM/100OLYMP in play mode.

The name may be given with or without its .JPG extension. The file is
written exactly as the camera sent it.`,
	Example: `  omd-ctl fetch P1010001
  omd-ctl fetch P1010001.JPG -o ~/Pictures/first.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "Output file (default <name>.JPG in the current directory)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	name := imageBaseName(args[0])
	output := fetchOutput
	if output == "" {
		output = name + ".JPG"
	}

	s := newSession(cmd)
	defer s.close()

	if err := s.switchMode(camera.ModePlay); err != nil {
		return s.fail("Failed to enter play mode", err)
	}

	data, err := s.fetchImage(name)
	if err != nil {
		return s.fail("Failed to download "+name, err)
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	if outputFormat != "json" {
		s.printer.PrintSuccess("Image saved",
			ui.Field{Key: "Image", Value: name},
			ui.Field{Key: "File", Value: output},
			ui.Field{Key: "Size", Value: camera.FormatBytes(uint64(len(data)))},
		)
	}
	return nil
}

func imageBaseName(name string) string {
	name = filepath.Base(name)
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".jpg") {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// fetchImage requests one image and processes replies until it arrives.
// Image fetches are not tracked, so Drain cannot be used to wait for them.
func (s *session) fetchImage(name string) ([]byte, error) {
	var data []byte
	received := false

	unsubscribe := s.cam.Subscribe(camera.ObserverFunc(func(e camera.Event) {
		if e.Kind == camera.EventImageReceived && e.ImageName == name {
			data = e.ImageData
			received = true
		}
	}))
	defer unsubscribe()

	failed := len(s.errs.errs)
	if err := s.cam.RequestImage(name); err != nil {
		return nil, err
	}

	for !received {
		err := s.cam.ProcessNext(s.ctx)
		if errors.Is(err, camera.ErrIdle) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	if !received {
		if len(s.errs.errs) > failed {
			return nil, s.errs.errs[failed]
		}
		return nil, fmt.Errorf("camera did not return image %s", name)
	}
	return data, nil
}

// pullCmd downloads every image in the default directory
var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download all images",
	Long: `List /DCIM/100OLYMP and download every image into a local directory.

Only JPEG files are transferred; RAW and movie files are skipped. Files
that already exist locally are skipped unless --overwrite is given.
A failed image does not stop the transfer.`,
	Example: `  omd-ctl pull
  omd-ctl pull --dir ~/Pictures/omd`,
	Args: cobra.NoArgs,
	RunE: runPull,
}

func init() {
	pullCmd.Flags().StringVar(&pullDir, "dir", ".", "Local directory to write images into")
	pullCmd.Flags().BoolVar(&pullOverride, "overwrite", false, "Overwrite files that already exist")
}

// isJPEG reports whether name can be fetched with RequestImage, which
// always asks for the .JPG file.
func isJPEG(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".jpg")
}

// pullImages downloads each image into dir, recording the outcome of every
// entry on progress. RAW and movie files are skipped. redraw, when set, runs
// before each download.
func (s *session) pullImages(images []camera.ImageDescriptor, dir string, overwrite bool, progress *ui.Progress, redraw func()) {
	for i, img := range images {
		step := i + 1
		target := filepath.Join(dir, img.Name)

		if !isJPEG(img.Name) {
			progress.SkipStep(step, "not a JPEG")
			continue
		}
		if _, err := os.Stat(target); err == nil && !overwrite {
			progress.SkipStep(step, "exists")
			continue
		}

		progress.StartStep(step, camera.FormatBytes(img.Size))
		if redraw != nil {
			redraw()
		}

		data, err := s.fetchImage(img.BaseName())
		if err == nil {
			err = os.WriteFile(target, data, 0644)
		}
		if err != nil {
			logging.Warn("Image download failed", zap.String("image", img.Name), zap.Error(err))
			progress.FailStep(step, camera.GetShortErrorMessage(err))
			continue
		}
		progress.CompleteStep(step, camera.FormatBytes(uint64(len(data))))
	}
}

func runPull(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(pullDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", pullDir, err)
	}

	s := newSession(cmd)
	defer s.close()

	images, err := s.listImages(camera.DefaultImageDir, false)
	if err != nil {
		return s.fail("Failed to list images", err)
	}

	sorted := camera.SortedImages(images)
	names := make([]string, len(sorted))
	for i, img := range sorted {
		names[i] = img.Name
	}

	progress := ui.NewProgress(fmt.Sprintf("Downloading %d image(s) to %s...", len(sorted), pullDir), names)
	var redraw func()
	if outputFormat != "json" && ui.IsTerminal(os.Stdout) {
		redraw = func() { s.printer.Print("\033[H\033[2J" + progress.Render() + "\n") }
	}
	s.pullImages(sorted, pullDir, pullOverride, progress, redraw)

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]int{
			"total":  progress.Total(),
			"failed": progress.Failed(),
		})
	}

	s.printer.Println(progress.Render())
	s.printer.Newline()
	if failed := progress.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d image(s) failed to download", failed, progress.Total())
	}
	s.printer.PrintSuccess("Transfer complete",
		ui.Field{Key: "Images", Value: fmt.Sprintf("%d", progress.Total())},
		ui.Field{Key: "Directory", Value: pullDir},
	)
	return nil
}
