// Package ui provides terminal UI components for the omd-ctl CLI.
//
// Most components follow a "render once and exit" pattern: a command prints
// a header, does its work against the camera, then prints a result or error
// box. Only the watch view is a long-running Bubble Tea program.
//
// # Components
//
//   - Printer: header, success and error boxes built from ordered Fields
//   - Progress: bar plus per-image step list for bulk downloads
//   - Status panels: RenderStatus, RenderImages and RenderProperties
//   - WatchModel: live event log fed from camera observers
//   - Confirm: y/N prompt for destructive operations such as power off
//
// # Logging Integration
//
// Logging is controlled by OMD_LOG_LEVEL or the --log-level flag. When
// neither is set zap is silent, so these components own the terminal.
package ui
