// Package logging provides structured logging for the omd camera client.
//
// This package wraps a zap logger with convenience functions used throughout
// the client. Logging is silent unless a level is requested, so the camera
// package can be used as a library without printing anything.
//
// # Log Levels
//
//   - Debug: Request issue/completion, raw payload dumps
//   - Info: State changes reported by the camera
//   - Warn: Failed requests, skipped listing lines
//   - Error: Responses that could not be classified or parsed
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// An empty level falls back to the OMD_LOG_LEVEL environment variable.
// Output goes to stderr so command output on stdout stays machine readable.
package logging
