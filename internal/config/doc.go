// Package config provides user configuration management for omd.
//
// This package manages a YAML-based configuration file holding the camera
// connection defaults, the cameras this client has talked to and
// application preferences. The configuration follows OS-specific
// conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/omd/config.yaml or $HOME/.config/omd/config.yaml
//   - macOS: $HOME/.config/omd/config.yaml
//   - Windows: %LOCALAPPDATA%\omd\config.yaml
//
// # File Format
//
//	version: 1
//	camera:
//	  address: 192.168.0.10
//	  port: 80
//	  timeout_seconds: 10
//	  drain_timeout_seconds: 30
//	cameras:
//	  E-M10MarkII:
//	    nickname: travel
//	    last_ip: 192.168.0.10
//	    connect_mode: private
//	preferences:
//	  auto_discover: false
//	  discover_timeout: 5
//	  log_level: warn
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cam := camera.New(registry.Camera.Address, registry.Camera.Port)
//	registry.Camera.Apply(cam)
//
//	registry.RememberCamera(cam.Model(), registry.Camera.Address, cam.ConnectMode())
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
