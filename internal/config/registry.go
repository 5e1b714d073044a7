package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "omd"
	configFile = "config.yaml"

	// ConfigDirEnv overrides the platform config directory when set.
	ConfigDirEnv = "OMD_CONFIG_DIR"
)

var (
	shared     *Registry
	sharedErr  error
	sharedOnce sync.Once

	// serialises writers of the config file within this process
	writeMu sync.Mutex
)

// GetConfigDir resolves the directory holding config.yaml. OMD_CONFIG_DIR
// wins; otherwise Windows uses %LOCALAPPDATA%, Linux honours
// XDG_CONFIG_HOME, and everything else falls back to ~/.config.
func GetConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}

	if runtime.GOOS == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, appName), nil
		}
		profile := os.Getenv("USERPROFILE")
		if profile == "" {
			return "", errors.New("neither LOCALAPPDATA nor USERPROFILE is set")
		}
		return filepath.Join(profile, "AppData", "Local", appName), nil
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && runtime.GOOS != "darwin" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// GetConfigPath is GetConfigDir joined with config.yaml.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// LoadRegistry returns the process-wide registry, reading it from disk on
// first use.
func LoadRegistry() (*Registry, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = loadRegistryFromDisk()
	})
	return shared, sharedErr
}

func loadRegistryFromDisk() (*Registry, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadRegistryFile(configPath)
}

// LoadRegistryFile reads a registry from path. A missing file yields the
// default registry; missing sections are filled with defaults.
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var registry Registry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if registry.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d (expected 1)", registry.Version)
	}

	defaults := defaultCameraSettings()
	if registry.Camera == nil {
		registry.Camera = defaults
	} else {
		if registry.Camera.Address == "" {
			registry.Camera.Address = defaults.Address
		}
		if registry.Camera.Port == 0 {
			registry.Camera.Port = defaults.Port
		}
		if registry.Camera.ImageDir == "" {
			registry.Camera.ImageDir = defaults.ImageDir
		}
	}
	if registry.Cameras == nil {
		registry.Cameras = make(map[string]*KnownCamera)
	}
	if registry.Preferences == nil {
		registry.Preferences = defaultPreferences()
	}

	return &registry, nil
}

// Save writes the registry to GetConfigPath, creating the directory with
// owner-only permissions.
func (r *Registry) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return r.SaveFile(path)
}

// SaveFile writes the registry to path, replacing it atomically.
func (r *Registry) SaveFile(path string) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	return r.writeFile(path)
}

func (r *Registry) writeFile(configPath string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# omd configuration file
# Connection defaults and cameras this client has talked to.
# Command line flags override the camera section.
#
# Location: ` + configPath + `

`)
	data = append(header, data...)

	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// SaveGlobal persists the registry returned by LoadRegistry.
func SaveGlobal() error {
	registry, err := LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	return registry.Save()
}

// CreateDefaultConfig writes a default configuration file unless one exists.
// It returns the path of the file.
func CreateDefaultConfig(force bool) (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil && !force {
		return configPath, fmt.Errorf("config file already exists: %s", configPath)
	}

	registry := NewRegistry()
	registry.Preferences.LogLevel = "warn"
	return configPath, registry.Save()
}
