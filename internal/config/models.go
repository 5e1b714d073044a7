package config

import (
	"time"

	"github.com/muurk/omd/internal/camera"
)

// Registry represents the entire user configuration file.
// It stores connection settings, cameras seen before and preferences.
type Registry struct {
	Version     int                     `yaml:"version"`
	Camera      *CameraSettings         `yaml:"camera,omitempty"`
	Cameras     map[string]*KnownCamera `yaml:"cameras,omitempty"` // Keyed by camera model
	Preferences *Preferences            `yaml:"preferences,omitempty"`
}

// CameraSettings are the connection defaults used when no flag overrides them.
type CameraSettings struct {
	Address             string `yaml:"address"`
	Port                int    `yaml:"port"`
	UserAgent           string `yaml:"user_agent,omitempty"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
	DrainTimeoutSeconds int    `yaml:"drain_timeout_seconds,omitempty"` // 0 = no drain deadline
	ImageDir            string `yaml:"image_dir,omitempty"`
}

// KnownCamera remembers a camera this client has talked to.
type KnownCamera struct {
	Nickname    string    `yaml:"nickname,omitempty"`
	LastIP      string    `yaml:"last_ip,omitempty"`
	LastSeen    time.Time `yaml:"last_seen,omitempty"`
	ConnectMode string    `yaml:"connect_mode,omitempty"` // "private" or "shared"
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	AutoDiscover    bool   `yaml:"auto_discover"`       // Browse mDNS when no address is given
	DiscoverTimeout int    `yaml:"discover_timeout"`    // Discovery timeout in seconds
	LogLevel        string `yaml:"log_level,omitempty"` // Used when OMD_LOG_LEVEL is unset
}

func defaultCameraSettings() *CameraSettings {
	return &CameraSettings{
		Address:        camera.DefaultAddress,
		Port:           camera.DefaultPort,
		UserAgent:      camera.DefaultUserAgent,
		TimeoutSeconds: int(camera.DefaultTimeout / time.Second),
		ImageDir:       camera.DefaultImageDir,
	}
}

func defaultPreferences() *Preferences {
	return &Preferences{
		AutoDiscover:    false,
		DiscoverTimeout: 5,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Camera:      defaultCameraSettings(),
		Cameras:     make(map[string]*KnownCamera),
		Preferences: defaultPreferences(),
	}
}

// Timeout returns the per-request timeout
func (s *CameraSettings) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return camera.DefaultTimeout
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// DrainTimeout returns the drain deadline, or 0 for none
func (s *CameraSettings) DrainTimeout() time.Duration {
	if s.DrainTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(s.DrainTimeoutSeconds) * time.Second
}

// Apply copies the settings onto a camera client.
func (s *CameraSettings) Apply(cam *camera.Camera) {
	if s.UserAgent != "" {
		cam.UserAgent = s.UserAgent
	}
	cam.SetTimeout(s.Timeout())
	cam.DrainTimeout = s.DrainTimeout()
}

// GetCamera retrieves a known camera by model.
// Returns nil if the camera is not in the registry.
func (r *Registry) GetCamera(model string) *KnownCamera {
	return r.Cameras[model]
}

// EnsureCamera ensures an entry exists for model and returns it.
func (r *Registry) EnsureCamera(model string) *KnownCamera {
	if r.Cameras == nil {
		r.Cameras = make(map[string]*KnownCamera)
	}

	if cam, exists := r.Cameras[model]; exists {
		return cam
	}

	cam := &KnownCamera{}
	r.Cameras[model] = cam
	return cam
}

// RememberCamera records that model answered at ip with the given connect mode.
func (r *Registry) RememberCamera(model, ip string, mode camera.ConnectMode) {
	cam := r.EnsureCamera(model)
	cam.LastSeen = time.Now()
	cam.LastIP = ip
	if mode != camera.ConnectUnknown {
		cam.ConnectMode = mode.String()
	}
}

// SetCameraNickname sets a user-friendly nickname for a camera.
func (r *Registry) SetCameraNickname(model, nickname string) {
	r.EnsureCamera(model).Nickname = nickname
}

// FindByNickname returns the model and entry whose nickname matches.
func (r *Registry) FindByNickname(nickname string) (string, *KnownCamera) {
	for model, cam := range r.Cameras {
		if cam.Nickname == nickname {
			return model, cam
		}
	}
	return "", nil
}
