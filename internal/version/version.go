package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/omd/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/omd/internal/version.Commit=abc123"
//
// Unset values are filled from VCS build info, then fall back to "dev".
var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		info, ok := debug.ReadBuildInfo()
		if ok {
			fromBuildInfo(info)
		}
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

func fromBuildInfo(info *debug.BuildInfo) {
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if Commit == "" {
		if rev := settings["vcs.revision"]; rev != "" {
			Commit = rev[:min(7, len(rev))]
			if settings["vcs.modified"] == "true" {
				Commit += "-dirty"
			}
		}
	}

	if Version == "" {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			Version = v
		} else if t := settings["vcs.time"]; len(t) >= 10 {
			Version = "dev-" + strings.ReplaceAll(t[:10], "-", "")
		}
	}
}

// Full returns the version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgentSuffix returns a token identifying this build, appended to the
// camera User-Agent in debug logs
func UserAgentSuffix() string {
	return fmt.Sprintf("omd/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
