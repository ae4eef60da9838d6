// Package buildinfo exposes version information of the cepip-cli binary.
//
// Release builds inject the values with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/cepip-console/internal/infra/buildinfo.Version=v1.2.0 \
//	  -X github.com/yndnr/cepip-console/internal/infra/buildinfo.Commit=$(git rev-parse --short HEAD)"
//
// Development builds fall back to the VCS stamp the Go toolchain embeds.
package buildinfo

import (
	"runtime"
	"runtime/debug"
)

// Set via ldflags.
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Product is the name used in the User-Agent header.
const Product = "cepip-cli"

// Info contains build information.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get returns the build information.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" && len(s.Value) >= 7 {
					info.Commit = s.Value[:7]
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			}
		}
	}

	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.BuildTime == "" {
		info.BuildTime = "unknown"
	}
	return info
}

// String returns a one line version string.
func String() string {
	i := Get()
	return i.Version + " (" + i.Commit + ", " + i.Platform + ") built " + i.BuildTime
}

// UserAgent returns the User-Agent sent to the backend.
func UserAgent() string {
	return Product + "/" + Version
}
