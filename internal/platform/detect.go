package platform

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// Info describes the host running the fetch, not the Android target.
// Manifests use it to branch on where the build is happening.
type Info struct {
	OS      string // "linux", "darwin", "windows"
	Arch    string // normalized: "amd64", "arm64"
	ArchRaw string // original GOARCH value
	// Platform and Version hold Linux distribution details when they can
	// be detected, empty otherwise.
	Platform string
	Version  string
}

// IsLinux reports whether the host runs Linux.
func (i *Info) IsLinux() bool { return i.OS == "linux" }

// IsMacOS reports whether the host runs macOS.
func (i *Info) IsMacOS() bool { return i.OS == "darwin" }

// IsWindows reports whether the host runs Windows.
func (i *Info) IsWindows() bool { return i.OS == "windows" }

// Detector is the interface for host detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// RealDetector implements Detector against the actual host.
type RealDetector struct{}

// NewDetector creates a host detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect returns host information. OS and architecture come from the
// runtime; Linux distribution details come from gopsutil. Distribution
// detection failing is not an error: the fields stay empty and manifests
// that do not branch on them are unaffected.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      runtime.GOOS,
		Arch:    normalizeArch(runtime.GOARCH),
		ArchRaw: runtime.GOARCH,
	}

	if runtime.GOOS == "linux" {
		platform, _, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return info, nil
		}
		info.Platform = platform
		info.Version = version
	}

	return info, nil
}

// normalizeArch folds uname-style spellings into GOARCH names.
func normalizeArch(arch string) string {
	switch arch {
	case "amd64", "x86_64":
		return "amd64"
	case "arm64", "aarch64":
		return "arm64"
	default:
		return arch
	}
}
