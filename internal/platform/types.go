// Package platform describes the host a release asset is being picked for.
//
// OS and architecture come from the Go runtime and are normalized to the
// names release pipelines use in asset file names. On Linux, gopsutil adds
// the distribution, which manifests can branch on. Detection of the
// distribution is best-effort and never fails the whole lookup.
package platform

import "context"

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Info contains platform detection information.
type Info struct {
	OS        string // "linux", "darwin", "windows", "freebsd"
	Arch      string // Go-style name, e.g. "amd64", "arm64", "386"
	UnameArch string // uname-style name, e.g. "x86_64", "aarch64", "i686"
	ArchRaw   string // GOARCH as reported by the runtime
	Platform  string // distro ID (Linux only, e.g., "ubuntu")
	Family    string // canonical family (Linux only, e.g., "debian")
	Version   string // distro version (Linux only, e.g., "22.04")
}

// Distro contains Linux distribution information.
type Distro struct {
	ID      string
	Family  string
	Version string
}

// GetDistro returns distro information, or nil off Linux or when detection
// found nothing.
func (i *Info) GetDistro() *Distro {
	if !i.IsLinux() || i.Platform == "" {
		return nil
	}
	return &Distro{ID: i.Platform, Family: i.Family, Version: i.Version}
}

func (i *Info) IsLinux() bool   { return i.OS == "linux" }
func (i *Info) IsMacOS() bool   { return i.OS == "darwin" }
func (i *Info) IsWindows() bool { return i.OS == "windows" }

// InFamily reports whether the host runs a Linux distribution of family.
func (i *Info) InFamily(family string) bool {
	return i.IsLinux() && i.Family == family
}

// ExeSuffix returns ".exe" on Windows and "" elsewhere.
func (i *Info) ExeSuffix() string {
	if i.IsWindows() {
		return ".exe"
	}
	return ""
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// StaticDetector returns a fixed Info. Useful for cross-platform planning
// and tests.
type StaticDetector struct {
	Info *Info
}

// Detect returns a copy of the fixed Info.
func (s StaticDetector) Detect(context.Context) (*Info, error) {
	info := *s.Info
	return &info, nil
}
