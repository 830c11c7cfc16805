package platform

import (
	"fmt"
	"strings"
)

// familyMap maps distribution family strings reported by gopsutil to
// canonical family names.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian,
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
	"gentoo":   FamilyGentoo,
}

// archNames maps every accepted spelling to its Go-style and uname-style name.
var archNames = map[string][2]string{
	"amd64":   {"amd64", "x86_64"},
	"x86_64":  {"amd64", "x86_64"},
	"arm64":   {"arm64", "aarch64"},
	"aarch64": {"arm64", "aarch64"},
	"386":     {"386", "i686"},
	"i386":    {"386", "i686"},
	"i686":    {"386", "i686"},
	"arm":     {"arm", "armv7l"},
	"armv7l":  {"arm", "armv7l"},
	"ppc64le": {"ppc64le", "ppc64le"},
	"s390x":   {"s390x", "s390x"},
	"riscv64": {"riscv64", "riscv64"},
}

// NormalizeArch returns the Go-style and uname-style names for arch.
func NormalizeArch(arch string) (goName, unameName string, err error) {
	names, ok := archNames[strings.ToLower(strings.TrimSpace(arch))]
	if !ok {
		return "", "", fmt.Errorf("unsupported architecture: %s", arch)
	}
	return names[0], names[1], nil
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	if canonical, ok := familyMap[normalizePlatform(family)]; ok {
		return canonical
	}
	return FamilyUnknown
}
