package release

import (
	"fmt"
	"strings"
	"time"
)

// Repo identifies a GitHub repository in owner/name form.
type Repo struct {
	Owner string
	Name  string
}

// ParseRepo parses an "owner/name" identifier.
func ParseRepo(s string) (Repo, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repo{}, fmt.Errorf("invalid repository %q: expected owner/name", s)
	}
	return Repo{Owner: owner, Name: name}, nil
}

// String returns the owner/name form.
func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// VersionSpec selects the release to install. The zero value means latest.
type VersionSpec struct {
	Tag string
}

// Latest returns a spec that resolves the newest release at install time.
func Latest() VersionSpec {
	return VersionSpec{}
}

// Explicit returns a spec pinned to tag. The tag is not validated against the remote.
func Explicit(tag string) VersionSpec {
	return VersionSpec{Tag: tag}
}

// IsLatest reports whether the spec must be resolved remotely.
func (v VersionSpec) IsLatest() bool {
	return v.Tag == ""
}

func (v VersionSpec) String() string {
	if v.IsLatest() {
		return "latest"
	}
	return v.Tag
}

// ArchiveKind selects the unpack strategy for a downloaded asset.
type ArchiveKind int

const (
	// KindRaw is written to disk as-is.
	KindRaw ArchiveKind = iota
	// KindZip is unpacked from memory.
	KindZip
	// KindTarGz is gunzipped, untarred and has its top-level directory stripped.
	KindTarGz
)

// String returns the string representation of the archive kind
func (k ArchiveKind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindZip:
		return "zip"
	case KindTarGz:
		return "tar.gz"
	default:
		return "unknown"
	}
}

// FetchTarget describes one asset download.
type FetchTarget struct {
	URL         string
	Destination string
	Kind        ArchiveKind
}

// ProgressEvent is emitted while an asset downloads. TotalBytes is 0 when
// the server did not declare a content length.
type ProgressEvent struct {
	Source           string
	BytesTransferred int64
	TotalBytes       int64
	ThroughputMiBps  float64
	Final            bool
}

// ProgressFunc receives progress events. It runs on the downloading
// goroutine, so a slow sink slows the download.
type ProgressFunc func(ProgressEvent)

// Action describes what an install call did.
type Action string

const (
	ActionInstalled Action = "installed"
	ActionUpgraded  Action = "upgraded"
	ActionUpToDate  Action = "up-to-date"
	ActionSkipped   Action = "skipped"
)

// Result summarizes a completed install call.
type Result struct {
	Action      Action
	Repo        string
	Dir         string
	Tag         string
	PreviousTag string
	Asset       string
	Direction   Direction
	Elapsed     time.Duration
}
