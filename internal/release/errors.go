package release

import (
	"fmt"
)

// TransportError wraps a network or connection failure.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is returned for any non-2xx response. Body carries the
// response body verbatim for diagnostics.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("received status code %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("received status code %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// ParseError reports a malformed API response, archive or state file.
type ParseError struct {
	Subject string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Subject, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FilesystemError wraps a directory or file create/write/remove failure.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// ForeignInstallationError is returned when the version state in an install
// directory belongs to a different repository than the one configured.
type ForeignInstallationError struct {
	Dir            string
	InstalledRepo  string
	ConfiguredRepo string
}

func (e *ForeignInstallationError) Error() string {
	return fmt.Sprintf("installed version in %s is for a different repository: %s (configured %s)",
		e.Dir, e.InstalledRepo, e.ConfiguredRepo)
}

// NoMatchingAssetError is returned when a pattern lookup finds no asset.
type NoMatchingAssetError struct {
	Repo    string
	Tag     string
	Pattern string
}

func (e *NoMatchingAssetError) Error() string {
	tag := e.Tag
	if tag == "" {
		tag = "latest"
	}
	return fmt.Sprintf("no asset matching %q in %s release %s", e.Pattern, e.Repo, tag)
}
