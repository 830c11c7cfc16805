package release

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	// memoryProgressInterval is how often in-memory downloads report progress.
	memoryProgressInterval = 100 << 20

	// maxPreallocBytes caps how much buffer is reserved up front from a
	// declared Content-Length.
	maxPreallocBytes = 512 << 20

	copyBufferSize = 32 << 10
)

// Fetcher downloads release assets. Archives are buffered in memory and
// handed to the Extractor; anything else is streamed straight to disk.
type Fetcher struct {
	client    *http.Client
	userAgent string
	progress  ProgressFunc
	extractor *Extractor
}

// FetcherOption configures a Fetcher during construction.
type FetcherOption func(*Fetcher)

// WithFetchHTTPClient sets the HTTP client used for downloads.
func WithFetchHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = hc
	}
}

// WithProgress sets the progress sink. A nil sink disables reporting.
func WithProgress(fn ProgressFunc) FetcherOption {
	return func(f *Fetcher) {
		f.progress = fn
	}
}

// WithFetchUserAgent sets the User-Agent header for downloads.
func WithFetchUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// NewFetcher creates a Fetcher with no progress reporting.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:    http.DefaultClient,
		userAgent: DefaultUserAgent,
		extractor: NewExtractor(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// KindFromURL picks the archive kind from the file name suffix of a URL or
// path. Query strings and fragments are ignored.
func KindFromURL(raw string) ArchiveKind {
	name := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		name = u.Path
	}

	switch {
	case strings.HasSuffix(name, ".tar.gz"):
		return KindTarGz
	case strings.HasSuffix(name, ".zip"):
		return KindZip
	default:
		return KindRaw
	}
}

// NewFetchTarget derives the FetchTarget for a URL.
func NewFetchTarget(rawURL, destDir string) FetchTarget {
	return FetchTarget{
		URL:         rawURL,
		Destination: destDir,
		Kind:        KindFromURL(rawURL),
	}
}

// Fetch downloads rawURL into destDir, unpacking .zip and .tar.gz payloads.
// Downloads are not retried.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, destDir string) error {
	return f.FetchTarget(ctx, NewFetchTarget(rawURL, destDir))
}

// FetchTarget downloads and, for archives, extracts a single target.
func (f *Fetcher) FetchTarget(ctx context.Context, t FetchTarget) error {
	switch t.Kind {
	case KindZip, KindTarGz:
		payload, err := f.downloadToMemory(ctx, t.URL)
		if err != nil {
			return err
		}
		return f.extractor.Extract(payload, t.Destination, t.Kind)
	default:
		_, err := f.downloadToDir(ctx, t.URL, t.Destination)
		return err
	}
}

// downloadToMemory reads the whole body, reporting roughly every 100 MiB.
func (f *Fetcher) downloadToMemory(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()
	resp, err := f.open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	tracker := newProgressTracker(rawURL, resp.ContentLength, memoryProgressInterval, start, f.progress)

	var buf bytes.Buffer
	if resp.ContentLength > 0 && resp.ContentLength <= maxPreallocBytes {
		buf.Grow(int(resp.ContentLength))
	}

	if err := copyChunks(&buf, resp.Body, tracker, rawURL, ""); err != nil {
		return nil, err
	}
	tracker.finish()

	return buf.Bytes(), nil
}

// downloadToDir streams the body to destDir/<basename of URL>, reporting
// after every chunk. It returns the written path.
func (f *Fetcher) downloadToDir(ctx context.Context, rawURL, destDir string) (string, error) {
	name, err := urlBaseName(rawURL)
	if err != nil {
		return "", err
	}
	destPath := filepath.Join(destDir, name)

	start := time.Now()
	resp, err := f.open(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", &FilesystemError{Op: "create directory", Path: destDir, Err: err}
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return "", &FilesystemError{Op: "create file", Path: tmpPath, Err: err}
	}

	// Track whether we need to clean up the temp file
	cleanupNeeded := true
	defer func() {
		_ = tmpFile.Close()
		if cleanupNeeded {
			_ = os.Remove(tmpPath)
		}
	}()

	tracker := newProgressTracker(rawURL, resp.ContentLength, 0, start, f.progress)
	if err := copyChunks(tmpFile, resp.Body, tracker, rawURL, tmpPath); err != nil {
		return "", err
	}

	if err := tmpFile.Close(); err != nil {
		return "", &FilesystemError{Op: "close file", Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", &FilesystemError{Op: "rename file", Path: destPath, Err: err}
	}
	cleanupNeeded = false

	tracker.finish()
	return destPath, nil
}

// open issues the GET and fails fast on a non-2xx status.
func (f *Fetcher) open(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: http.MethodGet, URL: rawURL, Err: err}
	}

	if err := checkStatus(resp, rawURL); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// copyChunks copies src to dst chunk by chunk, feeding the tracker.
// Read failures are transport errors; write failures are filesystem errors.
func copyChunks(dst io.Writer, src io.Reader, tracker *progressTracker, srcURL, dstPath string) error {
	buf := make([]byte, copyBufferSize)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return &FilesystemError{Op: "write", Path: dstPath, Err: err}
			}
			tracker.add(int64(n))
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return &TransportError{Op: "read body", URL: srcURL, Err: readErr}
		}
	}
}

func urlBaseName(rawURL string) (string, error) {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("cannot derive file name from %s", rawURL)
	}
	return name, nil
}

// progressTracker turns byte counts into ProgressEvents. With a zero
// interval every chunk is reported. Throughput is measured from start,
// taken before the request is sent.
type progressTracker struct {
	source      string
	total       int64
	transferred int64
	interval    int64
	next        int64
	start       time.Time
	sink        ProgressFunc
}

func newProgressTracker(source string, contentLength, interval int64, start time.Time, sink ProgressFunc) *progressTracker {
	total := contentLength
	if total < 0 {
		total = 0
	}
	return &progressTracker{
		source:   source,
		total:    total,
		interval: interval,
		next:     interval,
		start:    start,
		sink:     sink,
	}
}

func (p *progressTracker) add(n int64) {
	p.transferred += n
	if p.sink == nil {
		return
	}
	if p.interval == 0 {
		p.emit(false)
		return
	}
	if p.transferred >= p.next {
		p.emit(false)
		for p.next <= p.transferred {
			p.next += p.interval
		}
	}
}

func (p *progressTracker) finish() {
	if p.sink != nil {
		p.emit(true)
	}
}

func (p *progressTracker) emit(final bool) {
	var rate float64
	if elapsed := time.Since(p.start).Seconds(); elapsed > 0 {
		rate = float64(p.transferred) / (1 << 20) / elapsed
	}
	p.sink(ProgressEvent{
		Source:           p.source,
		BytesTransferred: p.transferred,
		TotalBytes:       p.total,
		ThroughputMiBps:  rate,
		Final:            final,
	})
}
