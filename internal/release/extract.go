package release

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// zip "version made by" host systems that record POSIX mode bits.
const (
	zipCreatorUnix   = 3
	zipCreatorMacOSX = 19
)

// Extractor unpacks archive payloads into a destination directory.
// It holds no state between calls.
type Extractor struct{}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract unpacks payload into destDir according to kind. KindRaw is a
// no-op since raw assets are written by the fetch step. The first error
// aborts the remaining entries.
func (e *Extractor) Extract(payload []byte, destDir string, kind ArchiveKind) error {
	switch kind {
	case KindRaw:
		return nil
	case KindZip:
		return e.ExtractZip(payload, destDir)
	case KindTarGz:
		return e.ExtractTarGz(payload, destDir)
	default:
		return fmt.Errorf("unsupported archive kind: %s", kind)
	}
}

// ExtractZip unpacks a zip archive, restoring POSIX permission bits where
// the archive recorded them.
func (e *Extractor) ExtractZip(payload []byte, destDir string) error {
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return &ParseError{Subject: "zip archive", Err: err}
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return &FilesystemError{Op: "create directory", Path: destDir, Err: err}
	}

	for _, file := range reader.File {
		target, err := entryTarget(destDir, file.Name)
		if err != nil {
			return err
		}

		if strings.HasSuffix(file.Name, "/") {
			if err := os.MkdirAll(target, 0755); err != nil {
				return &FilesystemError{Op: "create directory", Path: target, Err: err}
			}
			continue
		}

		if err := extractZipFile(file, target); err != nil {
			return err
		}

		if mode, ok := zipUnixMode(file); ok {
			// Best effort: a failed chmod does not fail the extraction.
			_ = os.Chmod(target, mode)
		}
	}

	return nil
}

func extractZipFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return &FilesystemError{Op: "create directory", Path: filepath.Dir(target), Err: err}
	}

	src, err := file.Open()
	if err != nil {
		return &ParseError{Subject: "zip entry " + file.Name, Err: err}
	}
	defer func() { _ = src.Close() }()

	return writeFile(target, src, 0644)
}

// zipUnixMode returns the permission bits stored by a Unix-like archiver.
func zipUnixMode(file *zip.File) (os.FileMode, bool) {
	if runtime.GOOS == "windows" {
		return 0, false
	}
	creator := file.CreatorVersion >> 8
	if creator != zipCreatorUnix && creator != zipCreatorMacOSX {
		return 0, false
	}
	perm := file.Mode().Perm()
	if perm == 0 {
		return 0, false
	}
	return perm, true
}

// ExtractTarGz unpacks a gzip-compressed tarball, dropping the first path
// component of every entry. The bare top-level directory entry produces
// nothing. Hard links are recreated when their source lies inside destDir.
func (e *Extractor) ExtractTarGz(payload []byte, destDir string) error {
	gzipReader, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return &ParseError{Subject: "gzip stream", Err: err}
	}
	defer func() { _ = gzipReader.Close() }()

	tarReader := tar.NewReader(gzipReader)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return &FilesystemError{Op: "create directory", Path: destDir, Err: err}
	}

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break // End of archive
		}
		if err != nil {
			return &ParseError{Subject: "tar header", Err: err}
		}

		name := stripTopLevel(header.Name)
		if name == "" {
			continue
		}

		target, err := entryTarget(destDir, name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return &FilesystemError{Op: "create directory", Path: target, Err: err}
			}

		case tar.TypeSymlink:
			// Best effort, like permissions: platforms or filesystems
			// without symlinks simply lose the link.
			_ = os.MkdirAll(filepath.Dir(target), 0755)
			_ = os.Symlink(header.Linkname, target)

		case tar.TypeLink:
			if err := extractHardLink(destDir, target, header.Linkname); err != nil {
				return err
			}

		case tar.TypeXGlobalHeader:
			continue

		default:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return &FilesystemError{Op: "create directory", Path: filepath.Dir(target), Err: err}
			}
			if err := writeFile(target, tarReader, 0644); err != nil {
				return err
			}
			if runtime.GOOS != "windows" {
				if perm := os.FileMode(header.Mode).Perm(); perm != 0 {
					_ = os.Chmod(target, perm)
				}
			}
		}
	}

	return nil
}

// extractHardLink links target to the earlier entry named by linkname,
// which is an archive path like the entry names themselves.
func extractHardLink(destDir, target, linkname string) error {
	name := stripTopLevel(linkname)
	if name == "" {
		return &ParseError{Subject: "archive entry", Err: fmt.Errorf("illegal link target: %s", linkname)}
	}
	source, err := entryTarget(destDir, name)
	if err != nil {
		return err
	}

	info, err := os.Lstat(source)
	if err != nil {
		return &ParseError{Subject: "archive entry", Err: fmt.Errorf("link target %s: %w", linkname, err)}
	}
	if !info.Mode().IsRegular() {
		return &ParseError{Subject: "archive entry", Err: fmt.Errorf("link target is not a regular file: %s", linkname)}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return &FilesystemError{Op: "create directory", Path: filepath.Dir(target), Err: err}
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &FilesystemError{Op: "remove file", Path: target, Err: err}
	}
	if err := os.Link(source, target); err != nil {
		return &FilesystemError{Op: "create hard link", Path: target, Err: err}
	}
	return nil
}

// stripTopLevel drops the first slash-separated component of an entry name,
// ignoring a leading "./".
func stripTopLevel(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	name = strings.TrimLeft(name, "/")
	_, rest, ok := strings.Cut(name, "/")
	if !ok {
		return ""
	}
	return strings.Trim(rest, "/")
}

// safeJoin joins an archive entry name onto destDir and rejects names that
// would land outside it.
func safeJoin(destDir, name string) (string, error) {
	cleanDest := filepath.Clean(destDir)
	target := filepath.Join(cleanDest, filepath.FromSlash(name))

	if filepath.IsAbs(filepath.FromSlash(name)) || (target != cleanDest &&
		!strings.HasPrefix(target, cleanDest+string(os.PathSeparator))) {
		return "", &ParseError{Subject: "archive entry", Err: fmt.Errorf("illegal file path: %s", name)}
	}
	return target, nil
}

// entryTarget resolves an entry name with safeJoin and rejects it when a
// directory between destDir and the entry is a symlink, so nothing is
// written through a link an earlier entry created.
func entryTarget(destDir, name string) (string, error) {
	target, err := safeJoin(destDir, name)
	if err != nil {
		return "", err
	}

	cleanDest := filepath.Clean(destDir)
	rel, err := filepath.Rel(cleanDest, filepath.Dir(target))
	if err != nil || rel == "." {
		return target, nil
	}

	dir := cleanDest
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		dir = filepath.Join(dir, part)
		info, err := os.Lstat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return "", &FilesystemError{Op: "stat", Path: dir, Err: err}
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return "", &ParseError{Subject: "archive entry", Err: fmt.Errorf("path crosses symlink: %s", name)}
		}
	}
	return target, nil
}

// writeFile copies r into a freshly truncated file at target. A symlink
// already at target is replaced rather than followed.
func writeFile(target string, r io.Reader, perm fs.FileMode) error {
	if info, err := os.Lstat(target); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return &FilesystemError{Op: "remove file", Path: target, Err: err}
		}
	}

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return &FilesystemError{Op: "create file", Path: target, Err: err}
	}

	if _, err := io.Copy(outFile, r); err != nil {
		_ = outFile.Close()
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return &FilesystemError{Op: "write file", Path: target, Err: err}
		}
		return &ParseError{Subject: "archive entry " + filepath.Base(target), Err: err}
	}

	if err := outFile.Close(); err != nil {
		return &FilesystemError{Op: "close file", Path: target, Err: err}
	}
	return nil
}
