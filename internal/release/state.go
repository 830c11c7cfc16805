package release

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// StateFileName is the version state file kept in every install directory.
const StateFileName = "version.json"

// VersionState records the last successful install in a directory.
type VersionState struct {
	Tag  string `json:"tag_name"`
	Repo string `json:"repo"`
}

// StatePath returns the location of the state file for dir.
func StatePath(dir string) string {
	return filepath.Join(dir, StateFileName)
}

// StateExists reports whether dir holds a version state file.
func StateExists(dir string) bool {
	info, err := os.Stat(StatePath(dir))
	return err == nil && info.Mode().IsRegular()
}

// ReadState loads the version state from dir. A missing file is a
// FilesystemError wrapping fs.ErrNotExist, never an empty record.
func ReadState(dir string) (*VersionState, error) {
	path := StatePath(dir)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FilesystemError{Op: "read version state", Path: path, Err: err}
	}

	var st VersionState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, &ParseError{Subject: "version state " + path, Err: err}
	}
	if st.Tag == "" || st.Repo == "" {
		return nil, &ParseError{Subject: "version state " + path, Err: errors.New("tag_name and repo are required")}
	}

	return &st, nil
}

// WriteState writes the version state to dir atomically.
// Uses write-then-rename so a reader never sees a half-written file.
func WriteState(dir string, st VersionState) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &FilesystemError{Op: "create directory", Path: dir, Err: err}
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal version state: %w", err)
	}

	finalPath := StatePath(dir)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", StateFileName, uuid.NewString()))

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return &FilesystemError{Op: "write version state", Path: tmpPath, Err: err}
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath) // Clean up temp file on error
		return &FilesystemError{Op: "rename version state", Path: finalPath, Err: err}
	}

	// Sync directory for durability
	if df, err := os.Open(dir); err == nil {
		_ = df.Sync()
		_ = df.Close()
	}

	return nil
}
