package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

const (
	lockFileName   = ".pdf-toolbox.lock"
	lockRetryDelay = 50 * time.Millisecond
	maxNameSuffix  = 999
)

// ErrExists is returned when a target exists and neither overwriting nor
// renaming is allowed
var ErrExists = errors.New("output file already exists")

// Writer places results in one directory. Writes from concurrent tool calls
// are serialised with a lock file in that directory.
type Writer struct {
	Dir       string
	Overwrite bool
	logger    *logrus.Logger
}

// NewWriter creates a Writer for dir, creating the directory if needed
func NewWriter(logger *logrus.Logger, dir string, overwrite bool) (*Writer, error) {
	if !filepath.IsAbs(dir) {
		return nil, fmt.Errorf("output directory must be an absolute path: %s", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{Dir: dir, Overwrite: overwrite, logger: logger}, nil
}

// Write stores data under name and returns the final path. Unless Overwrite
// is set an existing file is kept and a numbered name such as
// "report (1).pdf" is used instead.
func (w *Writer) Write(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid output name: %q", name)
	}

	fileLock := flock.New(filepath.Join(w.Dir, lockFileName))
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", fmt.Errorf("failed to acquire output lock: %w", err)
	}
	if !locked {
		return "", fmt.Errorf("could not acquire output lock in %s", w.Dir)
	}
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			w.logger.WithError(err).Warn("Failed to release output lock")
		}
	}()

	path, err := w.target(name)
	if err != nil {
		return "", err
	}

	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}

	w.logger.WithFields(logrus.Fields{
		"path":  path,
		"bytes": len(data),
	}).Debug("Wrote output file")
	return path, nil
}

// target resolves the path to write, caller must hold the lock
func (w *Writer) target(name string) (string, error) {
	path := filepath.Join(w.Dir, name)
	if w.Overwrite || !exists(path) {
		return path, nil
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; i <= maxNameSuffix; i++ {
		candidate := filepath.Join(w.Dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrExists, path)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeFileAtomic writes data to a file using temp file + rename
func writeFileAtomic(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set file permissions: %w", err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
