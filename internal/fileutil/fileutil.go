// Package fileutil holds the file-system helpers used when writing results:
// atomic replacement, per-output locking and input/output path checks.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

var (
	// ErrSameFile is returned when the output would overwrite the input.
	ErrSameFile = errors.New("output path must differ from input path")

	// ErrLocked is returned when another run holds the output lock.
	ErrLocked = errors.New("output is locked by another run")
)

// SamePath reports whether a and b refer to the same file. Paths that do not
// exist yet are compared after cleaning and making them absolute.
func SamePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, fmt.Errorf("resolve %q: %w", a, err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, fmt.Errorf("resolve %q: %w", b, err)
	}
	if absA == absB {
		return true, nil
	}

	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	if errA != nil || errB != nil {
		return false, nil
	}
	return os.SameFile(infoA, infoB), nil
}

// CheckDistinct returns ErrSameFile when output and input are the same file.
func CheckDistinct(input, output string) error {
	same, err := SamePath(input, output)
	if err != nil {
		return err
	}
	if same {
		return fmt.Errorf("%w: %s", ErrSameFile, output)
	}
	return nil
}

// Lock takes an exclusive, non-blocking lock on path+".lock". The returned
// function releases the lock. The lock file stays on disk so every run locks
// the same inode.
func Lock(path string) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lock.Path())
	}
	return func() error {
		if err := lock.Unlock(); err != nil {
			return fmt.Errorf("release lock: %w", err)
		}
		return nil
	}, nil
}

// WriteAtomic streams write's output into a temporary file beside path, syncs
// it and renames it into place. On any failure the temporary file is removed
// and path is left untouched. It returns the number of bytes written.
func WriteAtomic(path string, write func(io.Writer) error) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create output directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	cw := &countingWriter{w: tmp}
	if err := write(cw); err != nil {
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return 0, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
