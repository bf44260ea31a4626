package filelock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileLock hands out flocks over a single well-known lock file so that
// multiple processes can coordinate access to a shared resource
type FileLock struct {
	lockPath string
}

func NewFileLock(lockPath string) *FileLock {
	return &FileLock{
		lockPath: lockPath,
	}
}

func (f *FileLock) NewLock() (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(f.lockPath), os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create lock directory for %s: %w", f.lockPath, err)
	}

	return flock.New(f.lockPath), nil
}

func (f *FileLock) Cleanup() error {
	return os.Remove(f.lockPath)
}
