/*
The store package holds the agent's small pieces of durable state: the
instance id, the acting user, session metadata. It is a flat string-to-string
map persisted as a json file, guarded by a file lock so concurrent processes
don't clobber each other's writes.
*/
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/gofrs/flock"

	"github.com/vcentea/linkedin-gateway-sub000/filelock"
)

const (
	storeFileName     = "store.json"
	storeFileLockName = "store.lock"
)

type Store interface {
	Get(key string) (string, error)
	Set(key string, value string) error
	Remove(key string) error
}

type FileStore struct {
	storePath string
	fileLock  *flock.Flock
}

func NewFileStore(storeDir string) (*FileStore, error) {
	storePath := path.Join(storeDir, storeFileName)
	fileLock := filelock.NewFileLock(path.Join(storeDir, storeFileLockName))

	// check if file exists
	if _, err := os.Stat(storePath); os.IsNotExist(err) {

		// create our directory, if it doesn't exist
		if err := os.MkdirAll(storeDir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", storeDir, err)
		}

		// create our file
		if _, err := os.Create(storePath); err != nil {
			return nil, fmt.Errorf("failed to create store file %s: %w", storePath, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get file system information on our store %s: %w", storePath, err)
	}

	lock, err := fileLock.NewLock()
	if err != nil {
		return nil, err
	}

	return &FileStore{
		storePath: storePath,
		fileLock:  lock,
	}, nil
}

func (f *FileStore) Get(key string) (string, error) {
	if err := f.acquireLock(); err != nil {
		return "", err
	}
	defer f.fileLock.Unlock()

	entries, err := f.load()
	if err != nil {
		return "", err
	}

	value, ok := entries[key]
	if !ok {
		return "", &KeyNotFoundError{Key: key}
	}

	return value, nil
}

func (f *FileStore) Set(key string, value string) error {
	if err := f.acquireLock(); err != nil {
		return err
	}
	defer f.fileLock.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}

	entries[key] = value
	return f.save(entries)
}

func (f *FileStore) Remove(key string) error {
	if err := f.acquireLock(); err != nil {
		return err
	}
	defer f.fileLock.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}

	if _, ok := entries[key]; !ok {
		return &KeyNotFoundError{Key: key}
	}

	delete(entries, key)
	return f.save(entries)
}

// grab our file lock so we're not accidentally writing at the same time
// as other processes
func (f *FileStore) acquireLock() error {
	for {
		if acquiredLock, err := f.fileLock.TryLock(); err != nil {
			return fmt.Errorf("error acquiring lock: %w", err)
		} else if acquiredLock {
			return nil
		}
	}
}

func (f *FileStore) load() (map[string]string, error) {
	file, err := os.ReadFile(f.storePath)
	if err != nil {
		return nil, err
	}

	if len(file) == 0 {
		return map[string]string{}, nil
	}

	var entries map[string]string
	if err := json.Unmarshal(file, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func (f *FileStore) save(entries map[string]string) error {
	dataBytes, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	// write to a temp file and rename so a crash mid-write never leaves a
	// half-written store behind
	tmpPath := f.storePath + ".tmp"
	if err := os.WriteFile(tmpPath, dataBytes, 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, f.storePath)
}
