package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const fileVersion = 1

type fileData struct {
	Version int               `json:"version"`
	Entries map[string]Record `json:"entries"`
}

// FileStore keeps records in a JSON file. Every Put rewrites the file
// atomically.
type FileStore struct {
	path    string
	mu      sync.Mutex
	records map[Key]Record
}

// OpenFileStore loads the cache file at path. A missing file is an empty
// cache.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, records: make(map[Key]Record)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", path, err)
	}
	var fd fileData
	if err := json.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("parse cache %s: %w", path, err)
	}
	if fd.Version != fileVersion {
		return nil, fmt.Errorf("cache %s: unsupported version %d", path, fd.Version)
	}
	for s, rec := range fd.Entries {
		k, err := ParseKey(s)
		if err != nil {
			return nil, fmt.Errorf("cache %s: %w", path, err)
		}
		fs.records[k] = rec
	}
	return fs, nil
}

func (f *FileStore) Get(_ context.Context, k Key) (Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[k]
	return rec, ok, nil
}

func (f *FileStore) Put(_ context.Context, k Key, rec Record) error {
	if err := k.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.records[k]
	f.records[k] = rec
	if err := f.flush(); err != nil {
		if had {
			f.records[k] = prev
		} else {
			delete(f.records, k)
		}
		return err
	}
	return nil
}

func (f *FileStore) flush() (err error) {
	fd := fileData{Version: fileVersion, Entries: make(map[string]Record, len(f.records))}
	for k, rec := range f.records {
		fd.Entries[k.String()] = rec
	}
	data, err := json.MarshalIndent(fd, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileStore) Close() error { return nil }
