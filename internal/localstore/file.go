package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type FileDevices struct {
	dir string
	mu  sync.Mutex
}

func NewFileDevices(dir string) (*FileDevices, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create device store directory: %w", err)
	}
	return &FileDevices{dir: dir}, nil
}

func (devices *FileDevices) Device(deviceID string) (Store, error) {
	id, err := normalizeDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	return &fileStore{owner: devices, path: filepath.Join(devices.dir, id+".json")}, nil
}

type fileStore struct {
	owner *FileDevices
	path  string
}

func (store *fileStore) Get(_ context.Context, key string) (string, bool, error) {
	store.owner.mu.Lock()
	defer store.owner.mu.Unlock()

	values, err := store.readLocked()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

func (store *fileStore) Set(_ context.Context, key string, value string) error {
	store.owner.mu.Lock()
	defer store.owner.mu.Unlock()

	values, err := store.readLocked()
	if err != nil {
		return err
	}
	values[key] = value
	return store.writeLocked(values)
}

func (store *fileStore) Remove(_ context.Context, key string) error {
	store.owner.mu.Lock()
	defer store.owner.mu.Unlock()

	values, err := store.readLocked()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return store.writeLocked(values)
}

func (store *fileStore) readLocked() (map[string]string, error) {
	raw, err := os.ReadFile(store.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read device store: %w", err)
	}

	values := map[string]string{}
	if len(raw) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		// An unreadable document is treated like cleared browser storage.
		return map[string]string{}, nil
	}
	return values, nil
}

func (store *fileStore) writeLocked(values map[string]string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode device store: %w", err)
	}

	tmp := store.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write device store: %w", err)
	}
	if err := os.Rename(tmp, store.path); err != nil {
		return fmt.Errorf("replace device store: %w", err)
	}
	return nil
}
