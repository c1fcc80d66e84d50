package localstore

import (
	"context"
	"sync"
)

type MemoryDevices struct {
	mu      sync.RWMutex
	devices map[string]map[string]string
}

func NewMemoryDevices() *MemoryDevices {
	return &MemoryDevices{devices: make(map[string]map[string]string)}
}

func (devices *MemoryDevices) Device(deviceID string) (Store, error) {
	id, err := normalizeDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	return &memoryStore{owner: devices, deviceID: id}, nil
}

type memoryStore struct {
	owner    *MemoryDevices
	deviceID string
}

func (store *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	store.owner.mu.RLock()
	defer store.owner.mu.RUnlock()

	value, ok := store.owner.devices[store.deviceID][key]
	return value, ok, nil
}

func (store *memoryStore) Set(_ context.Context, key string, value string) error {
	store.owner.mu.Lock()
	defer store.owner.mu.Unlock()

	values, ok := store.owner.devices[store.deviceID]
	if !ok {
		values = make(map[string]string)
		store.owner.devices[store.deviceID] = values
	}
	values[key] = value
	return nil
}

func (store *memoryStore) Remove(_ context.Context, key string) error {
	store.owner.mu.Lock()
	defer store.owner.mu.Unlock()

	delete(store.owner.devices[store.deviceID], key)
	return nil
}
