package localstore

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidDevice = errors.New("invalid device id")

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

type Devices interface {
	Device(deviceID string) (Store, error)
}

func normalizeDeviceID(raw string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || parsed == uuid.Nil {
		return "", ErrInvalidDevice
	}
	return parsed.String(), nil
}
