package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/terraincognita07/easypeasy/internal/localstore"
	"github.com/terraincognita07/easypeasy/internal/logger"
)

const LocalProgressKey = "easyPeasy-progress"

type LocalProgressStore struct {
	store localstore.Store
	log   *logger.Logger
}

func NewLocalProgressStore(store localstore.Store, log *logger.Logger) *LocalProgressStore {
	if log == nil {
		log = logger.NewNop()
	}
	return &LocalProgressStore{store: store, log: log}
}

// Read returns the stored set. A missing entry is empty; a corrupt entry is
// removed and read as empty; out-of-range chapters are dropped.
func (local *LocalProgressStore) Read(ctx context.Context) (ChapterSet, error) {
	raw, ok, err := local.store.Get(ctx, LocalProgressKey)
	if err != nil {
		return nil, fmt.Errorf("read local progress: %w", err)
	}
	if !ok || raw == "" {
		return NewChapterSet(), nil
	}

	var chapters []int
	if err := json.Unmarshal([]byte(raw), &chapters); err != nil {
		local.log.Warn("discarding corrupt local progress", "error", err)
		if removeErr := local.store.Remove(ctx, LocalProgressKey); removeErr != nil {
			local.log.Warn("remove corrupt local progress failed", "error", removeErr)
		}
		return NewChapterSet(), nil
	}
	return NewChapterSet(chapters...), nil
}

func (local *LocalProgressStore) Write(ctx context.Context, set ChapterSet) error {
	raw, err := json.Marshal(set.Sorted())
	if err != nil {
		return fmt.Errorf("encode local progress: %w", err)
	}
	if err := local.store.Set(ctx, LocalProgressKey, string(raw)); err != nil {
		return fmt.Errorf("write local progress: %w", err)
	}
	return nil
}

func (local *LocalProgressStore) Clear(ctx context.Context) error {
	if err := local.store.Remove(ctx, LocalProgressKey); err != nil {
		return fmt.Errorf("clear local progress: %w", err)
	}
	return nil
}

type ProgressRecordRepository interface {
	ChapterNumbers(ctx context.Context, userID string) ([]int, error)
	InsertChapters(ctx context.Context, userID string, chapters []int, completedAt time.Time) (int64, error)
}

type RemoteProgressStore struct {
	records ProgressRecordRepository
}

func NewRemoteProgressStore(records ProgressRecordRepository) *RemoteProgressStore {
	return &RemoteProgressStore{records: records}
}

func (remote *RemoteProgressStore) Read(ctx context.Context, userID string) (ChapterSet, error) {
	chapters, err := remote.records.ChapterNumbers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read remote progress: %w", err)
	}
	return NewChapterSet(chapters...), nil
}

func (remote *RemoteProgressStore) Add(ctx context.Context, userID string, chapters []int, completedAt time.Time) (int, error) {
	added, err := remote.records.InsertChapters(ctx, userID, chapters, completedAt)
	if err != nil {
		return 0, fmt.Errorf("insert remote progress: %w", err)
	}
	return int(added), nil
}
