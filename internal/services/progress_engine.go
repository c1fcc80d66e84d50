package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/terraincognita07/easypeasy/internal/localstore"
	"github.com/terraincognita07/easypeasy/internal/logger"
	"github.com/terraincognita07/easypeasy/internal/models"
)

var ErrResetNotConfirmed = errors.New("reset not confirmed")

type ProgressSnapshot struct {
	Completed  []int   `json:"completed"`
	Count      int     `json:"count"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

type ToggleResult struct {
	Chapter           int              `json:"chapter"`
	Added             bool             `json:"added"`
	Progress          ProgressSnapshot `json:"progress"`
	Milestone         MilestoneOutcome `json:"milestone,omitempty"`
	CompletionDateSet bool             `json:"completion_date_set"`
	Synced            int              `json:"synced"`
	SyncError         string           `json:"sync_error,omitempty"`
}

type ProgressEngine struct {
	remote     *RemoteProgressStore
	milestones *MilestoneService
	completion *CompletionService
	log        *logger.Logger
	now        func() time.Time
}

func NewProgressEngine(remote *RemoteProgressStore, milestones *MilestoneService, completion *CompletionService, log *logger.Logger) *ProgressEngine {
	if log == nil {
		log = logger.NewNop()
	}
	return &ProgressEngine{
		remote:     remote,
		milestones: milestones,
		completion: completion,
		log:        log.With("service", "ProgressEngine"),
		now:        time.Now,
	}
}

func (engine *ProgressEngine) LoadProgress(ctx context.Context, identity Identity, local *LocalProgressStore) (ChapterSet, error) {
	set, _, err := engine.loadProgress(ctx, identity, local)
	return set, err
}

func (engine *ProgressEngine) loadProgress(ctx context.Context, identity Identity, local *LocalProgressStore) (ChapterSet, bool, error) {
	if identity.IsAuthenticated() {
		set, err := engine.remote.Read(ctx, identity.UserID)
		if err == nil {
			return set, false, nil
		}
		engine.log.Warn("remote progress unavailable; using device copy", "user_id", identity.UserID, "error", err)
		set, err = local.Read(ctx)
		return set, true, err
	}
	set, err := local.Read(ctx)
	return set, false, err
}

func (engine *ProgressEngine) SyncProgressToRemote(ctx context.Context, userID string, completed ChapterSet) (int, error) {
	remote, err := engine.remote.Read(ctx, userID)
	if err != nil {
		engine.log.Error("progress sync failed", "user_id", userID, "error", err)
		return 0, err
	}

	toAdd := completed.Difference(remote)
	if len(toAdd) == 0 {
		return 0, nil
	}

	added, err := engine.remote.Add(ctx, userID, toAdd, engine.now())
	if err != nil {
		engine.log.Error("progress sync failed", "user_id", userID, "chapters", toAdd, "error", err)
		return 0, err
	}
	engine.log.Debug("progress synced", "user_id", userID, "added", added)
	return added, nil
}

func (engine *ProgressEngine) MergeLocalProgress(ctx context.Context, userID string, store localstore.Store) (int, error) {
	local, err := NewLocalProgressStore(store, engine.log).Read(ctx)
	if err != nil {
		return 0, err
	}
	if local.Len() == 0 {
		return 0, nil
	}
	return engine.SyncProgressToRemote(ctx, userID, local)
}

func (engine *ProgressEngine) NewSession(ctx context.Context, identity Identity, store localstore.Store) (*ProgressSession, error) {
	local := NewLocalProgressStore(store, engine.log)
	completed, fellBack, err := engine.loadProgress(ctx, identity, local)
	if err != nil {
		return nil, err
	}
	if fellBack && completed.Len() > 0 {
		// Best effort; failures are logged by the sync itself.
		_, _ = engine.SyncProgressToRemote(ctx, identity.UserID, completed)
	}
	return &ProgressSession{
		engine:    engine,
		identity:  identity,
		local:     local,
		completed: completed,
	}, nil
}

type ProgressSession struct {
	mu        sync.Mutex
	engine    *ProgressEngine
	identity  Identity
	local     *LocalProgressStore
	completed ChapterSet
}

func (session *ProgressSession) Identity() Identity {
	return session.identity
}

func (session *ProgressSession) Snapshot() ProgressSnapshot {
	session.mu.Lock()
	defer session.mu.Unlock()
	return snapshotOf(session.completed)
}

func (session *ProgressSession) IsChapterAccessible(chapter int) bool {
	session.mu.Lock()
	defer session.mu.Unlock()
	return IsChapterAccessible(session.completed, chapter)
}

func (session *ProgressSession) IsChapterCompleted(chapter int) bool {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.completed.Contains(chapter)
}

func (session *ProgressSession) CompleteChapter(ctx context.Context, chapter int) (ToggleResult, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	next := session.completed.Clone()
	added, err := next.Toggle(chapter)
	if err != nil {
		return ToggleResult{}, err
	}
	if err := session.local.Write(ctx, next); err != nil {
		return ToggleResult{}, err
	}
	session.completed = next

	result := ToggleResult{Chapter: chapter, Added: added}
	if !session.identity.IsAuthenticated() {
		result.Progress = snapshotOf(next)
		return result, nil
	}

	engine := session.engine
	userID := session.identity.UserID
	if added {
		outcome, err := engine.milestones.CheckAndUpdateMilestones(ctx, userID, chapter)
		if err != nil {
			engine.log.Error("milestone check failed", "user_id", userID, "chapter", chapter, "error", err)
		}
		result.Milestone = outcome

		written, err := engine.completion.UpdateCompletionDate(ctx, userID, chapter)
		if err != nil {
			engine.log.Error("completion date update failed", "user_id", userID, "error", err)
		}
		result.CompletionDateSet = written
	}

	if next.Len() > 0 {
		synced, err := engine.SyncProgressToRemote(ctx, userID, next)
		if err != nil {
			result.SyncError = "progress sync failed"
		}
		result.Synced = synced
	}

	result.Progress = snapshotOf(next)
	return result, nil
}

// Reset clears the in-memory set and the device copy. Remote records stay.
func (session *ProgressSession) Reset(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrResetNotConfirmed
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	if err := session.local.Clear(ctx); err != nil {
		return err
	}
	session.completed = NewChapterSet()
	return nil
}

func snapshotOf(set ChapterSet) ProgressSnapshot {
	return ProgressSnapshot{
		Completed:  set.Sorted(),
		Count:      set.Len(),
		Total:      models.TotalChapters,
		Percentage: set.Percentage(),
	}
}

type ProgressSessions struct {
	mu       sync.RWMutex
	engine   *ProgressEngine
	sessions map[string]*ProgressSession
	lastUsed map[string]time.Time
	now      func() time.Time
}

func NewProgressSessions(engine *ProgressEngine) *ProgressSessions {
	return &ProgressSessions{
		engine:   engine,
		sessions: make(map[string]*ProgressSession),
		lastUsed: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (registry *ProgressSessions) Get(ctx context.Context, deviceID string, identity Identity, store localstore.Store) (*ProgressSession, error) {
	registry.mu.Lock()
	existing, ok := registry.sessions[deviceID]
	if ok && existing.identity == identity {
		registry.lastUsed[deviceID] = registry.now()
		registry.mu.Unlock()
		return existing, nil
	}
	registry.mu.Unlock()

	loaded, err := registry.engine.NewSession(ctx, identity, store)
	if err != nil {
		return nil, fmt.Errorf("load progress session: %w", err)
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.lastUsed[deviceID] = registry.now()
	if current, ok := registry.sessions[deviceID]; ok && current.identity == identity {
		return current, nil
	}
	registry.sessions[deviceID] = loaded
	return loaded, nil
}

func (registry *ProgressSessions) Invalidate(deviceID string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.sessions, deviceID)
	delete(registry.lastUsed, deviceID)
}

func (registry *ProgressSessions) InvalidateUser(userID string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	for deviceID, session := range registry.sessions {
		if session.identity.IsAuthenticated() && session.identity.UserID == userID {
			delete(registry.sessions, deviceID)
			delete(registry.lastUsed, deviceID)
		}
	}
}

func (registry *ProgressSessions) Prune(maxIdle time.Duration) int {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	cutoff := registry.now().Add(-maxIdle)
	pruned := 0
	for deviceID, usedAt := range registry.lastUsed {
		if usedAt.Before(cutoff) {
			delete(registry.sessions, deviceID)
			delete(registry.lastUsed, deviceID)
			pruned++
		}
	}
	return pruned
}

func (registry *ProgressSessions) Len() int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return len(registry.sessions)
}
