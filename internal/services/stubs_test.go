package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/easypeasy/internal/localstore"
	"github.com/terraincognita07/easypeasy/internal/models"
	"github.com/terraincognita07/easypeasy/internal/notify"
	"gorm.io/gorm"
)

func newTestDevice(t *testing.T, devices *localstore.MemoryDevices) localstore.Store {
	t.Helper()
	store, err := devices.Device(uuid.NewString())
	if err != nil {
		t.Fatalf("open device store: %v", err)
	}
	return store
}

type stubProgressRecords struct {
	mu          sync.Mutex
	chapters    map[string]map[int]time.Time
	readErr     error
	failReads   int
	insertErr   error
	insertCalls int
}

func newStubProgressRecords() *stubProgressRecords {
	return &stubProgressRecords{chapters: make(map[string]map[int]time.Time)}
}

func (stub *stubProgressRecords) ChapterNumbers(_ context.Context, userID string) ([]int, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.readErr != nil {
		return nil, stub.readErr
	}
	if stub.failReads > 0 {
		stub.failReads--
		return nil, errStubUnavailable
	}
	chapters := make([]int, 0, len(stub.chapters[userID]))
	for chapter := range stub.chapters[userID] {
		chapters = append(chapters, chapter)
	}
	return chapters, nil
}

func (stub *stubProgressRecords) InsertChapters(_ context.Context, userID string, chapters []int, completedAt time.Time) (int64, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.insertCalls++
	if stub.insertErr != nil {
		return 0, stub.insertErr
	}
	if stub.chapters[userID] == nil {
		stub.chapters[userID] = make(map[int]time.Time)
	}
	var added int64
	for _, chapter := range chapters {
		if _, ok := stub.chapters[userID][chapter]; ok {
			continue
		}
		stub.chapters[userID][chapter] = completedAt
		added++
	}
	return added, nil
}

func (stub *stubProgressRecords) count(userID string) int {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return len(stub.chapters[userID])
}

type stubMilestoneLedger struct {
	mu      sync.Mutex
	records map[string]time.Time
	// existsAlwaysFalse lets racing callers reach the conditional insert.
	existsAlwaysFalse bool
}

func newStubMilestoneLedger() *stubMilestoneLedger {
	return &stubMilestoneLedger{records: make(map[string]time.Time)}
}

func (stub *stubMilestoneLedger) Exists(_ context.Context, userID string, chapter int) (bool, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.existsAlwaysFalse {
		return false, nil
	}
	_, ok := stub.records[milestoneKey(userID, chapter)]
	return ok, nil
}

func (stub *stubMilestoneLedger) InsertIfAbsent(_ context.Context, userID string, chapter int, sentAt time.Time) (bool, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	key := milestoneKey(userID, chapter)
	if _, ok := stub.records[key]; ok {
		return false, nil
	}
	stub.records[key] = sentAt
	return true, nil
}

func (stub *stubMilestoneLedger) count() int {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return len(stub.records)
}

func milestoneKey(userID string, chapter int) string {
	return fmt.Sprintf("%s/%d", userID, chapter)
}

type stubUsers struct {
	users map[string]models.User
}

func (stub *stubUsers) FindByID(_ context.Context, userID string) (models.User, error) {
	user, ok := stub.users[userID]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []notify.Email
	err  error
}

func (stub *stubNotifier) Send(_ context.Context, email notify.Email) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.sent = append(stub.sent, email)
	return stub.err
}

func (stub *stubNotifier) count() int {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return len(stub.sent)
}

type stubProfiles struct {
	mu          sync.Mutex
	completions map[string]*time.Time
}

func newStubProfiles() *stubProfiles {
	return &stubProfiles{completions: make(map[string]*time.Time)}
}

func (stub *stubProfiles) Find(_ context.Context, userID string) (models.UserProfile, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	completion, ok := stub.completions[userID]
	if !ok {
		return models.UserProfile{}, gorm.ErrRecordNotFound
	}
	return models.UserProfile{UserID: userID, CompletionDate: completion}, nil
}

func (stub *stubProfiles) SetCompletionDateIfAbsent(_ context.Context, userID string, completedAt time.Time) (bool, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if existing := stub.completions[userID]; existing != nil {
		return false, nil
	}
	value := completedAt
	stub.completions[userID] = &value
	return true, nil
}

var errStubUnavailable = errors.New("backend unavailable")
