package services

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/terraincognita07/easypeasy/internal/localstore"
	"github.com/terraincognita07/easypeasy/internal/models"
)

const testUserID = "3b1f6c2e-1d2a-4c5b-8e9f-0a1b2c3d4e5f"

type progressFixture struct {
	engine     *ProgressEngine
	records    *stubProgressRecords
	ledger     *stubMilestoneLedger
	notifier   *stubNotifier
	profiles   *stubProfiles
	completion *CompletionService
	devices    *localstore.MemoryDevices
}

func newProgressFixture() *progressFixture {
	records := newStubProgressRecords()
	ledger := newStubMilestoneLedger()
	notifier := &stubNotifier{}
	profiles := newStubProfiles()
	users := &stubUsers{users: map[string]models.User{testUserID: {ID: testUserID, Email: "reader@example.com"}}}

	completion := NewCompletionService(profiles, time.UTC)
	engine := NewProgressEngine(
		NewRemoteProgressStore(records),
		NewMilestoneService(ledger, users, notifier, nil),
		completion,
		nil,
	)
	return &progressFixture{
		engine:     engine,
		records:    records,
		ledger:     ledger,
		notifier:   notifier,
		profiles:   profiles,
		completion: completion,
		devices:    localstore.NewMemoryDevices(),
	}
}

func TestCompleteChapterTogglesMembership(t *testing.T) {
	fixture := newProgressFixture()
	store := newTestDevice(t, fixture.devices)
	session, err := fixture.engine.NewSession(context.Background(), Guest(), store)
	if err != nil {
		t.Fatalf("NewSession() unexpected error: %v", err)
	}

	first, err := session.CompleteChapter(context.Background(), 3)
	if err != nil {
		t.Fatalf("CompleteChapter() unexpected error: %v", err)
	}
	if !first.Added || !session.IsChapterCompleted(3) {
		t.Fatalf("expected chapter 3 to be added, got %+v", first)
	}

	second, err := session.CompleteChapter(context.Background(), 3)
	if err != nil {
		t.Fatalf("CompleteChapter() unexpected error: %v", err)
	}
	if second.Added || session.IsChapterCompleted(3) {
		t.Fatalf("expected chapter 3 to be removed, got %+v", second)
	}
	if second.Progress.Count != 0 {
		t.Fatalf("expected empty progress, got %+v", second.Progress)
	}
}

func TestCompleteChapterRejectsOutOfRange(t *testing.T) {
	fixture := newProgressFixture()
	session, err := fixture.engine.NewSession(context.Background(), Guest(), newTestDevice(t, fixture.devices))
	if err != nil {
		t.Fatalf("NewSession() unexpected error: %v", err)
	}

	for _, chapter := range []int{0, 21, -1} {
		if _, err := session.CompleteChapter(context.Background(), chapter); !errors.Is(err, ErrInvalidChapter) {
			t.Fatalf("expected ErrInvalidChapter for %d, got %v", chapter, err)
		}
	}
}

func TestSyncProgressToRemoteIsIdempotent(t *testing.T) {
	fixture := newProgressFixture()
	completed := NewChapterSet(1, 2, 3)

	added, err := fixture.engine.SyncProgressToRemote(context.Background(), testUserID, completed)
	if err != nil {
		t.Fatalf("SyncProgressToRemote() unexpected error: %v", err)
	}
	if added != 3 {
		t.Fatalf("expected 3 chapters added, got %d", added)
	}

	added, err = fixture.engine.SyncProgressToRemote(context.Background(), testUserID, completed)
	if err != nil {
		t.Fatalf("SyncProgressToRemote() unexpected error: %v", err)
	}
	if added != 0 {
		t.Fatalf("expected second sync to add nothing, got %d", added)
	}
	if fixture.records.insertCalls != 1 {
		t.Fatalf("expected one insert batch, got %d", fixture.records.insertCalls)
	}
	if fixture.records.count(testUserID) != 3 {
		t.Fatalf("expected 3 remote records, got %d", fixture.records.count(testUserID))
	}
}

func TestSyncNeverRemovesRemoteRecords(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	session, err := fixture.engine.NewSession(ctx, Authenticated(testUserID), newTestDevice(t, fixture.devices))
	if err != nil {
		t.Fatalf("NewSession() unexpected error: %v", err)
	}

	if _, err := session.CompleteChapter(ctx, 1); err != nil {
		t.Fatalf("CompleteChapter() unexpected error: %v", err)
	}
	if _, err := session.CompleteChapter(ctx, 2); err != nil {
		t.Fatalf("CompleteChapter() unexpected error: %v", err)
	}
	if _, err := session.CompleteChapter(ctx, 2); err != nil {
		t.Fatalf("CompleteChapter() unexpected error: %v", err)
	}

	if fixture.records.count(testUserID) != 2 {
		t.Fatalf("expected remote records to keep chapter 2, got %d", fixture.records.count(testUserID))
	}
}

func TestAccessRule(t *testing.T) {
	set := NewChapterSet(1, 2)
	cases := map[int]bool{1: true, 2: true, 3: true, 4: false, 20: false, 0: false, 21: false}
	for chapter, want := range cases {
		if got := IsChapterAccessible(set, chapter); got != want {
			t.Fatalf("IsChapterAccessible(%d) = %v, want %v", chapter, got, want)
		}
	}
	if !IsChapterAccessible(NewChapterSet(), 1) {
		t.Fatal("expected chapter 1 open for empty progress")
	}
}

func TestGuestProgressSurvivesReloadAndStaysLocal(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	store := newTestDevice(t, fixture.devices)

	session, err := fixture.engine.NewSession(ctx, Guest(), store)
	if err != nil {
		t.Fatalf("NewSession() unexpected error: %v", err)
	}
	for _, chapter := range []int{1, 2, 5} {
		if _, err := session.CompleteChapter(ctx, chapter); err != nil {
			t.Fatalf("CompleteChapter(%d) unexpected error: %v", chapter, err)
		}
	}

	reloaded, err := fixture.engine.NewSession(ctx, Guest(), store)
	if err != nil {
		t.Fatalf("NewSession() unexpected error: %v", err)
	}
	if got := reloaded.Snapshot().Completed; !reflect.DeepEqual(got, []int{1, 2, 5}) {
		t.Fatalf("expected reloaded progress [1 2 5], got %v", got)
	}
	if fixture.records.insertCalls != 0 {
		t.Fatalf("expected no remote writes for guest, got %d", fixture.records.insertCalls)
	}
	if fixture.ledger.count() != 0 {
		t.Fatalf("expected no milestone records for guest, got %d", fixture.ledger.count())
	}
}

func TestLoadProgressFallsBackToLocalOnRemoteFailure(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	store := newTestDevice(t, fixture.devices)
	if err := NewLocalProgressStore(store, nil).Write(ctx, NewChapterSet(1, 2)); err != nil {
		t.Fatalf("seed local progress: %v", err)
	}
	fixture.records.readErr = errStubUnavailable

	set, err := fixture.engine.LoadProgress(ctx, Authenticated(testUserID), NewLocalProgressStore(store, nil))
	if err != nil {
		t.Fatalf("LoadProgress() unexpected error: %v", err)
	}
	if !reflect.DeepEqual(set.Sorted(), []int{1, 2}) {
		t.Fatalf("expected local fallback [1 2], got %v", set.Sorted())
	}
}

func TestNewSessionPushesDeviceCopyAfterRemoteFallback(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	store := newTestDevice(t, fixture.devices)
	if err := NewLocalProgressStore(store, nil).Write(ctx, NewChapterSet(1, 2)); err != nil {
		t.Fatalf("seed local progress: %v", err)
	}
	fixture.records.failReads = 1

	session, err := fixture.engine.NewSession(ctx, Authenticated(testUserID), store)
	if err != nil {
		t.Fatalf("NewSession() unexpected error: %v", err)
	}
	if got := session.Snapshot().Count; got != 2 {
		t.Fatalf("expected device copy with 2 chapters, got %d", got)
	}
	if got := fixture.records.count(testUserID); got != 2 {
		t.Fatalf("expected device copy pushed to remote, got %d records", got)
	}
}

func TestNewSessionSkipsSyncWhenRemoteStaysDown(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	store := newTestDevice(t, fixture.devices)
	if err := NewLocalProgressStore(store, nil).Write(ctx, NewChapterSet(4)); err != nil {
		t.Fatalf("seed local progress: %v", err)
	}
	fixture.records.readErr = errStubUnavailable

	session, err := fixture.engine.NewSession(ctx, Authenticated(testUserID), store)
	if err != nil {
		t.Fatalf("NewSession() unexpected error: %v", err)
	}
	if !session.IsChapterCompleted(4) {
		t.Fatal("expected chapter 4 from the device copy")
	}
	if fixture.records.insertCalls != 0 {
		t.Fatalf("expected no inserts while remote is down, got %d", fixture.records.insertCalls)
	}
}

func TestLoadProgressDiscardsCorruptLocalEntry(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	store := newTestDevice(t, fixture.devices)
	if err := store.Set(ctx, LocalProgressKey, "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	set, err := fixture.engine.LoadProgress(ctx, Guest(), NewLocalProgressStore(store, nil))
	if err != nil {
		t.Fatalf("LoadProgress() unexpected error: %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("expected empty set, got %v", set.Sorted())
	}
	if _, ok, _ := store.Get(ctx, LocalProgressKey); ok {
		t.Fatal("expected corrupt entry to be removed")
	}
}

func TestLocalProgressDropsOutOfRangeValues(t *testing.T) {
	ctx := context.Background()
	store := newTestDevice(t, localstore.NewMemoryDevices())
	if err := store.Set(ctx, LocalProgressKey, "[0,1,20,21,3]"); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	set, err := NewLocalProgressStore(store, nil).Read(ctx)
	if err != nil {
		t.Fatalf("Read() unexpected error: %v", err)
	}
	if !reflect.DeepEqual(set.Sorted(), []int{1, 3, 20}) {
		t.Fatalf("expected [1 3 20], got %v", set.Sorted())
	}
}

func TestCompleteChapterRecordsMilestoneOnce(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	session, err := fixture.engine.NewSession(ctx, Authenticated(testUserID), newTestDevice(t, fixture.devices))
	if err != nil {
		t.Fatalf("NewSession() unexpected error: %v", err)
	}

	result, err := session.CompleteChapter(ctx, 5)
	if err != nil {
		t.Fatalf("CompleteChapter() unexpected error: %v", err)
	}
	if result.Milestone != MilestoneRecorded {
		t.Fatalf("expected recorded milestone, got %q", result.Milestone)
	}

	// untoggle then toggle again
	if _, err := session.CompleteChapter(ctx, 5); err != nil {
		t.Fatalf("CompleteChapter() unexpected error: %v", err)
	}
	result, err = session.CompleteChapter(ctx, 5)
	if err != nil {
		t.Fatalf("CompleteChapter() unexpected error: %v", err)
	}
	if result.Milestone != MilestoneAlreadyRecorded {
		t.Fatalf("expected already_recorded, got %q", result.Milestone)
	}
	if fixture.ledger.count() != 1 {
		t.Fatalf("expected one milestone record, got %d", fixture.ledger.count())
	}
	if fixture.notifier.count() != 1 {
		t.Fatalf("expected one milestone email, got %d", fixture.notifier.count())
	}
}

func TestCompleteNonMilestoneChapterSkipsLedger(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	session, err := fixture.engine.NewSession(ctx, Authenticated(testUserID), newTestDevice(t, fixture.devices))
	if err != nil {
		t.Fatalf("NewSession() unexpected error: %v", err)
	}

	result, err := session.CompleteChapter(ctx, 7)
	if err != nil {
		t.Fatalf("CompleteChapter() unexpected error: %v", err)
	}
	if result.Milestone != MilestoneNotMilestone {
		t.Fatalf("expected not_milestone, got %q", result.Milestone)
	}
	if fixture.ledger.count() != 0 || fixture.notifier.count() != 0 {
		t.Fatal("expected no ledger write and no email for chapter 7")
	}
}

func TestCompleteChapterSyncFailureKeepsLocalState(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	store := newTestDevice(t, fixture.devices)
	session, err := fixture.engine.NewSession(ctx, Authenticated(testUserID), store)
	if err != nil {
		t.Fatalf("NewSession() unexpected error: %v", err)
	}
	fixture.records.insertErr = errStubUnavailable

	result, err := session.CompleteChapter(ctx, 1)
	if err != nil {
		t.Fatalf("CompleteChapter() unexpected error: %v", err)
	}
	if result.SyncError == "" {
		t.Fatal("expected sync error to be reported")
	}

	local, err := NewLocalProgressStore(store, nil).Read(ctx)
	if err != nil {
		t.Fatalf("Read() unexpected error: %v", err)
	}
	if !local.Contains(1) {
		t.Fatal("expected chapter 1 in local store after failed sync")
	}
}

func TestResetRequiresConfirmationAndKeepsRemote(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	store := newTestDevice(t, fixture.devices)
	session, err := fixture.engine.NewSession(ctx, Authenticated(testUserID), store)
	if err != nil {
		t.Fatalf("NewSession() unexpected error: %v", err)
	}
	if _, err := session.CompleteChapter(ctx, 1); err != nil {
		t.Fatalf("CompleteChapter() unexpected error: %v", err)
	}

	if err := session.Reset(ctx, false); !errors.Is(err, ErrResetNotConfirmed) {
		t.Fatalf("expected ErrResetNotConfirmed, got %v", err)
	}
	if err := session.Reset(ctx, true); err != nil {
		t.Fatalf("Reset() unexpected error: %v", err)
	}
	if session.Snapshot().Count != 0 {
		t.Fatal("expected empty in-memory progress after reset")
	}
	if _, ok, _ := store.Get(ctx, LocalProgressKey); ok {
		t.Fatal("expected local entry to be cleared")
	}
	if fixture.records.count(testUserID) != 1 {
		t.Fatalf("expected remote record to survive reset, got %d", fixture.records.count(testUserID))
	}
}

func TestProgressSessionsReloadOnIdentityChange(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	registry := NewProgressSessions(fixture.engine)
	store := newTestDevice(t, fixture.devices)
	deviceID := "device-1"

	guest, err := registry.Get(ctx, deviceID, Guest(), store)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	again, err := registry.Get(ctx, deviceID, Guest(), store)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if guest != again {
		t.Fatal("expected cached session for same identity")
	}

	signedIn, err := registry.Get(ctx, deviceID, Authenticated(testUserID), store)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if signedIn == guest {
		t.Fatal("expected a fresh session after identity change")
	}
	if registry.Len() != 1 {
		t.Fatalf("expected one session per device, got %d", registry.Len())
	}
}

func TestProgressSessionsPruneIdle(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	registry := NewProgressSessions(fixture.engine)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return current }

	if _, err := registry.Get(ctx, "old", Guest(), newTestDevice(t, fixture.devices)); err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	current = current.Add(2 * time.Hour)
	if _, err := registry.Get(ctx, "fresh", Guest(), newTestDevice(t, fixture.devices)); err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}

	if pruned := registry.Prune(time.Hour); pruned != 1 {
		t.Fatalf("expected one pruned session, got %d", pruned)
	}
	if registry.Len() != 1 {
		t.Fatalf("expected one remaining session, got %d", registry.Len())
	}
}

func TestConcurrentTogglesAreSerialised(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	session, err := fixture.engine.NewSession(ctx, Guest(), newTestDevice(t, fixture.devices))
	if err != nil {
		t.Fatalf("NewSession() unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for chapter := 1; chapter <= 20; chapter++ {
		wg.Add(1)
		go func(chapter int) {
			defer wg.Done()
			if _, err := session.CompleteChapter(ctx, chapter); err != nil {
				t.Errorf("CompleteChapter(%d) unexpected error: %v", chapter, err)
			}
		}(chapter)
	}
	wg.Wait()

	snapshot := session.Snapshot()
	if snapshot.Count != 20 || snapshot.Percentage != 100 {
		t.Fatalf("expected all chapters complete, got %+v", snapshot)
	}
}

func TestMergeLocalProgressAddsOnlyMissingChapters(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	store := newTestDevice(t, fixture.devices)
	if err := NewLocalProgressStore(store, nil).Write(ctx, NewChapterSet(1, 2, 3)); err != nil {
		t.Fatalf("seed local progress: %v", err)
	}
	if _, err := fixture.records.InsertChapters(ctx, testUserID, []int{2}, time.Now()); err != nil {
		t.Fatalf("seed remote progress: %v", err)
	}

	added, err := fixture.engine.MergeLocalProgress(ctx, testUserID, store)
	if err != nil {
		t.Fatalf("MergeLocalProgress() unexpected error: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 merged chapters, got %d", added)
	}
	if fixture.records.count(testUserID) != 3 {
		t.Fatalf("expected 3 remote records, got %d", fixture.records.count(testUserID))
	}
}

func TestInvalidateUserDropsOnlyThatAccount(t *testing.T) {
	fixture := newProgressFixture()
	ctx := context.Background()
	registry := NewProgressSessions(fixture.engine)

	if _, err := registry.Get(ctx, "signed-in", Authenticated(testUserID), newTestDevice(t, fixture.devices)); err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if _, err := registry.Get(ctx, "guest", Guest(), newTestDevice(t, fixture.devices)); err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}

	registry.InvalidateUser(testUserID)
	if registry.Len() != 1 {
		t.Fatalf("expected guest session to remain, got %d sessions", registry.Len())
	}
}
