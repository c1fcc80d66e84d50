package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/easypeasy/internal/localstore"
	"github.com/terraincognita07/easypeasy/internal/models"
	"gorm.io/gorm"
)

type stubJournals struct {
	byDate map[string]models.Journal
}

func newStubJournals() *stubJournals {
	return &stubJournals{byDate: make(map[string]models.Journal)}
}

func (stub *stubJournals) ListByUser(_ context.Context, userID string) ([]models.Journal, error) {
	entries := make([]models.Journal, 0)
	for _, entry := range stub.byDate {
		if entry.UserID == userID {
			entries = append(entries, entry)
		}
	}
	sortJournalsByDate(entries)
	return entries, nil
}

func (stub *stubJournals) FindByDate(_ context.Context, userID string, date string) (models.Journal, error) {
	entry, ok := stub.byDate[date]
	if !ok || entry.UserID != userID {
		return models.Journal{}, gorm.ErrRecordNotFound
	}
	return entry, nil
}

func (stub *stubJournals) SaveForDate(_ context.Context, entry models.Journal) (models.Journal, error) {
	if existing, ok := stub.byDate[entry.Date]; ok {
		entry.ID = existing.ID
	} else if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	stub.byDate[entry.Date] = entry
	return entry, nil
}

func (stub *stubJournals) Delete(_ context.Context, userID string, entryID string) (bool, error) {
	for date, entry := range stub.byDate {
		if entry.ID == entryID && entry.UserID == userID {
			delete(stub.byDate, date)
			return true, nil
		}
	}
	return false, nil
}

func newTestJournalService(repo JournalRepository) *JournalService {
	service := NewJournalService(repo, time.UTC, nil)
	service.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return service
}

func TestGuestJournalPrependsAndEdits(t *testing.T) {
	service := newTestJournalService(newStubJournals())
	store := newTestDevice(t, localstore.NewMemoryDevices())
	ctx := context.Background()

	first, err := service.Save(ctx, Guest(), store, JournalInput{Date: "2026-03-01", Title: "Day one", Tags: []string{"Calm", " calm "}})
	if err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	second, err := service.Save(ctx, Guest(), store, JournalInput{Entry: "No date given"})
	if err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	if second.Date != "2026-03-10" {
		t.Fatalf("expected default date of today, got %q", second.Date)
	}
	if !reflect.DeepEqual(first.Tags, []string{"calm"}) {
		t.Fatalf("expected normalized tags [calm], got %v", first.Tags)
	}

	raw, _, err := store.Get(ctx, GuestJournalKey)
	if err != nil {
		t.Fatalf("read guest journal: %v", err)
	}
	var stored []models.Journal
	stored, err = service.readGuest(ctx, store)
	if err != nil || len(stored) != 2 || stored[0].ID != second.ID {
		t.Fatalf("expected newest entry first, got %s", raw)
	}

	updated, err := service.Update(ctx, Guest(), store, first.ID, JournalInput{Date: "2026-03-01", Title: "Edited"})
	if err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}
	if updated.Title != "Edited" || updated.ID != first.ID {
		t.Fatalf("unexpected update result %+v", updated)
	}

	if err := service.Delete(ctx, Guest(), store, first.ID); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if err := service.Delete(ctx, Guest(), store, first.ID); !errors.Is(err, ErrJournalNotFound) {
		t.Fatalf("expected ErrJournalNotFound on second delete, got %v", err)
	}
}

func TestGuestJournalCorruptStorageReadsEmpty(t *testing.T) {
	service := newTestJournalService(newStubJournals())
	store := newTestDevice(t, localstore.NewMemoryDevices())
	ctx := context.Background()
	if err := store.Set(ctx, GuestJournalKey, "not-json"); err != nil {
		t.Fatalf("seed guest journal: %v", err)
	}

	entries, err := service.List(ctx, Guest(), store)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty list, got %d", len(entries))
	}
}

func TestAuthenticatedJournalUpsertsByDate(t *testing.T) {
	repo := newStubJournals()
	service := newTestJournalService(repo)
	ctx := context.Background()
	identity := Authenticated(testUserID)

	first, err := service.Save(ctx, identity, nil, JournalInput{Date: "2026-03-01", Entry: "first"})
	if err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	second, err := service.Save(ctx, identity, nil, JournalInput{Date: "2026-03-01", Entry: "second"})
	if err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same row for same date, got %s and %s", first.ID, second.ID)
	}

	entries, err := service.List(ctx, identity, nil)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Entry != "second" {
		t.Fatalf("expected a single updated entry, got %+v", entries)
	}
}

func TestAuthenticatedJournalUpdateMovesDate(t *testing.T) {
	repo := newStubJournals()
	service := newTestJournalService(repo)
	ctx := context.Background()
	identity := Authenticated(testUserID)

	entry, err := service.Save(ctx, identity, nil, JournalInput{Date: "2026-03-01", Entry: "note"})
	if err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	if _, err := service.Update(ctx, identity, nil, entry.ID, JournalInput{Date: "2026-03-02", Entry: "note"}); err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}

	if _, err := service.ForDate(ctx, identity, nil, "2026-03-01"); !errors.Is(err, ErrJournalNotFound) {
		t.Fatalf("expected old date to be gone, got %v", err)
	}
	if _, err := service.ForDate(ctx, identity, nil, "2026-03-02"); err != nil {
		t.Fatalf("expected entry on new date, got %v", err)
	}
}

func TestJournalValidation(t *testing.T) {
	service := newTestJournalService(newStubJournals())
	ctx := context.Background()
	identity := Authenticated(testUserID)

	if _, err := service.Save(ctx, identity, nil, JournalInput{Date: "03/01/2026", Entry: "x"}); !errors.Is(err, ErrJournalInvalidDate) {
		t.Fatalf("expected ErrJournalInvalidDate, got %v", err)
	}
	if _, err := service.Save(ctx, identity, nil, JournalInput{Date: "2026-03-01"}); !errors.Is(err, ErrJournalEmpty) {
		t.Fatalf("expected ErrJournalEmpty, got %v", err)
	}
	if _, err := service.Save(ctx, Unauthenticated(), nil, JournalInput{Entry: "x"}); !errors.Is(err, ErrIdentityRequired) {
		t.Fatalf("expected ErrIdentityRequired, got %v", err)
	}
}

func TestJournalTagsFirstSeenOrder(t *testing.T) {
	repo := newStubJournals()
	service := newTestJournalService(repo)
	ctx := context.Background()
	identity := Authenticated(testUserID)

	for _, input := range []JournalInput{
		{Date: "2026-03-03", Entry: "c", Tags: []string{"sleep", "calm"}},
		{Date: "2026-03-01", Entry: "a", Tags: []string{"calm", "craving"}},
	} {
		if _, err := service.Save(ctx, identity, nil, input); err != nil {
			t.Fatalf("Save() unexpected error: %v", err)
		}
	}

	tags, err := service.Tags(ctx, identity, nil)
	if err != nil {
		t.Fatalf("Tags() unexpected error: %v", err)
	}
	if !reflect.DeepEqual(tags, []string{"sleep", "calm", "craving"}) {
		t.Fatalf("unexpected tags %v", tags)
	}
}
