package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/easypeasy/internal/localstore"
	"github.com/terraincognita07/easypeasy/internal/logger"
	"github.com/terraincognita07/easypeasy/internal/models"
	"gorm.io/gorm"
)

const (
	GuestJournalKey = "guestJournalEntries"

	maxJournalTitleLength = 200
	maxJournalEntryLength = 20000
	maxJournalTags        = 20
	maxJournalTagLength   = 40
)

var (
	ErrJournalNotFound     = errors.New("journal entry not found")
	ErrJournalInvalidDate  = errors.New("invalid journal date")
	ErrJournalEntryTooLong = errors.New("journal entry too long")
	ErrJournalEmpty        = errors.New("journal entry is empty")
)

type JournalInput struct {
	Date  string   `json:"date"`
	Title string   `json:"title"`
	Entry string   `json:"entry"`
	Tags  []string `json:"tags"`
}

type JournalRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Journal, error)
	FindByDate(ctx context.Context, userID string, date string) (models.Journal, error)
	SaveForDate(ctx context.Context, entry models.Journal) (models.Journal, error)
	Delete(ctx context.Context, userID string, entryID string) (bool, error)
}

type JournalService struct {
	repo     JournalRepository
	location *time.Location
	log      *logger.Logger
	now      func() time.Time

	guestMu sync.Mutex
}

func NewJournalService(repo JournalRepository, location *time.Location, log *logger.Logger) *JournalService {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &JournalService{
		repo:     repo,
		location: location,
		log:      log.With("service", "JournalService"),
		now:      time.Now,
	}
}

func (service *JournalService) List(ctx context.Context, identity Identity, store localstore.Store) ([]models.Journal, error) {
	switch {
	case identity.IsAuthenticated():
		entries, err := service.repo.ListByUser(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("list journals: %w", err)
		}
		return entries, nil
	case identity.IsGuest():
		service.guestMu.Lock()
		defer service.guestMu.Unlock()
		entries, err := service.readGuest(ctx, store)
		if err != nil {
			return nil, err
		}
		sortJournalsByDate(entries)
		return entries, nil
	default:
		return nil, ErrIdentityRequired
	}
}

func (service *JournalService) ForDate(ctx context.Context, identity Identity, store localstore.Store, date string) (models.Journal, error) {
	if _, ok := ParseDate(date, service.location); !ok {
		return models.Journal{}, ErrJournalInvalidDate
	}
	switch {
	case identity.IsAuthenticated():
		entry, err := service.repo.FindByDate(ctx, identity.UserID, date)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Journal{}, ErrJournalNotFound
		}
		if err != nil {
			return models.Journal{}, fmt.Errorf("load journal: %w", err)
		}
		return entry, nil
	case identity.IsGuest():
		entries, err := service.List(ctx, identity, store)
		if err != nil {
			return models.Journal{}, err
		}
		for _, entry := range entries {
			if entry.Date == date {
				return entry, nil
			}
		}
		return models.Journal{}, ErrJournalNotFound
	default:
		return models.Journal{}, ErrIdentityRequired
	}
}

func (service *JournalService) Save(ctx context.Context, identity Identity, store localstore.Store, input JournalInput) (models.Journal, error) {
	entry, err := service.normalize(input)
	if err != nil {
		return models.Journal{}, err
	}

	switch {
	case identity.IsAuthenticated():
		entry.UserID = identity.UserID
		saved, err := service.repo.SaveForDate(ctx, entry)
		if err != nil {
			return models.Journal{}, fmt.Errorf("save journal: %w", err)
		}
		return saved, nil
	case identity.IsGuest():
		service.guestMu.Lock()
		defer service.guestMu.Unlock()

		entries, err := service.readGuest(ctx, store)
		if err != nil {
			return models.Journal{}, err
		}
		now := service.now().UTC()
		entry.ID = uuid.NewString()
		entry.CreatedAt = now
		entry.UpdatedAt = now
		entries = append([]models.Journal{entry}, entries...)
		if err := service.writeGuest(ctx, store, entries); err != nil {
			return models.Journal{}, err
		}
		return entry, nil
	default:
		return models.Journal{}, ErrIdentityRequired
	}
}

// Update rewrites an existing entry by id. Signed-in rows are unique per date,
// so moving an entry to another date replaces whatever that date held.
func (service *JournalService) Update(ctx context.Context, identity Identity, store localstore.Store, entryID string, input JournalInput) (models.Journal, error) {
	entry, err := service.normalize(input)
	if err != nil {
		return models.Journal{}, err
	}

	switch {
	case identity.IsAuthenticated():
		entries, err := service.repo.ListByUser(ctx, identity.UserID)
		if err != nil {
			return models.Journal{}, fmt.Errorf("list journals: %w", err)
		}
		existing, ok := findJournal(entries, entryID)
		if !ok {
			return models.Journal{}, ErrJournalNotFound
		}
		entry.UserID = identity.UserID
		saved, err := service.repo.SaveForDate(ctx, entry)
		if err != nil {
			return models.Journal{}, fmt.Errorf("save journal: %w", err)
		}
		if existing.Date != entry.Date {
			if _, err := service.repo.Delete(ctx, identity.UserID, existing.ID); err != nil {
				return models.Journal{}, fmt.Errorf("move journal: %w", err)
			}
		}
		return saved, nil
	case identity.IsGuest():
		service.guestMu.Lock()
		defer service.guestMu.Unlock()

		entries, err := service.readGuest(ctx, store)
		if err != nil {
			return models.Journal{}, err
		}
		for index := range entries {
			if entries[index].ID != entryID {
				continue
			}
			entries[index].Date = entry.Date
			entries[index].Title = entry.Title
			entries[index].Entry = entry.Entry
			entries[index].Tags = entry.Tags
			entries[index].UpdatedAt = service.now().UTC()
			if err := service.writeGuest(ctx, store, entries); err != nil {
				return models.Journal{}, err
			}
			return entries[index], nil
		}
		return models.Journal{}, ErrJournalNotFound
	default:
		return models.Journal{}, ErrIdentityRequired
	}
}

func (service *JournalService) Delete(ctx context.Context, identity Identity, store localstore.Store, entryID string) error {
	switch {
	case identity.IsAuthenticated():
		deleted, err := service.repo.Delete(ctx, identity.UserID, entryID)
		if err != nil {
			return fmt.Errorf("delete journal: %w", err)
		}
		if !deleted {
			return ErrJournalNotFound
		}
		return nil
	case identity.IsGuest():
		service.guestMu.Lock()
		defer service.guestMu.Unlock()

		entries, err := service.readGuest(ctx, store)
		if err != nil {
			return err
		}
		kept := entries[:0]
		for _, entry := range entries {
			if entry.ID != entryID {
				kept = append(kept, entry)
			}
		}
		if len(kept) == len(entries) {
			return ErrJournalNotFound
		}
		return service.writeGuest(ctx, store, kept)
	default:
		return ErrIdentityRequired
	}
}

func (service *JournalService) Tags(ctx context.Context, identity Identity, store localstore.Store) ([]string, error) {
	entries, err := service.List(ctx, identity, store)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, entry := range entries {
		for _, tag := range entry.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

func (service *JournalService) normalize(input JournalInput) (models.Journal, error) {
	date := strings.TrimSpace(input.Date)
	if date == "" {
		date = DateString(service.now(), service.location)
	}
	if _, ok := ParseDate(date, service.location); !ok {
		return models.Journal{}, ErrJournalInvalidDate
	}

	title := strings.TrimSpace(input.Title)
	text := strings.TrimSpace(input.Entry)
	if title == "" && text == "" {
		return models.Journal{}, ErrJournalEmpty
	}
	if len(title) > maxJournalTitleLength || len(text) > maxJournalEntryLength {
		return models.Journal{}, ErrJournalEntryTooLong
	}

	return models.Journal{
		Date:  date,
		Title: title,
		Entry: text,
		Tags:  NormalizeTags(input.Tags),
	}, nil
}

func NormalizeTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, value := range raw {
		tag := strings.ToLower(strings.TrimSpace(value))
		if tag == "" || len(tag) > maxJournalTagLength {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
		if len(tags) == maxJournalTags {
			break
		}
	}
	return tags
}

func (service *JournalService) readGuest(ctx context.Context, store localstore.Store) ([]models.Journal, error) {
	if store == nil {
		return nil, ErrIdentityRequired
	}
	raw, ok, err := store.Get(ctx, GuestJournalKey)
	if err != nil {
		return nil, fmt.Errorf("read guest journal: %w", err)
	}
	if !ok || raw == "" {
		return []models.Journal{}, nil
	}
	var entries []models.Journal
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		service.log.Warn("discarding corrupt guest journal", "error", err)
		return []models.Journal{}, nil
	}
	return entries, nil
}

func (service *JournalService) writeGuest(ctx context.Context, store localstore.Store, entries []models.Journal) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode guest journal: %w", err)
	}
	if err := store.Set(ctx, GuestJournalKey, string(raw)); err != nil {
		return fmt.Errorf("write guest journal: %w", err)
	}
	return nil
}

func findJournal(entries []models.Journal, entryID string) (models.Journal, bool) {
	for _, entry := range entries {
		if entry.ID == entryID {
			return entry, true
		}
	}
	return models.Journal{}, false
}

func sortJournalsByDate(entries []models.Journal) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date > entries[j].Date
	})
}
