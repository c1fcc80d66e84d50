package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/terraincognita07/easypeasy/internal/models"
)

func newTestMilestoneService(ledger *stubMilestoneLedger, notifier *stubNotifier) *MilestoneService {
	users := &stubUsers{users: map[string]models.User{testUserID: {ID: testUserID, Email: "reader@example.com"}}}
	return NewMilestoneService(ledger, users, notifier, nil)
}

func TestCheckAndUpdateMilestonesIgnoresOtherChapters(t *testing.T) {
	ledger := newStubMilestoneLedger()
	notifier := &stubNotifier{}
	service := newTestMilestoneService(ledger, notifier)

	outcome, err := service.CheckAndUpdateMilestones(context.Background(), testUserID, 7)
	if err != nil {
		t.Fatalf("CheckAndUpdateMilestones() unexpected error: %v", err)
	}
	if outcome != MilestoneNotMilestone {
		t.Fatalf("expected not_milestone, got %q", outcome)
	}
	if ledger.count() != 0 || notifier.count() != 0 {
		t.Fatal("expected no side effects for chapter 7")
	}
}

func TestCheckAndUpdateMilestonesSendsChapterEmail(t *testing.T) {
	ledger := newStubMilestoneLedger()
	notifier := &stubNotifier{}
	service := newTestMilestoneService(ledger, notifier)

	outcome, err := service.CheckAndUpdateMilestones(context.Background(), testUserID, 10)
	if err != nil {
		t.Fatalf("CheckAndUpdateMilestones() unexpected error: %v", err)
	}
	if outcome != MilestoneRecorded {
		t.Fatalf("expected recorded, got %q", outcome)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected one email, got %d", notifier.count())
	}
	if notifier.sent[0].To != "reader@example.com" {
		t.Fatalf("unexpected recipient %q", notifier.sent[0].To)
	}
	if !strings.Contains(notifier.sent[0].Subject, "Halfway") {
		t.Fatalf("unexpected subject %q", notifier.sent[0].Subject)
	}
}

func TestCheckAndUpdateMilestonesConcurrentCallsRecordOnce(t *testing.T) {
	ledger := newStubMilestoneLedger()
	ledger.existsAlwaysFalse = true
	notifier := &stubNotifier{}
	service := newTestMilestoneService(ledger, notifier)

	var wg sync.WaitGroup
	var mu sync.Mutex
	recorded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := service.CheckAndUpdateMilestones(context.Background(), testUserID, 5)
			if err != nil {
				t.Errorf("CheckAndUpdateMilestones() unexpected error: %v", err)
				return
			}
			if outcome == MilestoneRecorded {
				mu.Lock()
				recorded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if recorded != 1 {
		t.Fatalf("expected exactly one recorded outcome, got %d", recorded)
	}
	if ledger.count() != 1 {
		t.Fatalf("expected one ledger row, got %d", ledger.count())
	}
	if notifier.count() > 1 {
		t.Fatalf("expected at most one email, got %d", notifier.count())
	}
}

func TestCheckAndUpdateMilestonesKeepsRecordWhenEmailFails(t *testing.T) {
	ledger := newStubMilestoneLedger()
	notifier := &stubNotifier{err: errStubUnavailable}
	service := newTestMilestoneService(ledger, notifier)

	outcome, err := service.CheckAndUpdateMilestones(context.Background(), testUserID, 20)
	if err != nil {
		t.Fatalf("CheckAndUpdateMilestones() unexpected error: %v", err)
	}
	if outcome != MilestoneRecorded {
		t.Fatalf("expected recorded, got %q", outcome)
	}
	if ledger.count() != 1 {
		t.Fatal("expected ledger row to stay after email failure")
	}
}
