package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onboardhq/apiserver/internal/store"
	"github.com/onboardhq/apiserver/types"
)

func newProgressFixture(t *testing.T) (*ProgressService, *UserService, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	users := NewUserService(mem.Users())
	progress := NewProgressService(mem.Progress(), mem.Users())
	return progress, users, mem
}

func mustCreateUser(t *testing.T, users *UserService, email string) types.User {
	t.Helper()
	user, err := users.Create(context.Background(), email, "password1", "Test User")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestGetCreatesDefaultRecord(t *testing.T) {
	progress, users, _ := newProgressFixture(t)
	user := mustCreateUser(t, users, "fresh@example.com")

	record, err := progress.Get(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if record.UserID != user.ID {
		t.Fatalf("unexpected user id %d", record.UserID)
	}
	if record.CompletedSections != 0 || record.CurrentSection != 0 {
		t.Fatalf("expected zero counters, got %d/%d", record.CompletedSections, record.CurrentSection)
	}
	if len(record.Sections) != 0 {
		t.Fatalf("expected empty sections, got %d", len(record.Sections))
	}
}

func TestGetIsIdempotent(t *testing.T) {
	progress, users, _ := newProgressFixture(t)
	user := mustCreateUser(t, users, "idem@example.com")

	first, err := progress.Get(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	second, err := progress.Get(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if !first.LastUpdated.Equal(second.LastUpdated) {
		t.Fatalf("record was recreated: %v vs %v", first.LastUpdated, second.LastUpdated)
	}
	if second.CompletedSections != 0 || len(second.Sections) != 0 {
		t.Fatalf("record changed between reads")
	}
}

func TestAcknowledgeCountsAndPosition(t *testing.T) {
	progress, users, _ := newProgressFixture(t)
	user := mustCreateUser(t, users, "ack@example.com")
	ctx := context.Background()

	record, err := progress.Acknowledge(ctx, user.ID, 0, true)
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if record.CompletedSections != 1 || record.CurrentSection != 1 {
		t.Fatalf("expected 1/1, got %d/%d", record.CompletedSections, record.CurrentSection)
	}
	if len(record.Sections) != 1 || record.Sections[0].ID != 0 || !record.Sections[0].Acknowledged {
		t.Fatalf("unexpected sections: %+v", record.Sections)
	}
	if record.Sections[0].CompletedAt == nil {
		t.Fatalf("expected CompletedAt to be stamped")
	}
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	progress, users, _ := newProgressFixture(t)
	user := mustCreateUser(t, users, "retry@example.com")
	ctx := context.Background()

	if _, err := progress.Acknowledge(ctx, user.ID, 2, true); err != nil {
		t.Fatalf("first acknowledge: %v", err)
	}
	record, err := progress.Acknowledge(ctx, user.ID, 2, true)
	if err != nil {
		t.Fatalf("second acknowledge: %v", err)
	}
	if record.CompletedSections != 1 {
		t.Fatalf("double counted: %d", record.CompletedSections)
	}
	if len(record.Sections) != 1 {
		t.Fatalf("duplicate section record: %+v", record.Sections)
	}
}

func TestAcknowledgeOutOfOrder(t *testing.T) {
	progress, users, _ := newProgressFixture(t)
	user := mustCreateUser(t, users, "order@example.com")
	ctx := context.Background()

	// Acknowledgment order is enforced by the client, not the server.
	for _, id := range []int{3, 0, 5} {
		if _, err := progress.Acknowledge(ctx, user.ID, id, true); err != nil {
			t.Fatalf("acknowledge %d: %v", id, err)
		}
	}
	record, err := progress.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.CompletedSections != 3 || record.CurrentSection != 3 {
		t.Fatalf("expected 3/3, got %d/%d", record.CompletedSections, record.CurrentSection)
	}
	// Sections come back ordered by id regardless of write order.
	for i, want := range []int{0, 3, 5} {
		if record.Sections[i].ID != want {
			t.Fatalf("section %d: got id %d, want %d", i, record.Sections[i].ID, want)
		}
	}
}

func TestCurrentSectionCapsAtTerminal(t *testing.T) {
	progress, users, _ := newProgressFixture(t)
	user := mustCreateUser(t, users, "cap@example.com")
	ctx := context.Background()

	// Acknowledging sections 0..5 completes the journey; section 6 itself
	// never requires acknowledgment.
	var record types.ProgressRecord
	var err error
	for id := 0; id <= 5; id++ {
		record, err = progress.Acknowledge(ctx, user.ID, id, true)
		if err != nil {
			t.Fatalf("acknowledge %d: %v", id, err)
		}
		wantCurrent := id + 1
		if record.CurrentSection != wantCurrent {
			t.Fatalf("after section %d: current %d, want %d", id, record.CurrentSection, wantCurrent)
		}
	}
	if record.CompletedSections != 6 || record.CurrentSection != 6 {
		t.Fatalf("expected terminal 6/6, got %d/%d", record.CompletedSections, record.CurrentSection)
	}

	// Acknowledging the terminal section too must not push past it.
	record, err = progress.Acknowledge(ctx, user.ID, 6, true)
	if err != nil {
		t.Fatalf("acknowledge terminal: %v", err)
	}
	if record.CompletedSections != 7 {
		t.Fatalf("expected count 7, got %d", record.CompletedSections)
	}
	if record.CurrentSection != 6 {
		t.Fatalf("current section passed terminal: %d", record.CurrentSection)
	}
}

func TestUnacknowledgeRecomputes(t *testing.T) {
	progress, users, _ := newProgressFixture(t)
	user := mustCreateUser(t, users, "toggle@example.com")
	ctx := context.Background()

	for id := 0; id <= 2; id++ {
		if _, err := progress.Acknowledge(ctx, user.ID, id, true); err != nil {
			t.Fatalf("acknowledge %d: %v", id, err)
		}
	}
	record, err := progress.Acknowledge(ctx, user.ID, 1, false)
	if err != nil {
		t.Fatalf("unacknowledge: %v", err)
	}
	if record.CompletedSections != 2 || record.CurrentSection != 2 {
		t.Fatalf("expected 2/2 after unacknowledge, got %d/%d", record.CompletedSections, record.CurrentSection)
	}
	if len(record.Sections) != 3 {
		t.Fatalf("section record dropped: %+v", record.Sections)
	}
}

func TestAcknowledgeRejectsInvalidSection(t *testing.T) {
	progress, users, _ := newProgressFixture(t)
	user := mustCreateUser(t, users, "range@example.com")
	ctx := context.Background()

	for _, id := range []int{-1, 7, 100} {
		if _, err := progress.Acknowledge(ctx, user.ID, id, true); !errors.Is(err, ErrInvalidSection) {
			t.Fatalf("section %d: expected ErrInvalidSection, got %v", id, err)
		}
	}

	// A rejected write must not create or mutate the record.
	if _, err := progress.repo.Get(ctx, user.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("record was created by invalid write: %v", err)
	}
}

func TestListAllEnrichesAndFallsBack(t *testing.T) {
	progress, users, _ := newProgressFixture(t)
	user := mustCreateUser(t, users, "report@example.com")
	ctx := context.Background()

	if _, err := progress.Acknowledge(ctx, user.ID, 0, true); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	// A record whose user no longer exists must degrade, not error.
	orphan := types.NewProgressRecord(9999, time.Now())
	if _, err := progress.repo.Upsert(ctx, orphan); err != nil {
		t.Fatalf("upsert orphan: %v", err)
	}

	entries, err := progress.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	byUser := map[int]types.EnrichedProgress{}
	for _, entry := range entries {
		byUser[entry.UserID] = entry
	}
	if got := byUser[user.ID]; got.UserEmail != "report@example.com" || got.UserName != "Test User" {
		t.Fatalf("enrichment wrong: %+v", got)
	}
	if got := byUser[9999]; got.UserEmail != "Unknown" || got.UserName != "Unknown" {
		t.Fatalf("missing user did not fall back: %+v", got)
	}
}

type capturedEvent struct {
	userID int
	at     time.Time
}

type fakePublisher struct {
	events []capturedEvent
}

func (f *fakePublisher) PublishCompleted(ctx context.Context, userID int, completedAt time.Time) error {
	f.events = append(f.events, capturedEvent{userID: userID, at: completedAt})
	return nil
}

func TestCompletionEventFiresOnce(t *testing.T) {
	progress, users, _ := newProgressFixture(t)
	events := &fakePublisher{}
	progress.WithEvents(events)
	user := mustCreateUser(t, users, "done@example.com")
	ctx := context.Background()

	for id := 0; id <= 5; id++ {
		if _, err := progress.Acknowledge(ctx, user.ID, id, true); err != nil {
			t.Fatalf("acknowledge %d: %v", id, err)
		}
	}
	if len(events.events) != 1 {
		t.Fatalf("expected 1 completion event, got %d", len(events.events))
	}
	if events.events[0].userID != user.ID {
		t.Fatalf("event for wrong user: %d", events.events[0].userID)
	}

	// Retrying the final acknowledgment must not publish again.
	if _, err := progress.Acknowledge(ctx, user.ID, 5, true); err != nil {
		t.Fatalf("retry acknowledge: %v", err)
	}
	if len(events.events) != 1 {
		t.Fatalf("completion event duplicated: %d", len(events.events))
	}
}
