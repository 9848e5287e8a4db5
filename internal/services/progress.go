package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/onboardhq/apiserver/internal/store"
	"github.com/onboardhq/apiserver/types"
)

// ErrInvalidSection is returned for acknowledgment writes outside the
// fixed section range.
var ErrInvalidSection = errors.New("invalid section id")

const unknownUserLabel = "Unknown"

// ProgressRepository defines persistence operations for progress records.
type ProgressRepository interface {
	Get(ctx context.Context, userID int) (types.ProgressRecord, error)
	Upsert(ctx context.Context, record types.ProgressRecord) (types.ProgressRecord, error)
	List(ctx context.Context) ([]types.ProgressRecord, error)
}

// CompletionPublisher receives the terminal-state event for a user's
// onboarding journey.
type CompletionPublisher interface {
	PublishCompleted(ctx context.Context, userID int, completedAt time.Time) error
}

// ProgressService is the progress engine: it tracks which sections a user
// has acknowledged and derives position and completion counters. The
// server never enforces acknowledgment order; counters are recomputed from
// the full section set so retries and out-of-order writes converge.
type ProgressService struct {
	repo   ProgressRepository
	users  UserRepository
	events CompletionPublisher
	now    func() time.Time
}

func NewProgressService(repo ProgressRepository, users UserRepository) *ProgressService {
	return &ProgressService{
		repo:  repo,
		users: users,
		now:   time.Now,
	}
}

// WithEvents attaches a completion publisher. Without one, reaching the
// terminal state is silent.
func (s *ProgressService) WithEvents(events CompletionPublisher) *ProgressService {
	s.events = events
	return s
}

// Get returns the user's progress record, creating and persisting the
// default record on first access. Clients rely on this upsert-on-read
// contract: a fresh user gets a usable zero record, not an error.
func (s *ProgressService) Get(ctx context.Context, userID int) (types.ProgressRecord, error) {
	record, err := s.repo.Get(ctx, userID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.ProgressRecord{}, fmt.Errorf("load progress: %w", err)
	}

	return s.repo.Upsert(ctx, types.NewProgressRecord(userID, s.now()))
}

// Acknowledge upserts the section record for sectionID, recomputes the
// derived counters from the full section set, persists and returns the
// record. Section ids outside [0,6] are rejected before any write.
func (s *ProgressService) Acknowledge(ctx context.Context, userID, sectionID int, acknowledged bool) (types.ProgressRecord, error) {
	if !types.ValidSection(sectionID) {
		return types.ProgressRecord{}, ErrInvalidSection
	}

	record, err := s.Get(ctx, userID)
	if err != nil {
		return types.ProgressRecord{}, err
	}

	wasComplete := record.CurrentSection == types.LastSection

	now := s.now()
	record.SetSection(sectionID, acknowledged, now)
	record.Recompute(now)

	saved, err := s.repo.Upsert(ctx, record)
	if err != nil {
		return types.ProgressRecord{}, fmt.Errorf("save progress: %w", err)
	}

	// Publish only on the transition edge so retried final
	// acknowledgments do not duplicate the event. Best effort: a broker
	// failure must not fail the acknowledgment.
	if s.events != nil && !wasComplete && saved.CurrentSection == types.LastSection {
		_ = s.events.PublishCompleted(ctx, userID, now)
	}

	return saved, nil
}

// ListAll returns every progress record joined with the owning user's
// name and email for the admin report, newest activity first. A record
// whose user is missing degrades to placeholder values rather than
// failing the report.
func (s *ProgressService) ListAll(ctx context.Context) ([]types.EnrichedProgress, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	byID := make(map[int]types.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	enriched := make([]types.EnrichedProgress, 0, len(records))
	for _, record := range records {
		entry := types.EnrichedProgress{
			ProgressRecord: record,
			UserName:       unknownUserLabel,
			UserEmail:      unknownUserLabel,
		}
		if user, ok := byID[record.UserID]; ok {
			entry.UserName = user.Name
			entry.UserEmail = user.Email
		}
		enriched = append(enriched, entry)
	}
	return enriched, nil
}
