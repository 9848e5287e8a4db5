package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/onboardhq/apiserver/types"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onboarding.json")
	ctx := context.Background()

	first, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	user, err := first.Users().Create(ctx, types.User{
		Email:        "persist@example.com",
		Name:         "Persist",
		Role:         types.RoleStaff,
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	record := types.NewProgressRecord(user.ID, time.Now())
	record.SetSection(0, true, time.Now())
	record.Recompute(time.Now())
	if _, err := first.Progress().Upsert(ctx, record); err != nil {
		t.Fatalf("upsert progress: %v", err)
	}

	// A second open must see the snapshot written by the first.
	second, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	loadedUser, err := second.Users().GetByEmail(ctx, "persist@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if loadedUser.ID != user.ID || loadedUser.Role != types.RoleStaff {
		t.Fatalf("user did not round-trip: %+v", loadedUser)
	}
	// The hash is json:"-" on the API type but must survive the snapshot.
	if loadedUser.PasswordHash != "hash" {
		t.Fatalf("password hash lost across restart: %q", loadedUser.PasswordHash)
	}

	loaded, err := second.Progress().Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if loaded.CompletedSections != 1 || loaded.CurrentSection != 1 {
		t.Fatalf("progress did not round-trip: %+v", loaded)
	}

	// New ids continue after the persisted ones.
	next, err := second.Users().Create(ctx, types.User{Email: "next@example.com", Name: "Next", Role: types.RoleStaff})
	if err != nil {
		t.Fatalf("create next: %v", err)
	}
	if next.ID <= user.ID {
		t.Fatalf("id sequence reset: %d after %d", next.ID, user.ID)
	}
}

func TestFileStoreStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	fs, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := fs.Users().GetByEmail(context.Background(), "anyone@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreSessionsAreEphemeral(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onboarding.json")
	ctx := context.Background()

	first, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	session := types.Session{
		Token:     "tok",
		UserID:    1,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := first.Sessions().Create(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	// Trigger a snapshot write after the session exists.
	if _, err := first.Users().Create(ctx, types.User{Email: "a@example.com", Name: "A", Role: types.RoleStaff}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	second, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := second.Sessions().Get(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("session survived restart: %v", err)
	}
}
