package services

import (
	"context"
	"errors"
	"testing"

	"github.com/onboardhq/apiserver/internal/store"
	"github.com/onboardhq/apiserver/types"
)

func TestCreateUserIsStaff(t *testing.T) {
	mem := store.NewMemoryStore()
	users := NewUserService(mem.Users())

	user, err := users.Create(context.Background(), "new@example.com", "password1", "New Hire")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Role != types.RoleStaff {
		t.Fatalf("expected staff role, got %q", user.Role)
	}
	if user.PasswordHash == "" || user.PasswordHash == "password1" {
		t.Fatalf("password was not hashed")
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	mem := store.NewMemoryStore()
	users := NewUserService(mem.Users())
	ctx := context.Background()

	if _, err := users.Create(ctx, "taken@example.com", "password1", "First"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := users.Create(ctx, "taken@example.com", "password2", "Second"); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	all, err := users.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("duplicate create mutated the store: %d users", len(all))
	}
	if all[0].Name != "First" {
		t.Fatalf("original record changed: %+v", all[0])
	}
}

func TestAuthenticate(t *testing.T) {
	mem := store.NewMemoryStore()
	users := NewUserService(mem.Users())
	ctx := context.Background()

	created, err := users.Create(ctx, "login@example.com", "correct-horse", "Login User")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	user, err := users.Authenticate(ctx, "login@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != created.ID {
		t.Fatalf("wrong user: %d", user.ID)
	}
}

func TestAuthenticateEnumerationResistance(t *testing.T) {
	mem := store.NewMemoryStore()
	users := NewUserService(mem.Users())
	ctx := context.Background()

	if _, err := users.Create(ctx, "known@example.com", "secret123", "Known"); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Wrong password and unknown email must be indistinguishable.
	_, wrongPass := users.Authenticate(ctx, "known@example.com", "wrong")
	_, noUser := users.Authenticate(ctx, "nobody@example.com", "wrong")
	if !errors.Is(wrongPass, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", wrongPass)
	}
	if !errors.Is(noUser, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", noUser)
	}
}
