package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/onboardhq/apiserver/types"
)

// FileStore is the file-backed variant: memory semantics with a JSON
// snapshot written after every mutation. Sessions are deliberately not
// snapshotted; a restart signs everyone out.
type FileStore struct {
	mem  *MemoryStore
	path string
}

type fileSnapshot struct {
	NextUserID int                    `json:"nextUserId"`
	Users      []snapshotUser         `json:"users"`
	Progress   []types.ProgressRecord `json:"progress"`
}

// snapshotUser mirrors types.User with the password hash included. The
// API type tags the hash json:"-" so it never leaks over the wire, but
// the snapshot must carry it or logins break across restarts.
type snapshotUser struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// OpenFileStore loads the snapshot at path, or starts empty when none
// exists yet.
func OpenFileStore(path string) (*FileStore, error) {
	f := &FileStore{
		mem:  NewMemoryStore(),
		path: path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, nil
		}
		return nil, err
	}

	var snap fileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}

	f.mem.nextUserID = snap.NextUserID
	if f.mem.nextUserID < 1 {
		f.mem.nextUserID = 1
	}
	for _, su := range snap.Users {
		user := types.User{
			ID:           su.ID,
			Email:        su.Email,
			Name:         su.Name,
			Role:         su.Role,
			PasswordHash: su.PasswordHash,
			CreatedAt:    su.CreatedAt,
			UpdatedAt:    su.UpdatedAt,
		}
		f.mem.users[user.ID] = user
		f.mem.emails[user.Email] = user.ID
	}
	for _, record := range snap.Progress {
		f.mem.progress[record.UserID] = record
	}
	return f, nil
}

// Users returns the user repository view of the store.
func (f *FileStore) Users() *FileUserRepository {
	return &FileUserRepository{store: f}
}

// Progress returns the progress repository view of the store.
func (f *FileStore) Progress() *FileProgressRepository {
	return &FileProgressRepository{store: f}
}

// Sessions returns the session repository view of the store.
func (f *FileStore) Sessions() *MemorySessionRepository {
	return f.mem.Sessions()
}

func (f *FileStore) save() error {
	f.mem.mu.RLock()
	snap := fileSnapshot{
		NextUserID: f.mem.nextUserID,
		Users:      make([]snapshotUser, 0, len(f.mem.users)),
		Progress:   make([]types.ProgressRecord, 0, len(f.mem.progress)),
	}
	for _, user := range f.mem.users {
		snap.Users = append(snap.Users, snapshotUser{
			ID:           user.ID,
			Email:        user.Email,
			Name:         user.Name,
			Role:         user.Role,
			PasswordHash: user.PasswordHash,
			CreatedAt:    user.CreatedAt,
			UpdatedAt:    user.UpdatedAt,
		})
	}
	for _, record := range f.mem.progress {
		snap.Progress = append(snap.Progress, record)
	}
	f.mem.mu.RUnlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

type FileUserRepository struct {
	store *FileStore
}

func (r *FileUserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	return r.store.mem.Users().GetByID(ctx, id)
}

func (r *FileUserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.store.mem.Users().GetByEmail(ctx, email)
}

func (r *FileUserRepository) List(ctx context.Context) ([]types.User, error) {
	return r.store.mem.Users().List(ctx)
}

func (r *FileUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	created, err := r.store.mem.Users().Create(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	if err := r.store.save(); err != nil {
		return types.User{}, err
	}
	return created, nil
}

type FileProgressRepository struct {
	store *FileStore
}

func (r *FileProgressRepository) Get(ctx context.Context, userID int) (types.ProgressRecord, error) {
	return r.store.mem.Progress().Get(ctx, userID)
}

func (r *FileProgressRepository) Upsert(ctx context.Context, record types.ProgressRecord) (types.ProgressRecord, error) {
	saved, err := r.store.mem.Progress().Upsert(ctx, record)
	if err != nil {
		return types.ProgressRecord{}, err
	}
	if err := r.store.save(); err != nil {
		return types.ProgressRecord{}, err
	}
	return saved, nil
}

func (r *FileProgressRepository) List(ctx context.Context) ([]types.ProgressRecord, error) {
	return r.store.mem.Progress().List(ctx)
}
