package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/onboardhq/apiserver/types"
)

// MemoryStore is the in-process backend: mutex-guarded maps with the same
// semantics as the postgres repositories. It backs the memory store mode
// and the unit tests.
type MemoryStore struct {
	mu         sync.RWMutex
	nextUserID int
	users      map[int]types.User
	emails     map[string]int
	progress   map[int]types.ProgressRecord
	sessions   map[string]types.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextUserID: 1,
		users:      make(map[int]types.User),
		emails:     make(map[string]int),
		progress:   make(map[int]types.ProgressRecord),
		sessions:   make(map[string]types.Session),
	}
}

// Users returns the user repository view of the store.
func (m *MemoryStore) Users() *MemoryUserRepository {
	return &MemoryUserRepository{store: m}
}

// Progress returns the progress repository view of the store.
func (m *MemoryStore) Progress() *MemoryProgressRepository {
	return &MemoryProgressRepository{store: m}
}

// Sessions returns the session repository view of the store.
func (m *MemoryStore) Sessions() *MemorySessionRepository {
	return &MemorySessionRepository{store: m}
}

type MemoryUserRepository struct {
	store *MemoryStore
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.emails[email]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return r.store.users[id], nil
}

func (r *MemoryUserRepository) List(ctx context.Context) ([]types.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	users := make([]types.User, 0, len(r.store.users))
	for _, user := range r.store.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *MemoryUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.emails[user.Email]; exists {
		return types.User{}, ErrAlreadyExists
	}

	now := time.Now()
	user.ID = r.store.nextUserID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.store.nextUserID++
	r.store.users[user.ID] = user
	r.store.emails[user.Email] = user.ID
	return user, nil
}

type MemoryProgressRepository struct {
	store *MemoryStore
}

func (r *MemoryProgressRepository) Get(ctx context.Context, userID int) (types.ProgressRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	record, ok := r.store.progress[userID]
	if !ok {
		return types.ProgressRecord{}, ErrNotFound
	}
	return copyProgress(record), nil
}

func (r *MemoryProgressRepository) Upsert(ctx context.Context, record types.ProgressRecord) (types.ProgressRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.progress[record.UserID] = copyProgress(record)
	return record, nil
}

func (r *MemoryProgressRepository) List(ctx context.Context) ([]types.ProgressRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	records := make([]types.ProgressRecord, 0, len(r.store.progress))
	for _, record := range r.store.progress {
		records = append(records, copyProgress(record))
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].LastUpdated.After(records[j].LastUpdated)
	})
	return records, nil
}

type MemorySessionRepository struct {
	store *MemoryStore
}

func (r *MemorySessionRepository) Create(ctx context.Context, session types.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.sessions[session.Token] = session
	return nil
}

func (r *MemorySessionRepository) Get(ctx context.Context, token string) (types.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	session, ok := r.store.sessions[token]
	if !ok {
		return types.Session{}, ErrNotFound
	}
	return session, nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, token string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.sessions[token]; !ok {
		return ErrNotFound
	}
	delete(r.store.sessions, token)
	return nil
}

// copyProgress clones the record so callers never alias the stored
// sections slice.
func copyProgress(record types.ProgressRecord) types.ProgressRecord {
	sections := make([]types.SectionRecord, len(record.Sections))
	copy(sections, record.Sections)
	record.Sections = sections
	return record
}
