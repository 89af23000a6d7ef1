package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/highscore-service/internal/domain"
)

// fakeUserRepo is an in-memory UserRepository safe for concurrent use.
type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	user.ID = strconv.Itoa(f.seq)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) UpdateHighScore(_ context.Context, id string, score int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.HighScore = score
	user.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserRepo) delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
}

// gatedUserRepo parks the first GetByID after it has taken its snapshot,
// so a test can interleave a score update with an in-flight profile read.
type gatedUserRepo struct {
	*fakeUserRepo
	gateOnce    sync.Once
	readStarted chan struct{}
	releaseRead chan struct{}
}

func newGatedUserRepo() *gatedUserRepo {
	return &gatedUserRepo{
		fakeUserRepo: newFakeUserRepo(),
		readStarted:  make(chan struct{}),
		releaseRead:  make(chan struct{}),
	}
}

func (g *gatedUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := g.fakeUserRepo.GetByID(ctx, id)
	g.gateOnce.Do(func() {
		close(g.readStarted)
		<-g.releaseRead
	})
	return user, err
}

// fakeProfileCache records cache traffic for assertion.
type fakeProfileCache struct {
	mu      sync.Mutex
	entries map[string]*domain.User
	deletes []string
}

func newFakeProfileCache() *fakeProfileCache {
	return &fakeProfileCache{entries: make(map[string]*domain.User)}
}

func (f *fakeProfileCache) GetProfile(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.entries[userID]
	if !ok {
		return nil, nil
	}
	clone := *user
	return &clone, nil
}

func (f *fakeProfileCache) SetProfile(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *user
	f.entries[user.ID] = &clone
	return nil
}

func (f *fakeProfileCache) SetProfileIfAbsent(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[user.ID]; ok {
		return nil
	}
	clone := *user
	f.entries[user.ID] = &clone
	return nil
}

func (f *fakeProfileCache) DeleteProfile(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, userID)
	f.deletes = append(f.deletes, userID)
	return nil
}
