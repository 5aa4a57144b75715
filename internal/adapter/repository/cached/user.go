package cached

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-management-api/internal/adapter/cache"
	domain "user-management-api/internal/domain/user"
	"user-management-api/internal/usecase/user"
	pkgerrors "user-management-api/pkg/errors"
)

// UserRepository decorates a persistent user.Repository with a read-through
// cache for GetByID. Writes evict before and after the store mutation, and a
// per-ID generation stops a read that raced a write from caching what it saw.
type UserRepository struct {
	store user.Repository
	cache cache.UserCache
	log   *zap.Logger
	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

// NewUserRepository wraps store with c.
func NewUserRepository(store user.Repository, c cache.UserCache, log *zap.Logger) *UserRepository {
	return &UserRepository{store: store, cache: c, log: log, gens: make(map[string]uint64)}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	return r.store.Create(ctx, u)
}

// GetByID serves from cache when possible. Concurrent misses for the same ID
// share one store read.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u, err := r.cache.Get(ctx, id); err != nil {
		r.log.Warn("cache read failed, using store", zap.String("id", id), zap.Error(err))
	} else if u != nil {
		return u, nil
	}

	result, err, _ := r.group.Do(cache.Key(id), func() (any, error) {
		gen := r.generation(id)
		u, err := r.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		r.fill(ctx, id, u, gen)
		return u, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.User), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.store.GetByEmail(ctx, email)
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	if err := r.beginWrite(ctx, u.ID); err != nil {
		return nil, err
	}
	updated, err := r.store.Update(ctx, u)
	r.endWrite(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if err := r.beginWrite(ctx, id); err != nil {
		return err
	}
	err := r.store.Delete(ctx, id)
	r.endWrite(ctx, id)
	return err
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	return r.store.List(ctx)
}

func (r *UserRepository) generation(id string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[id]
}

// fill caches u unless a write to id started after gen was read. The lock
// is held across Set so no write can start in between.
func (r *UserRepository) fill(ctx context.Context, id string, u *domain.User, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gens[id] != gen {
		r.log.Debug("skipping cache fill after concurrent write", zap.String("id", id))
		return
	}
	if err := r.cache.Set(ctx, u); err != nil {
		r.log.Warn("failed to cache user", zap.String("id", id), zap.Error(err))
	}
}

// beginWrite invalidates reads in flight and drops the cached entry. The
// write must not proceed when the entry cannot be dropped.
func (r *UserRepository) beginWrite(ctx context.Context, id string) error {
	r.mu.Lock()
	r.gens[id]++
	r.mu.Unlock()

	if err := r.cache.Delete(ctx, id); err != nil {
		r.log.Error("failed to evict cached user before write", zap.String("id", id), zap.Error(err))
		return pkgerrors.NewInternalError("failed to invalidate cached user", err)
	}
	return nil
}

// endWrite evicts again, covering fills that passed the generation check
// before beginWrite ran.
func (r *UserRepository) endWrite(ctx context.Context, id string) {
	r.group.Forget(cache.Key(id))
	if err := r.cache.Delete(ctx, id); err != nil {
		r.log.Error("failed to evict cached user after write", zap.String("id", id), zap.Error(err))
	}
}
