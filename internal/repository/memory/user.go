package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/repository"
)

type userRepository struct {
	mu     sync.RWMutex
	byMail map[string]*model.User
	nextID int64
}

func newUserRepository() *userRepository {
	return &userRepository{byMail: make(map[string]*model.User)}
}

func (r *userRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byMail[user.Email]; exists {
		return repository.ErrDuplicate
	}

	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()

	cp := *user
	r.byMail[user.Email] = &cp
	return nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byMail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}
