package memory

import (
	"context"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/repository"
)

// providerRepository serves the static provider list; it is never mutated
// after construction, so it needs no lock.
type providerRepository struct {
	providers []model.TransportProvider
}

func newProviderRepository(providers []model.TransportProvider) *providerRepository {
	return &providerRepository{providers: append([]model.TransportProvider(nil), providers...)}
}

func (r *providerRepository) List(_ context.Context) ([]*model.TransportProvider, error) {
	result := make([]*model.TransportProvider, len(r.providers))
	for i := range r.providers {
		p := r.providers[i]
		result[i] = &p
	}
	return result, nil
}

func (r *providerRepository) Get(_ context.Context, id int64) (*model.TransportProvider, error) {
	for _, p := range r.providers {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}
