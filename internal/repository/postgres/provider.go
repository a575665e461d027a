package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/repository"
)

type providerRepository struct {
	BaseRepository
}

func NewProviderRepository(base BaseRepository) repository.ProviderRepository {
	return &providerRepository{base}
}

// Seed upserts the configured provider list.
func (r *providerRepository) Seed(ctx context.Context, providers []model.TransportProvider) error {
	query := `
		INSERT INTO transport_providers (id, name, contact)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, contact = EXCLUDED.contact
	`
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, p := range providers {
			if _, err := tx.ExecContext(ctx, query, p.ID, p.Name, p.Contact); err != nil {
				return fmt.Errorf("failed to seed provider %d: %w", p.ID, err)
			}
		}
		return nil
	})
}

func (r *providerRepository) List(ctx context.Context) ([]*model.TransportProvider, error) {
	var providers []*model.TransportProvider
	if err := r.db.SelectContext(ctx, &providers, `SELECT id, name, contact FROM transport_providers ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

func (r *providerRepository) Get(ctx context.Context, id int64) (*model.TransportProvider, error) {
	var p model.TransportProvider
	if err := r.db.GetContext(ctx, &p, `SELECT id, name, contact FROM transport_providers WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return &p, nil
}
