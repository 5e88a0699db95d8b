package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
)

type TenantStore struct {
	db *pgxpool.Pool
}

func NewTenantStore(db *pgxpool.Pool) *TenantStore {
	return &TenantStore{db: db}
}

// Create persists a tenant built by domain.NewTenant; the ID is assigned by
// the constructor, not the database.
func (s *TenantStore) Create(ctx context.Context, t *domain.Tenant) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO tenants (id, name, api_key_hash) VALUES ($1, $2, $3)
		 RETURNING created_at, updated_at`,
		t.ID, t.Name, t.APIKeyHash,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (s *TenantStore) GetByAPIKeyHash(ctx context.Context, hash string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := s.db.QueryRow(ctx,
		`SELECT id, name, api_key_hash, created_at, updated_at
		 FROM tenants WHERE api_key_hash = $1`,
		hash,
	).Scan(&t.ID, &t.Name, &t.APIKeyHash, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RotateAPIKey replaces the stored key hash. The old key stops authenticating
// as soon as the update commits.
func (s *TenantStore) RotateAPIKey(ctx context.Context, id uuid.UUID, apiKeyHash string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE tenants SET api_key_hash = $2, updated_at = now() WHERE id = $1`,
		id, apiKeyHash,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
