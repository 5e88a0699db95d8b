package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
)

// ContractStore keeps the current contract row plus an append-only
// contract_versions table holding one JSON snapshot per version.
type ContractStore struct {
	db *pgxpool.Pool
}

func NewContractStore(db *pgxpool.Pool) *ContractStore {
	return &ContractStore{db: db}
}

func (s *ContractStore) Create(ctx context.Context, c *domain.Contract) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal contract: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO contracts (tenant_id, name, type, version, document)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		c.TenantID, c.Name, c.Type, c.Version, doc,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return err
	}

	// Re-marshal now that the ID is assigned so the snapshot is complete.
	doc, err = json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal contract snapshot: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO contract_versions (contract_id, tenant_id, version, document)
		 VALUES ($1, $2, $3, $4)`,
		c.ID, c.TenantID, c.Version, doc,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *ContractStore) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.Contract, error) {
	var doc []byte
	err := s.db.QueryRow(ctx,
		`SELECT document FROM contracts WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	c := &domain.Contract{}
	if err := json.Unmarshal(doc, c); err != nil {
		return nil, fmt.Errorf("unmarshal contract: %w", err)
	}
	return c, nil
}

// AppendVersion replaces the current row with the successor contract and
// appends its snapshot. The guard on version prevents lost updates when two
// writers race on the same contract.
func (s *ContractStore) AppendVersion(ctx context.Context, c *domain.Contract) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal contract: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE contracts SET version = $1, document = $2, updated_at = NOW()
		 WHERE id = $3 AND tenant_id = $4 AND version = $1 - 1`,
		c.Version, doc, c.ID, c.TenantID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO contract_versions (contract_id, tenant_id, version, document)
		 VALUES ($1, $2, $3, $4)`,
		c.ID, c.TenantID, c.Version, doc,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *ContractStore) ListVersions(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) ([]domain.Contract, error) {
	rows, err := s.db.Query(ctx,
		`SELECT document FROM contract_versions
		 WHERE contract_id = $1 AND tenant_id = $2
		 ORDER BY version ASC`,
		id, tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []domain.Contract
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var c domain.Contract
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, fmt.Errorf("unmarshal contract version: %w", err)
		}
		versions = append(versions, c)
	}
	return versions, rows.Err()
}
