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

// BeliefGraphStore keeps every graph version; Latest picks the highest
// version for the scope.
type BeliefGraphStore struct {
	db *pgxpool.Pool
}

func NewBeliefGraphStore(db *pgxpool.Pool) *BeliefGraphStore {
	return &BeliefGraphStore{db: db}
}

func (s *BeliefGraphStore) Create(ctx context.Context, g *domain.BeliefGraph) error {
	nodes, err := json.Marshal(g.Nodes)
	if err != nil {
		return fmt.Errorf("marshal belief nodes: %w", err)
	}
	edges, err := json.Marshal(g.Edges)
	if err != nil {
		return fmt.Errorf("marshal belief edges: %w", err)
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO belief_graphs (tenant_id, agent_id, user_id, version, nodes, edges)
		 SELECT $1, $2, $3, COALESCE(MAX(version), 0) + 1, $4, $5
		 FROM belief_graphs WHERE tenant_id = $1 AND agent_id = $2 AND user_id = $3
		 RETURNING id, version, created_at`,
		g.TenantID, g.AgentID, g.UserID, nodes, edges,
	).Scan(&g.ID, &g.Version, &g.CreatedAt)
}

func (s *BeliefGraphStore) Latest(ctx context.Context, tenantID, agentID, userID uuid.UUID) (*domain.BeliefGraph, error) {
	g := &domain.BeliefGraph{}
	var nodes, edges []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, tenant_id, agent_id, user_id, version, nodes, edges, created_at
		 FROM belief_graphs
		 WHERE tenant_id = $1 AND agent_id = $2 AND user_id = $3
		 ORDER BY version DESC LIMIT 1`,
		tenantID, agentID, userID,
	).Scan(&g.ID, &g.TenantID, &g.AgentID, &g.UserID, &g.Version, &nodes, &edges, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(nodes, &g.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal belief nodes: %w", err)
	}
	if err := json.Unmarshal(edges, &g.Edges); err != nil {
		return nil, fmt.Errorf("unmarshal belief edges: %w", err)
	}
	return g, nil
}
