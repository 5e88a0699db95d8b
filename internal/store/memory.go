package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
	pgvector "github.com/pgvector/pgvector-go"
)

type MemoryItemStore struct {
	db *pgxpool.Pool
}

func NewMemoryItemStore(db *pgxpool.Pool) *MemoryItemStore {
	return &MemoryItemStore{db: db}
}

func (s *MemoryItemStore) Create(ctx context.Context, item *domain.MemoryItem) error {
	var embedding *pgvector.Vector
	if len(item.Embedding) > 0 {
		v := pgvector.NewVector(item.Embedding)
		embedding = &v
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO memory_items (tenant_id, agent_id, user_id, thread_id, namespace, content, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		item.TenantID, item.AgentID, item.UserID, item.ThreadID, item.Namespace, item.Content, embedding,
	).Scan(&item.ID, &item.CreatedAt)
}

// Search ranks items in a single namespace by cosine similarity. The
// namespace predicate is what keeps retrieval inside one tenant and agent.
func (s *MemoryItemStore) Search(ctx context.Context, namespace string, embedding []float32, k int) ([]domain.ScoredItem, error) {
	if k <= 0 {
		k = 5
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, agent_id, user_id, thread_id, namespace, content, created_at,
		        1 - (embedding <=> $1) AS score
		 FROM memory_items
		 WHERE namespace = $2 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, namespace, k,
	)
	if err != nil {
		return nil, fmt.Errorf("memory search: %w", err)
	}
	defer rows.Close()

	var items []domain.ScoredItem
	for rows.Next() {
		var it domain.ScoredItem
		if err := rows.Scan(&it.ID, &it.TenantID, &it.AgentID, &it.UserID, &it.ThreadID,
			&it.Namespace, &it.Content, &it.CreatedAt, &it.Score); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
