package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
)

type ThreadStore struct {
	db *pgxpool.Pool
}

func NewThreadStore(db *pgxpool.Pool) *ThreadStore {
	return &ThreadStore{db: db}
}

func (s *ThreadStore) GetOrCreate(ctx context.Context, tenantID, agentID, userID, threadID uuid.UUID) (*domain.Thread, error) {
	t := &domain.Thread{}
	err := s.db.QueryRow(ctx,
		`INSERT INTO threads (id, tenant_id, agent_id, user_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET id = threads.id
		 RETURNING id, tenant_id, agent_id, user_id, created_at`,
		threadID, tenantID, agentID, userID,
	).Scan(&t.ID, &t.TenantID, &t.AgentID, &t.UserID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// AppendMessage assigns seq inside the insert so ordering needs no
// process-level lock. Under read committed two concurrent appends can still
// read the same max(seq); the UNIQUE (thread_id, seq) constraint on messages
// rejects one of them and the caller's retry picks up a fresh max.
func (s *ThreadStore) AppendMessage(ctx context.Context, m *domain.Message) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO messages (thread_id, seq, role, content)
		 SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3 FROM messages WHERE thread_id = $1
		 RETURNING id, seq, created_at`,
		m.ThreadID, m.Role, m.Content,
	).Scan(&m.ID, &m.Seq, &m.CreatedAt)
}

func (s *ThreadStore) RecentMessages(ctx context.Context, threadID uuid.UUID, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, thread_id, seq, role, content, created_at
		 FROM (
		   SELECT id, thread_id, seq, role, content, created_at
		   FROM messages WHERE thread_id = $1
		   ORDER BY seq DESC LIMIT $2
		 ) recent
		 ORDER BY seq ASC`,
		threadID, limit,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Seq, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
