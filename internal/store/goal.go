package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
)

type GoalStore struct {
	db *pgxpool.Pool
}

func NewGoalStore(db *pgxpool.Pool) *GoalStore {
	return &GoalStore{db: db}
}

func (s *GoalStore) Create(ctx context.Context, g *domain.GoalAssessment) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO goal_assessments
		   (tenant_id, agent_id, user_id, text, gas_current, gas_expected, gas_target, ideal_rating, actual_rating, gap, category)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`,
		g.TenantID, g.AgentID, g.UserID, g.Text, g.GASCurrent, g.GASExpected, g.GASTarget,
		g.IdealRating, g.ActualRating, g.Gap, g.Category,
	).Scan(&g.ID, &g.CreatedAt)
}

func (s *GoalStore) ListByUser(ctx context.Context, tenantID, agentID, userID uuid.UUID) ([]domain.GoalAssessment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, agent_id, user_id, text, gas_current, gas_expected, gas_target, ideal_rating, actual_rating, gap, category, created_at
		 FROM goal_assessments
		 WHERE tenant_id = $1 AND agent_id = $2 AND user_id = $3
		 ORDER BY created_at ASC`,
		tenantID, agentID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []domain.GoalAssessment
	for rows.Next() {
		var g domain.GoalAssessment
		if err := rows.Scan(&g.ID, &g.TenantID, &g.AgentID, &g.UserID, &g.Text, &g.GASCurrent,
			&g.GASExpected, &g.GASTarget, &g.IdealRating, &g.ActualRating, &g.Gap, &g.Category, &g.CreatedAt); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}
