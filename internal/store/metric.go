package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
)

// MetricStore is append-only; rows are never updated or deleted.
type MetricStore struct {
	db *pgxpool.Pool
}

func NewMetricStore(db *pgxpool.Pool) *MetricStore {
	return &MetricStore{db: db}
}

func (s *MetricStore) Append(ctx context.Context, m *domain.CognitiveMetric) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO cognitive_metrics
		   (tenant_id, agent_id, user_id, metric_type, category, subject, value, threshold, threshold_exceeded, measured_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))
		 RETURNING id, measured_at`,
		m.TenantID, m.AgentID, m.UserID, m.MetricType, m.Category, m.Subject,
		m.Value, m.Threshold, m.ThresholdExceeded, nullableTime(m),
	).Scan(&m.ID, &m.MeasuredAt)
}

func nullableTime(m *domain.CognitiveMetric) any {
	if m.MeasuredAt.IsZero() {
		return nil
	}
	return m.MeasuredAt
}

func (s *MetricStore) LatestByCategory(ctx context.Context, tenantID, agentID, userID uuid.UUID, category domain.MetricCategory) (*domain.CognitiveMetric, error) {
	m := &domain.CognitiveMetric{}
	err := s.db.QueryRow(ctx,
		`SELECT id, tenant_id, agent_id, user_id, metric_type, category, subject, value, threshold, threshold_exceeded, measured_at
		 FROM cognitive_metrics
		 WHERE tenant_id = $1 AND agent_id = $2 AND user_id = $3 AND category = $4
		 ORDER BY measured_at DESC LIMIT 1`,
		tenantID, agentID, userID, category,
	).Scan(&m.ID, &m.TenantID, &m.AgentID, &m.UserID, &m.MetricType, &m.Category, &m.Subject,
		&m.Value, &m.Threshold, &m.ThresholdExceeded, &m.MeasuredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *MetricStore) RecentByType(ctx context.Context, tenantID, agentID, userID uuid.UUID, metricType string, limit int) ([]domain.CognitiveMetric, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, agent_id, user_id, metric_type, category, subject, value, threshold, threshold_exceeded, measured_at
		 FROM cognitive_metrics
		 WHERE tenant_id = $1 AND agent_id = $2 AND user_id = $3 AND metric_type = $4
		 ORDER BY measured_at DESC LIMIT $5`,
		tenantID, agentID, userID, metricType, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []domain.CognitiveMetric
	for rows.Next() {
		var m domain.CognitiveMetric
		if err := rows.Scan(&m.ID, &m.TenantID, &m.AgentID, &m.UserID, &m.MetricType, &m.Category,
			&m.Subject, &m.Value, &m.Threshold, &m.ThresholdExceeded, &m.MeasuredAt); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
