package domain

import (
	"context"

	"github.com/google/uuid"
)

type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*Tenant, error)
	// RotateAPIKey replaces the tenant's key hash; the old key stops
	// authenticating immediately.
	RotateAPIKey(ctx context.Context, id uuid.UUID, apiKeyHash string) error
}

// ContractStore persists contracts with an append-only version history.
type ContractStore interface {
	Create(ctx context.Context, c *Contract) error
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*Contract, error)
	// AppendVersion stores a successor contract produced by NewVersion. The
	// previous version stays readable via ListVersions.
	AppendVersion(ctx context.Context, c *Contract) error
	ListVersions(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) ([]Contract, error)
}

// MemoryItemStore is the key-addressable, similarity-searchable storage
// boundary. Search never crosses namespaces.
type MemoryItemStore interface {
	Create(ctx context.Context, item *MemoryItem) error
	Search(ctx context.Context, namespace string, embedding []float32, k int) ([]ScoredItem, error)
}

type ThreadStore interface {
	GetOrCreate(ctx context.Context, tenantID, agentID, userID, threadID uuid.UUID) (*Thread, error)
	// AppendMessage assigns the message a per-thread monotonic sequence
	// number atomically with the insert.
	AppendMessage(ctx context.Context, m *Message) error
	RecentMessages(ctx context.Context, threadID uuid.UUID, limit int) ([]Message, error)
}

type GoalStore interface {
	Create(ctx context.Context, g *GoalAssessment) error
	ListByUser(ctx context.Context, tenantID, agentID, userID uuid.UUID) ([]GoalAssessment, error)
}

type BeliefGraphStore interface {
	// Create assigns the next version number for the (tenant, agent, user)
	// scope. Older versions are never overwritten.
	Create(ctx context.Context, g *BeliefGraph) error
	Latest(ctx context.Context, tenantID, agentID, userID uuid.UUID) (*BeliefGraph, error)
}

type MetricStore interface {
	Append(ctx context.Context, m *CognitiveMetric) error
	LatestByCategory(ctx context.Context, tenantID, agentID, userID uuid.UUID, category MetricCategory) (*CognitiveMetric, error)
	// RecentByType returns up to limit metrics of the given type, newest
	// first.
	RecentByType(ctx context.Context, tenantID, agentID, userID uuid.UUID, metricType string, limit int) ([]CognitiveMetric, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ModelConfig narrows a contract's configuration to what one model call needs.
type ModelConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// ModelClient is the single model-invocation capability the orchestrator
// uses. Implementations must honor ctx cancellation.
type ModelClient interface {
	Generate(ctx context.Context, system, user string, cfg ModelConfig) (string, error)
}
