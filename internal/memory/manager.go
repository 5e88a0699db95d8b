// Package memory implements the per-(tenant, agent) memory manager and the
// bounded cache of manager instances.
package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
	"go.uber.org/zap"
)

const (
	// DefaultTopK bounds semantic retrieval when the caller passes k <= 0.
	DefaultTopK = 5
	// SessionWindow is how many recent thread messages blend into a context.
	SessionWindow = 10
)

// Stores bundles the storage handles a manager needs. All handles are shared
// and pooled; the manager owns no connections of its own.
type Stores struct {
	Items   domain.MemoryItemStore
	Threads domain.ThreadStore
	Goals   domain.GoalStore
	Graphs  domain.BeliefGraphStore
	Metrics domain.MetricStore
}

// Manager scopes all memory access to one (tenant, agent) pair. Retrieval
// failures degrade to an empty context and write failures are logged; a
// conversation never fails because memory was unavailable.
type Manager struct {
	tenantID uuid.UUID
	agentID  uuid.UUID
	stores   Stores
	embedder domain.EmbeddingClient
	logger   *zap.Logger
}

func NewManager(tenantID, agentID uuid.UUID, stores Stores, embedder domain.EmbeddingClient, logger *zap.Logger) *Manager {
	return &Manager{
		tenantID: tenantID,
		agentID:  agentID,
		stores:   stores,
		embedder: embedder,
		logger:   logger,
	}
}

func (m *Manager) TenantID() uuid.UUID { return m.tenantID }
func (m *Manager) AgentID() uuid.UUID  { return m.agentID }

// Namespace is the base key scope for this manager. Retrieval never leaves it.
func (m *Manager) Namespace() string {
	return m.tenantID.String() + ":" + m.agentID.String()
}

// ThreadNamespace scopes keys to a single conversation thread.
func (m *Manager) ThreadNamespace(threadID uuid.UUID) string {
	return m.Namespace() + ":thread:" + threadID.String()
}

// UserNamespace scopes keys to a single user.
func (m *Manager) UserNamespace(userID uuid.UUID) string {
	return m.Namespace() + ":user:" + userID.String()
}

// Close releases any held resources. Managers hold only pooled store handles
// today, so this is a no-op; the cache still calls it on eviction.
func (m *Manager) Close() {}

// GetContext retrieves semantically relevant items plus the recent session
// window. An empty store yields confidence 0 and no items; store or embedding
// failures degrade the same way with a logged warning. It never returns an
// error.
func (m *Manager) GetContext(ctx context.Context, input string, threadID, userID uuid.UUID, k int) domain.MemoryContext {
	if k <= 0 {
		k = DefaultTopK
	}
	mctx := domain.MemoryContext{}

	if input != "" && m.embedder != nil {
		emb, err := m.embedder.Embed(ctx, input)
		if err != nil {
			m.logger.Warn("context embedding failed, degrading to empty context",
				zap.String("namespace", m.Namespace()), zap.Error(err))
		} else {
			scored, err := m.stores.Items.Search(ctx, m.UserNamespace(userID), emb, k)
			if err != nil {
				m.logger.Warn("memory search failed, degrading to empty context",
					zap.String("namespace", m.Namespace()), zap.Error(err))
			} else {
				for _, it := range scored {
					mctx.Items = append(mctx.Items, domain.ContextItem{
						Content:   it.Content,
						Relevance: it.Score,
					})
				}
			}
		}
	}

	if len(mctx.Items) > 0 {
		mctx.Confidence = clampScore(mctx.Items[0].Relevance)
	}

	if threadID != uuid.Nil {
		msgs, err := m.stores.Threads.RecentMessages(ctx, threadID, SessionWindow)
		if err != nil {
			m.logger.Warn("recent message fetch failed",
				zap.String("thread_id", threadID.String()), zap.Error(err))
		} else {
			mctx.SessionMessages = msgs
		}
	}

	return mctx
}

// StoreInteraction appends the user and agent messages to the thread and
// writes the pair as one searchable memory item. Failures are logged, never
// returned; the idempotent item write is retried once.
func (m *Manager) StoreInteraction(ctx context.Context, input, response string, threadID, userID uuid.UUID) {
	if _, err := m.stores.Threads.GetOrCreate(ctx, m.tenantID, m.agentID, userID, threadID); err != nil {
		m.logger.Warn("thread lookup failed, skipping message append",
			zap.String("thread_id", threadID.String()), zap.Error(err))
	} else {
		userMsg := &domain.Message{ThreadID: threadID, Role: domain.RoleUser, Content: input}
		if err := m.appendWithRetry(ctx, userMsg); err != nil {
			m.logger.Warn("user message append failed", zap.Error(err))
		}
		agentMsg := &domain.Message{ThreadID: threadID, Role: domain.RoleAgent, Content: response}
		if err := m.appendWithRetry(ctx, agentMsg); err != nil {
			m.logger.Warn("agent message append failed", zap.Error(err))
		}
	}

	item := &domain.MemoryItem{
		TenantID:  m.tenantID,
		AgentID:   m.agentID,
		UserID:    userID,
		ThreadID:  threadID,
		Namespace: m.UserNamespace(userID),
		Content:   fmt.Sprintf("User: %s\nAgent: %s", input, response),
	}
	if m.embedder != nil {
		emb, err := m.embedder.Embed(ctx, item.Content)
		if err != nil {
			m.logger.Warn("interaction embedding failed, storing without embedding", zap.Error(err))
		} else {
			item.Embedding = emb
		}
	}
	if err := m.createWithRetry(ctx, item); err != nil {
		m.logger.Warn("interaction write failed", zap.String("namespace", item.Namespace), zap.Error(err))
	}
}

// appendWithRetry retries the append once with the same payload. The retry
// covers transient store failures and the seq collision two concurrent
// appends can hit on the store's unique (thread_id, seq) constraint; a
// duplicate costs one extra row, a lost write costs the conversation.
func (m *Manager) appendWithRetry(ctx context.Context, msg *domain.Message) error {
	if err := m.stores.Threads.AppendMessage(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return m.stores.Threads.AppendMessage(ctx, msg)
	}
	return nil
}

func (m *Manager) createWithRetry(ctx context.Context, item *domain.MemoryItem) error {
	if err := m.stores.Items.Create(ctx, item); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return m.stores.Items.Create(ctx, item)
	}
	return nil
}

// StoreGoalAssessment persists a goal snapshot scoped to this manager.
func (m *Manager) StoreGoalAssessment(ctx context.Context, userID uuid.UUID, g *domain.GoalAssessment) (uuid.UUID, error) {
	g.TenantID = m.tenantID
	g.AgentID = m.agentID
	g.UserID = userID
	if err := m.stores.Goals.Create(ctx, g); err != nil {
		return uuid.Nil, fmt.Errorf("store goal assessment: %w", err)
	}
	return g.ID, nil
}

// StoreBeliefGraph persists a graph version scoped to this manager.
func (m *Manager) StoreBeliefGraph(ctx context.Context, userID uuid.UUID, g *domain.BeliefGraph) (uuid.UUID, error) {
	g.TenantID = m.tenantID
	g.AgentID = m.agentID
	g.UserID = userID
	if err := m.stores.Graphs.Create(ctx, g); err != nil {
		return uuid.Nil, fmt.Errorf("store belief graph: %w", err)
	}
	return g.ID, nil
}

// StoreCognitiveMetric appends one metric fact scoped to this manager.
func (m *Manager) StoreCognitiveMetric(ctx context.Context, userID uuid.UUID, metric *domain.CognitiveMetric) error {
	metric.TenantID = m.tenantID
	metric.AgentID = m.agentID
	metric.UserID = userID
	metric.ThresholdExceeded = metric.Threshold > 0 && metric.Value > metric.Threshold
	if err := m.stores.Metrics.Append(ctx, metric); err != nil {
		return fmt.Errorf("store cognitive metric: %w", err)
	}
	return nil
}

// Goals lists all goal snapshots for a user, oldest first.
func (m *Manager) Goals(ctx context.Context, userID uuid.UUID) ([]domain.GoalAssessment, error) {
	return m.stores.Goals.ListByUser(ctx, m.tenantID, m.agentID, userID)
}

func clampScore(s float32) float32 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
