package domain

import (
	"time"

	"github.com/google/uuid"
)

// MemoryItem is one stored piece of interaction content, addressable by
// namespace and searchable by embedding similarity.
type MemoryItem struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	AgentID   uuid.UUID `json:"agent_id"`
	UserID    uuid.UUID `json:"user_id"`
	ThreadID  uuid.UUID `json:"thread_id"`
	Namespace string    `json:"namespace"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type ScoredItem struct {
	MemoryItem
	Score float32 `json:"score"`
}

// ContextItem is one retrieved piece of context with its relevance score.
type ContextItem struct {
	Content   string  `json:"content"`
	Relevance float32 `json:"relevance_score"`
}

// MemoryContext is the result of one retrieval. It is produced fresh per
// invocation and never persisted.
type MemoryContext struct {
	Items           []ContextItem `json:"retrieved_items"`
	Confidence      float32       `json:"confidence_score"`
	SessionMessages []Message     `json:"session_messages"`
}

type MessageRole string

const (
	RoleUser   MessageRole = "user"
	RoleAgent  MessageRole = "agent"
	RoleSystem MessageRole = "system"
)

// Thread is an ordered conversation container per (agent, user).
type Thread struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	AgentID   uuid.UUID `json:"agent_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is an append-only thread entry. Seq is assigned by the store and is
// strictly monotonic per thread, even under concurrent appends.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	ThreadID  uuid.UUID   `json:"thread_id"`
	Seq       int64       `json:"seq"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}
