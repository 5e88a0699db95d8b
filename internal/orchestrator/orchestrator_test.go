package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
	"github.com/mindmesh-ai/mindmesh/internal/llm"
	"github.com/mindmesh-ai/mindmesh/internal/memory"
	"github.com/mindmesh-ai/mindmesh/internal/reflex"
	"github.com/mindmesh-ai/mindmesh/internal/store"
	"go.uber.org/zap"
)

// modelFunc routes calls by system prompt so concurrent leaf executors get
// deterministic responses.
type modelFunc func(ctx context.Context, system, user string, cfg domain.ModelConfig) (string, error)

func (f modelFunc) Generate(ctx context.Context, system, user string, cfg domain.ModelConfig) (string, error) {
	return f(ctx, system, user, cfg)
}

type fakeItemStore struct {
	mu    sync.Mutex
	items []*domain.MemoryItem
}

func (s *fakeItemStore) Create(ctx context.Context, item *domain.MemoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uuid.New()
	s.items = append(s.items, item)
	return nil
}

func (s *fakeItemStore) Search(ctx context.Context, namespace string, emb []float32, k int) ([]domain.ScoredItem, error) {
	return nil, nil
}

type fakeThreadStore struct {
	mu       sync.Mutex
	messages map[uuid.UUID][]domain.Message
}

func newFakeThreadStore() *fakeThreadStore {
	return &fakeThreadStore{messages: make(map[uuid.UUID][]domain.Message)}
}

func (s *fakeThreadStore) GetOrCreate(ctx context.Context, tenantID, agentID, userID, threadID uuid.UUID) (*domain.Thread, error) {
	return &domain.Thread{ID: threadID, TenantID: tenantID, AgentID: agentID, UserID: userID}, nil
}

func (s *fakeThreadStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = uuid.New()
	msg.Seq = int64(len(s.messages[msg.ThreadID]) + 1)
	s.messages[msg.ThreadID] = append(s.messages[msg.ThreadID], *msg)
	return nil
}

func (s *fakeThreadStore) RecentMessages(ctx context.Context, threadID uuid.UUID, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[threadID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

type fakeGoalStore struct {
	mu    sync.Mutex
	goals []domain.GoalAssessment
}

func (s *fakeGoalStore) Create(ctx context.Context, g *domain.GoalAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = uuid.New()
	s.goals = append(s.goals, *g)
	return nil
}

func (s *fakeGoalStore) ListByUser(ctx context.Context, tenantID, agentID, userID uuid.UUID) ([]domain.GoalAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.GoalAssessment, len(s.goals))
	copy(out, s.goals)
	return out, nil
}

type fakeGraphStore struct {
	mu     sync.Mutex
	graphs []domain.BeliefGraph
}

func (s *fakeGraphStore) Create(ctx context.Context, g *domain.BeliefGraph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = uuid.New()
	g.Version = len(s.graphs) + 1
	s.graphs = append(s.graphs, *g)
	return nil
}

func (s *fakeGraphStore) Latest(ctx context.Context, tenantID, agentID, userID uuid.UUID) (*domain.BeliefGraph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.graphs) == 0 {
		return nil, store.ErrNotFound
	}
	g := s.graphs[len(s.graphs)-1]
	return &g, nil
}

type fakeMetricStore struct {
	mu      sync.Mutex
	metrics []domain.CognitiveMetric
}

func (s *fakeMetricStore) Append(ctx context.Context, m *domain.CognitiveMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = uuid.New()
	s.metrics = append(s.metrics, *m)
	return nil
}

func (s *fakeMetricStore) LatestByCategory(ctx context.Context, tenantID, agentID, userID uuid.UUID, category domain.MetricCategory) (*domain.CognitiveMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.metrics) - 1; i >= 0; i-- {
		if s.metrics[i].Category == category {
			m := s.metrics[i]
			return &m, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeMetricStore) RecentByType(ctx context.Context, tenantID, agentID, userID uuid.UUID, metricType string, limit int) ([]domain.CognitiveMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CognitiveMetric
	for i := len(s.metrics) - 1; i >= 0 && len(out) < limit; i-- {
		if s.metrics[i].MetricType == metricType {
			out = append(out, s.metrics[i])
		}
	}
	return out, nil
}

type fixture struct {
	orch    *Orchestrator
	mgr     *memory.Manager
	threads *fakeThreadStore
	items   *fakeItemStore
	goals   *fakeGoalStore
	graphs  *fakeGraphStore
	metrics *fakeMetricStore
}

func newFixture(model domain.ModelClient) *fixture {
	f := &fixture{
		threads: newFakeThreadStore(),
		items:   &fakeItemStore{},
		goals:   &fakeGoalStore{},
		graphs:  &fakeGraphStore{},
		metrics: &fakeMetricStore{},
	}
	logger := zap.NewNop()
	f.mgr = memory.NewManager(uuid.New(), uuid.New(), memory.Stores{
		Items:   f.items,
		Threads: f.threads,
		Goals:   f.goals,
		Graphs:  f.graphs,
		Metrics: f.metrics,
	}, nil, logger)
	f.orch = New(model, reflex.NewEngine(f.metrics, f.graphs, logger), logger)
	return f
}

func chatContract() *domain.Contract {
	c, err := domain.NewContract(uuid.New(), "coach", domain.ContractConversational,
		domain.Identity{Role: "mentor", Mission: "help users grow"},
		domain.Traits{Warmth: 70, Directness: 50, Formality: 30, Optimism: 60, Curiosity: 55,
			Patience: 65, Humor: 40, Assertiveness: 45, Empathy: 80, Analytical: 50},
		domain.Configuration{MemoryEnabled: true, Temperature: 0.7, TokenLimit: 512},
		nil)
	if err != nil {
		panic(err)
	}
	return c
}

func TestOrchestrator_Chat(t *testing.T) {
	mock := llm.NewMockClient()
	mock.Response = "Hello, good to see you."
	f := newFixture(mock)

	threadID := uuid.New()
	result, err := f.orch.Chat(context.Background(), chatContract(), f.mgr, threadID, uuid.New(), "hi")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.ResponseText != "Hello, good to see you." {
		t.Errorf("response = %q", result.ResponseText)
	}
	if result.TriggerCount != 0 || result.Degraded {
		t.Errorf("unexpected result: %+v", result)
	}

	if len(mock.Calls) != 1 {
		t.Fatalf("expected 1 model call, got %d", len(mock.Calls))
	}
	if !strings.Contains(mock.Calls[0].System, "Personality:") {
		t.Error("system prompt missing personality block")
	}
	if mock.Calls[0].Config.MaxTokens != 512 {
		t.Errorf("max tokens = %d, want 512", mock.Calls[0].Config.MaxTokens)
	}

	msgs := f.threads.messages[threadID]
	if len(msgs) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[1].Role != domain.RoleAgent {
		t.Errorf("unexpected roles: %s, %s", msgs[0].Role, msgs[1].Role)
	}
	if len(f.items.items) != 1 {
		t.Errorf("expected 1 memory item, got %d", len(f.items.items))
	}
}

func TestOrchestrator_Chat_ModelFailureIsTerminal(t *testing.T) {
	mock := llm.NewMockClient()
	mock.Err = errors.New("upstream 500")
	f := newFixture(mock)

	threadID := uuid.New()
	_, err := f.orch.Chat(context.Background(), chatContract(), f.mgr, threadID, uuid.New(), "hi")
	if !errors.Is(err, ErrModelInvocation) {
		t.Fatalf("expected ErrModelInvocation, got %v", err)
	}

	// Post-processing never ran.
	if len(f.threads.messages[threadID]) != 0 {
		t.Error("messages stored despite terminal model failure")
	}
	if len(f.items.items) != 0 {
		t.Error("memory item stored despite terminal model failure")
	}
}

func TestOrchestrator_Chat_TriggerPromptAppended(t *testing.T) {
	mock := llm.NewMockClient()
	mock.Response = "Here is my advice."
	f := newFixture(mock)

	f.metrics.metrics = append(f.metrics.metrics, domain.CognitiveMetric{
		MetricType: domain.MetricEmotionalIntensity,
		Category:   domain.CategoryEmotional,
		Value:      0.9,
	})

	contract := chatContract()
	contract.Configuration.Cognitive = domain.DefaultCognitiveFlags()
	contract.Configuration.Cognitive.Enabled = true
	contract.Configuration.Cognitive.ReflexTriggersEnabled = true

	result, err := f.orch.Chat(context.Background(), contract, f.mgr, uuid.New(), uuid.New(), "hi")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.TriggerCount != 1 {
		t.Fatalf("trigger count = %d, want 1", result.TriggerCount)
	}
	if !strings.HasSuffix(result.ResponseText, reflex.PromptReassess) {
		t.Errorf("trigger prompt not appended: %q", result.ResponseText)
	}
	if !strings.HasPrefix(result.ResponseText, "Here is my advice.") {
		t.Errorf("model response missing: %q", result.ResponseText)
	}
}

func TestOrchestrator_Chat_CognitiveDisabledSkipsTriggers(t *testing.T) {
	mock := llm.NewMockClient()
	f := newFixture(mock)

	f.metrics.metrics = append(f.metrics.metrics, domain.CognitiveMetric{
		MetricType: domain.MetricEmotionalIntensity,
		Category:   domain.CategoryEmotional,
		Value:      0.9,
	})

	result, err := f.orch.Chat(context.Background(), chatContract(), f.mgr, uuid.New(), uuid.New(), "hi")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.TriggerCount != 0 {
		t.Errorf("trigger count = %d, want 0", result.TriggerCount)
	}
}

func TestOrchestrator_Chat_MemoryDisabled(t *testing.T) {
	mock := llm.NewMockClient()
	f := newFixture(mock)

	contract := chatContract()
	contract.Configuration.MemoryEnabled = false

	threadID := uuid.New()
	if _, err := f.orch.Chat(context.Background(), contract, f.mgr, threadID, uuid.New(), "hi"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(f.threads.messages[threadID]) != 0 || len(f.items.items) != 0 {
		t.Error("memory written despite memory_enabled=false")
	}
}

func TestOrchestrator_Chat_ConcurrentOrdering(t *testing.T) {
	mock := llm.NewMockClient()
	f := newFixture(mock)
	contract := chatContract()
	threadID := uuid.New()
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.orch.Chat(context.Background(), contract, f.mgr, threadID, userID, "hi"); err != nil {
				t.Errorf("chat failed: %v", err)
			}
		}()
	}
	wg.Wait()

	msgs := f.threads.messages[threadID]
	if len(msgs) != 100 {
		t.Fatalf("expected 100 messages, got %d", len(msgs))
	}
	for i, msg := range msgs {
		if msg.Seq != int64(i+1) {
			t.Fatalf("message %d has seq %d; ordering not monotonic", i, msg.Seq)
		}
	}
}

func TestOrchestrator_RunFullFlow(t *testing.T) {
	model := modelFunc(func(ctx context.Context, system, user string, cfg domain.ModelConfig) (string, error) {
		switch system {
		case discoveryInstruction:
			return "build confidence | growth\nrun three times a week | health", nil
		case affirmationInstruction:
			return "I trust my own voice.\nI grow stronger every week.", nil
		case protocolInstruction:
			return "Morning: set one intention.\nEvening: note one win.\n", nil
		default:
			return "Welcome to discovery.", nil
		}
	})
	f := newFixture(model)
	userID := uuid.New()

	result, err := f.orch.RunFullFlow(context.Background(), chatContract(), f.mgr, userID, "I want to feel confident and get fit")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.Degraded {
		t.Error("flow unexpectedly degraded")
	}
	if len(result.Affirmations) != 2 {
		t.Fatalf("affirmations = %v", result.Affirmations)
	}
	if !strings.Contains(result.Protocol, "Morning") {
		t.Errorf("protocol = %q", result.Protocol)
	}
	if len(result.AudioAssets) != 0 {
		t.Errorf("unexpected audio assets: %v", result.AudioAssets)
	}

	if len(f.goals.goals) != 2 {
		t.Fatalf("expected 2 stored goals, got %d", len(f.goals.goals))
	}
	g := f.goals.goals[0]
	if g.Text != "build confidence" || g.Category != "growth" {
		t.Errorf("goal = %q (%s)", g.Text, g.Category)
	}
	if g.ActualRating != domain.DefaultActualRating || g.Gap != discoveryIdealRating-domain.DefaultActualRating {
		t.Errorf("goal ratings: actual=%d gap=%d", g.ActualRating, g.Gap)
	}
	if g.UserID != userID {
		t.Error("goal not scoped to user")
	}

	if len(f.graphs.graphs) != 1 {
		t.Fatalf("expected 1 belief graph, got %d", len(f.graphs.graphs))
	}
	graph := f.graphs.graphs[0]
	if graph.Version != 1 {
		t.Errorf("graph version = %d, want 1", graph.Version)
	}
	if len(graph.Nodes) != 3 {
		t.Errorf("graph nodes = %d, want core belief plus 2 goals", len(graph.Nodes))
	}
}

func TestOrchestrator_RunFullFlow_EmptyDiscoveryGetsTemplateGraph(t *testing.T) {
	model := modelFunc(func(ctx context.Context, system, user string, cfg domain.ModelConfig) (string, error) {
		if system == discoveryInstruction {
			return "", nil
		}
		return "ok", nil
	})
	f := newFixture(model)

	if _, err := f.orch.RunFullFlow(context.Background(), chatContract(), f.mgr, uuid.New(), "hello"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(f.graphs.graphs) != 1 {
		t.Fatalf("expected template graph, got %d graphs", len(f.graphs.graphs))
	}
	if len(f.graphs.graphs[0].Nodes) == 0 {
		t.Error("template graph is empty")
	}
}

func TestOrchestrator_RunFullFlow_LeafFailureDegrades(t *testing.T) {
	model := modelFunc(func(ctx context.Context, system, user string, cfg domain.ModelConfig) (string, error) {
		if system == affirmationInstruction {
			return "", errors.New("upstream 500")
		}
		if system == discoveryInstruction {
			return "build confidence | growth", nil
		}
		return "ok", nil
	})
	f := newFixture(model)

	result, err := f.orch.RunFullFlow(context.Background(), chatContract(), f.mgr, uuid.New(), "hello")
	if err != nil {
		t.Fatalf("leaf failure must not surface as error, got %v", err)
	}
	if !result.Degraded {
		t.Error("expected degraded flow result")
	}
	if len(result.Affirmations) != 0 {
		t.Errorf("unexpected affirmations: %v", result.Affirmations)
	}
}

func TestOrchestrator_RunFullFlow_ModelFailureIsTerminal(t *testing.T) {
	mock := llm.NewMockClient()
	mock.Err = errors.New("upstream 500")
	f := newFixture(mock)

	_, err := f.orch.RunFullFlow(context.Background(), chatContract(), f.mgr, uuid.New(), "hello")
	if !errors.Is(err, ErrModelInvocation) {
		t.Fatalf("expected ErrModelInvocation, got %v", err)
	}
}
