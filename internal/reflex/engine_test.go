package reflex

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
	"github.com/mindmesh-ai/mindmesh/internal/store"
	"go.uber.org/zap"
)

// mockMetricStore serves canned metrics, newest first, like the real store.
type mockMetricStore struct {
	latestEmotional *domain.CognitiveMetric
	failures        []domain.CognitiveMetric
	err             error
}

func (m *mockMetricStore) Append(ctx context.Context, metric *domain.CognitiveMetric) error {
	return errors.New("not used")
}

func (m *mockMetricStore) LatestByCategory(ctx context.Context, tenantID, agentID, userID uuid.UUID, category domain.MetricCategory) (*domain.CognitiveMetric, error) {
	if m.err != nil {
		return nil, m.err
	}
	if category == domain.CategoryEmotional && m.latestEmotional != nil {
		return m.latestEmotional, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockMetricStore) RecentByType(ctx context.Context, tenantID, agentID, userID uuid.UUID, metricType string, limit int) ([]domain.CognitiveMetric, error) {
	if m.err != nil {
		return nil, m.err
	}
	if metricType != domain.MetricGoalFailure {
		return nil, nil
	}
	if len(m.failures) > limit {
		return m.failures[:limit], nil
	}
	return m.failures, nil
}

type mockGraphStore struct {
	graph *domain.BeliefGraph
	err   error
}

func (m *mockGraphStore) Create(ctx context.Context, g *domain.BeliefGraph) error {
	return errors.New("not used")
}

func (m *mockGraphStore) Latest(ctx context.Context, tenantID, agentID, userID uuid.UUID) (*domain.BeliefGraph, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.graph == nil {
		return nil, store.ErrNotFound
	}
	return m.graph, nil
}

func newTestEngine(metrics *mockMetricStore, graphs *mockGraphStore) *Engine {
	return NewEngine(metrics, graphs, zap.NewNop())
}

func checkAll(t *testing.T, e *Engine, flags domain.CognitiveFlags) []domain.TriggerEvent {
	t.Helper()
	return e.CheckAllTriggers(context.Background(), uuid.New(), uuid.New(), uuid.New(), flags)
}

func emotionalMetric(value float64) *domain.CognitiveMetric {
	return &domain.CognitiveMetric{
		MetricType: domain.MetricEmotionalIntensity,
		Category:   domain.CategoryEmotional,
		Value:      value,
	}
}

func failureMetric(goal string) domain.CognitiveMetric {
	return domain.CognitiveMetric{
		MetricType: domain.MetricGoalFailure,
		Category:   domain.CategoryBehavioral,
		Subject:    goal,
		Value:      1,
	}
}

func highConflictGraph() *domain.BeliefGraph {
	return &domain.BeliefGraph{
		Version: 3,
		Nodes: []domain.BeliefNode{
			{ID: "goal", Label: "Change careers", NodeType: domain.NodeGoal},
			{ID: "doubt", Label: "Too late to start over", NodeType: domain.NodeLimitingBelief},
		},
		Edges: []domain.BeliefEdge{
			{Source: "doubt", Target: "goal", Relationship: domain.RelBlocks, Weight: 0.9},
		},
	}
}

func TestEngine_EmotionConflict_StrictThreshold(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		wantFire bool
	}{
		{"just above threshold", 0.71, true},
		{"exactly at threshold", 0.70, false},
		{"well below threshold", 0.30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(&mockMetricStore{latestEmotional: emotionalMetric(tt.value)}, &mockGraphStore{})
			events := checkAll(t, e, domain.DefaultCognitiveFlags())

			if tt.wantFire {
				if len(events) != 1 {
					t.Fatalf("expected 1 event, got %d", len(events))
				}
				if events[0].Type != domain.TriggerEmotionConflict {
					t.Errorf("event type = %s", events[0].Type)
				}
				if events[0].Action != ActionReassess {
					t.Errorf("action = %q, want %q", events[0].Action, ActionReassess)
				}
				return
			}
			if len(events) != 0 {
				t.Fatalf("expected no events, got %d", len(events))
			}
		})
	}
}

func TestEngine_RepeatedFailure_ConsecutiveOnSameGoal(t *testing.T) {
	e := newTestEngine(&mockMetricStore{failures: []domain.CognitiveMetric{
		failureMetric("confidence"),
		failureMetric("confidence"),
	}}, &mockGraphStore{})

	events := checkAll(t, e, domain.DefaultCognitiveFlags())

	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Type != domain.TriggerRepeatedFailure {
		t.Errorf("event type = %s, want %s", ev.Type, domain.TriggerRepeatedFailure)
	}
	if ev.Action != "Suggest breaking goal into smaller steps" {
		t.Errorf("action = %q", ev.Action)
	}
	if ev.Context["goal"] != "confidence" {
		t.Errorf("goal = %v, want confidence", ev.Context["goal"])
	}
}

func TestEngine_RepeatedFailure_StreakBrokenByOtherGoal(t *testing.T) {
	e := newTestEngine(&mockMetricStore{failures: []domain.CognitiveMetric{
		failureMetric("confidence"),
		failureMetric("fitness"),
		failureMetric("confidence"),
	}}, &mockGraphStore{})

	if events := checkAll(t, e, domain.DefaultCognitiveFlags()); len(events) != 0 {
		t.Fatalf("expected no events for a broken streak, got %d", len(events))
	}
}

func TestEngine_RepeatedFailure_SingleFailureInsufficient(t *testing.T) {
	e := newTestEngine(&mockMetricStore{failures: []domain.CognitiveMetric{
		failureMetric("confidence"),
	}}, &mockGraphStore{})

	if events := checkAll(t, e, domain.DefaultCognitiveFlags()); len(events) != 0 {
		t.Fatalf("expected no events for one failure, got %d", len(events))
	}
}

func TestEngine_BeliefConflict(t *testing.T) {
	t.Run("fires above threshold", func(t *testing.T) {
		e := newTestEngine(&mockMetricStore{}, &mockGraphStore{graph: highConflictGraph()})
		events := checkAll(t, e, domain.DefaultCognitiveFlags())

		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		if events[0].Type != domain.TriggerBeliefConflict {
			t.Errorf("event type = %s", events[0].Type)
		}
		if events[0].Context["graph_version"] != 3 {
			t.Errorf("graph_version = %v, want 3", events[0].Context["graph_version"])
		}
	})

	t.Run("silent at threshold", func(t *testing.T) {
		// Half conflicting weight scores 0.5, below the 0.8 threshold.
		graph := highConflictGraph()
		graph.Edges = append(graph.Edges, domain.BeliefEdge{
			Source: "goal", Target: "doubt", Relationship: domain.RelSupports, Weight: 0.9,
		})
		e := newTestEngine(&mockMetricStore{}, &mockGraphStore{graph: graph})

		if events := checkAll(t, e, domain.DefaultCognitiveFlags()); len(events) != 0 {
			t.Fatalf("expected no events, got %d", len(events))
		}
	})
}

func TestEngine_ContractBuiltWithoutThresholds(t *testing.T) {
	// A contract that enables cognitive features without naming thresholds
	// carries the defaults, so mild signals stay silent and real streaks fire.
	contract, err := domain.NewContract(uuid.New(), "coach", domain.ContractConversational,
		domain.Identity{}, domain.Traits{},
		domain.Configuration{Cognitive: domain.CognitiveFlags{Enabled: true, ReflexTriggersEnabled: true}},
		nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	flags := contract.Configuration.Cognitive

	t.Run("mild emotion stays silent", func(t *testing.T) {
		e := newTestEngine(&mockMetricStore{latestEmotional: emotionalMetric(0.1)}, &mockGraphStore{})
		if events := checkAll(t, e, flags); len(events) != 0 {
			t.Fatalf("expected no events at value 0.1, got %d", len(events))
		}
	})

	t.Run("two consecutive failures fire", func(t *testing.T) {
		e := newTestEngine(&mockMetricStore{failures: []domain.CognitiveMetric{
			failureMetric("confidence"),
			failureMetric("confidence"),
		}}, &mockGraphStore{})

		events := checkAll(t, e, flags)
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		if events[0].Type != domain.TriggerRepeatedFailure {
			t.Errorf("event type = %s, want %s", events[0].Type, domain.TriggerRepeatedFailure)
		}
	})
}

func TestEngine_NoData_NoTriggers(t *testing.T) {
	e := newTestEngine(&mockMetricStore{}, &mockGraphStore{})

	if events := checkAll(t, e, domain.DefaultCognitiveFlags()); len(events) != 0 {
		t.Fatalf("expected no events on empty stores, got %d", len(events))
	}
}

func TestEngine_StoreFailure_TreatedAsNoTrigger(t *testing.T) {
	e := newTestEngine(
		&mockMetricStore{err: errors.New("db down")},
		&mockGraphStore{err: errors.New("db down")},
	)

	if events := checkAll(t, e, domain.DefaultCognitiveFlags()); len(events) != 0 {
		t.Fatalf("expected no events when stores are unreadable, got %d", len(events))
	}
}

func TestEngine_DeterministicOrder(t *testing.T) {
	e := newTestEngine(&mockMetricStore{
		latestEmotional: emotionalMetric(0.95),
		failures: []domain.CognitiveMetric{
			failureMetric("confidence"),
			failureMetric("confidence"),
		},
	}, &mockGraphStore{graph: highConflictGraph()})

	events := checkAll(t, e, domain.DefaultCognitiveFlags())

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	want := []domain.TriggerType{
		domain.TriggerEmotionConflict,
		domain.TriggerRepeatedFailure,
		domain.TriggerBeliefConflict,
	}
	for i, ev := range events {
		if ev.Type != want[i] {
			t.Errorf("event %d = %s, want %s", i, ev.Type, want[i])
		}
	}
}
