// Package reflex evaluates cognitive metrics and belief-graph state against
// per-contract thresholds and emits intervention directives.
package reflex

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
	"github.com/mindmesh-ai/mindmesh/internal/store"
	"go.uber.org/zap"
)

// Intervention actions and prompt templates, one per trigger type.
const (
	ActionReassess      = "Start a reassessment conversation"
	ActionDecomposeGoal = "Suggest breaking goal into smaller steps"
	ActionReflect       = "Open a guided reflection session"

	PromptReassess      = "I noticed some strong feelings coming up. Would it help to revisit how things are going?"
	PromptDecomposeGoal = "This goal has been tough lately. Want to break it into smaller steps together?"
	PromptReflect       = "Some of your beliefs seem to be pulling in different directions. Shall we take a moment to reflect on that?"
)

// failureLookback bounds how many failure metrics one streak check reads.
const failureLookback = 10

// Engine is a stateless, read-only evaluator. All thresholds come from the
// contract's cognitive flags; the engine carries no defaults of its own.
type Engine struct {
	metrics domain.MetricStore
	graphs  domain.BeliefGraphStore
	logger  *zap.Logger
}

func NewEngine(metrics domain.MetricStore, graphs domain.BeliefGraphStore, logger *zap.Logger) *Engine {
	return &Engine{metrics: metrics, graphs: graphs, logger: logger}
}

// CheckAllTriggers runs every trigger check independently and returns fired
// events in deterministic order: emotion conflict, repeated failure, belief
// conflict. A check that cannot read its data contributes no event.
func (e *Engine) CheckAllTriggers(ctx context.Context, tenantID, agentID, userID uuid.UUID, flags domain.CognitiveFlags) []domain.TriggerEvent {
	var events []domain.TriggerEvent

	if ev := e.checkEmotionConflict(ctx, tenantID, agentID, userID, flags); ev != nil {
		events = append(events, *ev)
	}
	if ev := e.checkRepeatedFailure(ctx, tenantID, agentID, userID, flags); ev != nil {
		events = append(events, *ev)
	}
	if ev := e.checkBeliefConflict(ctx, tenantID, agentID, userID, flags); ev != nil {
		events = append(events, *ev)
	}
	return events
}

// checkEmotionConflict fires when the most recent emotional metric strictly
// exceeds the threshold.
func (e *Engine) checkEmotionConflict(ctx context.Context, tenantID, agentID, userID uuid.UUID, flags domain.CognitiveFlags) *domain.TriggerEvent {
	latest, err := e.metrics.LatestByCategory(ctx, tenantID, agentID, userID, domain.CategoryEmotional)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Debug("emotion conflict check unreadable", zap.Error(err))
		}
		return nil
	}
	if latest.Value <= flags.EmotionConflictThreshold {
		return nil
	}
	return &domain.TriggerEvent{
		Type:           domain.TriggerEmotionConflict,
		Action:         ActionReassess,
		PromptTemplate: PromptReassess,
		Context: map[string]any{
			"metric_type": latest.MetricType,
			"value":       latest.Value,
			"threshold":   flags.EmotionConflictThreshold,
		},
	}
}

// checkRepeatedFailure fires when the streak of consecutive failure metrics
// on the most recently failed goal reaches the configured count.
func (e *Engine) checkRepeatedFailure(ctx context.Context, tenantID, agentID, userID uuid.UUID, flags domain.CognitiveFlags) *domain.TriggerEvent {
	required := flags.RepeatedFailureCount
	if required <= 0 {
		return nil
	}

	recent, err := e.metrics.RecentByType(ctx, tenantID, agentID, userID, domain.MetricGoalFailure, failureLookback)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Debug("repeated failure check unreadable", zap.Error(err))
		}
		return nil
	}
	if len(recent) == 0 {
		return nil
	}

	// recent is newest first; count the unbroken run on the latest goal.
	goal := recent[0].Subject
	streak := 0
	for _, m := range recent {
		if m.Subject != goal {
			break
		}
		streak++
	}
	if streak < required {
		return nil
	}
	return &domain.TriggerEvent{
		Type:           domain.TriggerRepeatedFailure,
		Action:         ActionDecomposeGoal,
		PromptTemplate: PromptDecomposeGoal,
		Context: map[string]any{
			"goal":   goal,
			"streak": streak,
		},
	}
}

// checkBeliefConflict fires when the latest graph's conflict score strictly
// exceeds the threshold.
func (e *Engine) checkBeliefConflict(ctx context.Context, tenantID, agentID, userID uuid.UUID, flags domain.CognitiveFlags) *domain.TriggerEvent {
	graph, err := e.graphs.Latest(ctx, tenantID, agentID, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.logger.Debug("belief conflict check unreadable", zap.Error(err))
		}
		return nil
	}

	score := graph.ConflictScore()
	if score <= flags.BeliefConflictThreshold {
		return nil
	}

	tension := graph.TensionNodes()
	labels := make([]string, 0, len(tension))
	for _, n := range tension {
		labels = append(labels, n.Label)
	}
	return &domain.TriggerEvent{
		Type:           domain.TriggerBeliefConflict,
		Action:         ActionReflect,
		PromptTemplate: PromptReflect,
		Context: map[string]any{
			"conflict_score": score,
			"graph_version":  graph.Version,
			"tension_nodes":  labels,
		},
	}
}
