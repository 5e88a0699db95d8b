package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
	"github.com/mindmesh-ai/mindmesh/internal/memory"
	"go.uber.org/zap"
)

// Discovery seeds new goals conservatively: below expectation today, expected
// to reach baseline, aiming one band above.
const (
	discoveryGASCurrent  = -1
	discoveryGASExpected = 0
	discoveryGASTarget   = 1
	discoveryIdealRating = 80
)

const discoveryInstruction = `Extract the user's concrete personal goals from their message.
Return one goal per line in the form: goal text | category
Categories: health, career, relationships, growth, finance, personal.
Return at most five goals and nothing else.`

// DiscoveryExecutor turns a free-text discovery conversation into stored goal
// assessments and a first belief graph. It is invoked only from the full-flow
// pipeline and holds no state between calls.
type DiscoveryExecutor struct {
	contract *domain.Contract
	mgr      *memory.Manager
	model    domain.ModelClient
	logger   *zap.Logger
}

func NewDiscoveryExecutor(contract *domain.Contract, mgr *memory.Manager, model domain.ModelClient, logger *zap.Logger) *DiscoveryExecutor {
	return &DiscoveryExecutor{contract: contract, mgr: mgr, model: model, logger: logger}
}

// Generate extracts goals from the input, persists each as a GAS assessment,
// and stores a belief graph seeded from the goals. A graph with no extracted
// goals falls back to the starter template.
func (d *DiscoveryExecutor) Generate(ctx context.Context, userID uuid.UUID, input string) ([]domain.GoalAssessment, error) {
	out, err := d.model.Generate(ctx, discoveryInstruction, input, modelConfig(d.contract))
	if err != nil {
		return nil, fmt.Errorf("discovery generation: %w", err)
	}

	var goals []domain.GoalAssessment
	for _, line := range parseLines(out) {
		text, category := splitGoalLine(line)
		if text == "" {
			continue
		}
		g, err := domain.NewGoalAssessment(text, category,
			discoveryGASCurrent, discoveryGASExpected, discoveryGASTarget,
			discoveryIdealRating, domain.DefaultActualRating)
		if err != nil {
			d.logger.Warn("skipping unparseable goal", zap.String("line", line), zap.Error(err))
			continue
		}
		if _, err := d.mgr.StoreGoalAssessment(ctx, userID, g); err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}

	graph := buildBeliefGraph(goals)
	if _, err := d.mgr.StoreBeliefGraph(ctx, userID, graph); err != nil {
		return nil, err
	}
	return goals, nil
}

// buildBeliefGraph links each discovered goal to a shared capability belief.
// No goals means the starter template instead.
func buildBeliefGraph(goals []domain.GoalAssessment) *domain.BeliefGraph {
	graph := &domain.BeliefGraph{}
	if len(goals) == 0 {
		graph.MergeTemplate()
		return graph
	}

	graph.Nodes = append(graph.Nodes, domain.BeliefNode{
		ID:       "core-capability",
		Label:    "I can make progress on what matters to me",
		NodeType: domain.NodeCoreBelief,
		Valence:  0.6,
	})
	for i, g := range goals {
		id := fmt.Sprintf("goal-%d", i+1)
		graph.Nodes = append(graph.Nodes, domain.BeliefNode{
			ID:       id,
			Label:    g.Text,
			NodeType: domain.NodeGoal,
			Valence:  0.4,
		})
		graph.Edges = append(graph.Edges, domain.BeliefEdge{
			Source:       "core-capability",
			Target:       id,
			Relationship: domain.RelSupports,
			Weight:       0.7,
		})
	}
	return graph
}

// parseLines splits model output into trimmed, de-bulleted, non-empty lines.
func parseLines(out string) []string {
	var lines []string
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		line = strings.TrimLeft(line, "-*• \t")
		if i := strings.IndexByte(line, '.'); i > 0 && i <= 2 && isDigits(line[:i]) {
			line = strings.TrimSpace(line[i+1:])
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func splitGoalLine(line string) (text, category string) {
	text, category = line, "personal"
	if i := strings.LastIndexByte(line, '|'); i >= 0 {
		text = strings.TrimSpace(line[:i])
		if c := strings.ToLower(strings.TrimSpace(line[i+1:])); c != "" {
			category = c
		}
	}
	return text, category
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
