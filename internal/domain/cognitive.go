package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GAS (Goal Attainment Scaling) bounds.
const (
	GASMin = -2
	GASMax = 2

	RatingMin = 0
	RatingMax = 100

	// DefaultActualRating seeds a goal's starting self-assessment when the
	// user supplies none. Placeholder baseline; callers may pass their own.
	DefaultActualRating = 30
)

var (
	ErrGASOrdering   = errors.New("gas levels must satisfy current <= expected <= target")
	ErrRatingRange   = errors.New("ratings must be within [0,100]")
	ErrGoalTextEmpty = errors.New("goal text is required")
)

// GoalAssessment is one tracked goal scored on the GAS scale. Assessments are
// never mutated or deleted; reassessment appends a new timestamped snapshot.
type GoalAssessment struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	AgentID      uuid.UUID `json:"agent_id"`
	UserID       uuid.UUID `json:"user_id"`
	Text         string    `json:"text"`
	GASCurrent   int       `json:"gas_current_level"`
	GASExpected  int       `json:"gas_expected_level"`
	GASTarget    int       `json:"gas_target_level"`
	IdealRating  int       `json:"ideal_rating"`
	ActualRating int       `json:"actual_rating"`
	Gap          int       `json:"gap"`
	Category     string    `json:"category"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewGoalAssessment validates levels and ratings and computes the gap.
func NewGoalAssessment(text, category string, current, expected, target, ideal, actual int) (*GoalAssessment, error) {
	if text == "" {
		return nil, ErrGoalTextEmpty
	}
	for _, lvl := range []int{current, expected, target} {
		if lvl < GASMin || lvl > GASMax {
			return nil, fmt.Errorf("gas level %d out of range [%d,%d]", lvl, GASMin, GASMax)
		}
	}
	if current > expected || expected > target {
		return nil, ErrGASOrdering
	}
	if ideal < RatingMin || ideal > RatingMax || actual < RatingMin || actual > RatingMax {
		return nil, ErrRatingRange
	}
	return &GoalAssessment{
		Text:         text,
		Category:     category,
		GASCurrent:   current,
		GASExpected:  expected,
		GASTarget:    target,
		IdealRating:  ideal,
		ActualRating: actual,
		Gap:          ideal - actual,
	}, nil
}

// Reassess produces a fresh snapshot of the goal with updated current level
// and actual rating. The original assessment is untouched.
func (g *GoalAssessment) Reassess(current, actual int) (*GoalAssessment, error) {
	next, err := NewGoalAssessment(g.Text, g.Category, current, g.GASExpected, g.GASTarget, g.IdealRating, actual)
	if err != nil {
		return nil, err
	}
	next.TenantID = g.TenantID
	next.AgentID = g.AgentID
	next.UserID = g.UserID
	return next, nil
}

type NodeType string

const (
	NodeLimitingBelief NodeType = "limiting_belief"
	NodeCoreBelief     NodeType = "core_belief"
	NodeGoal           NodeType = "goal"
	NodeOutcome        NodeType = "outcome"
)

type Relationship string

const (
	RelSupports  Relationship = "supports"
	RelConflicts Relationship = "conflicts"
	RelBlocks    Relationship = "blocks"
	RelCauses    Relationship = "causes"
)

// conflictingRelations marks which edge relationships count toward tension.
var conflictingRelations = map[Relationship]bool{
	RelConflicts: true,
	RelBlocks:    true,
}

type BeliefNode struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	NodeType NodeType `json:"node_type"`
	Valence  float64  `json:"emotional_valence"` // [-1,1]
}

type BeliefEdge struct {
	Source       string       `json:"source"`
	Target       string       `json:"target"`
	Relationship Relationship `json:"relationship"`
	Weight       float64      `json:"weight"` // [0,1]
}

// TensionFraction is the share of a node's incident edge weight that must be
// conflicting before the node counts as a tension node.
const TensionFraction = 0.5

// BeliefGraph is a small attributed graph of beliefs, goals and outcomes.
// Graphs are versioned: every rebuild stores a new version, older versions
// are kept.
type BeliefGraph struct {
	ID        uuid.UUID    `json:"id"`
	TenantID  uuid.UUID    `json:"tenant_id"`
	AgentID   uuid.UUID    `json:"agent_id"`
	UserID    uuid.UUID    `json:"user_id"`
	Version   int          `json:"version"`
	Nodes     []BeliefNode `json:"nodes"`
	Edges     []BeliefEdge `json:"edges"`
	CreatedAt time.Time    `json:"created_at"`
}

// ConflictScore is the weight of conflicting edges over total edge weight,
// always within [0,1]. A graph with no edges scores 0.
func (g *BeliefGraph) ConflictScore() float64 {
	var total, conflicting float64
	for _, e := range g.Edges {
		w := clampWeight(e.Weight)
		total += w
		if conflictingRelations[e.Relationship] {
			conflicting += w
		}
	}
	if total == 0 {
		return 0
	}
	score := conflicting / total
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// TensionNodes returns nodes whose incident conflicting weight exceeds
// TensionFraction of their total incident weight.
func (g *BeliefGraph) TensionNodes() []BeliefNode {
	totalByNode := make(map[string]float64, len(g.Nodes))
	conflictByNode := make(map[string]float64, len(g.Nodes))
	for _, e := range g.Edges {
		w := clampWeight(e.Weight)
		totalByNode[e.Source] += w
		totalByNode[e.Target] += w
		if conflictingRelations[e.Relationship] {
			conflictByNode[e.Source] += w
			conflictByNode[e.Target] += w
		}
	}

	var tense []BeliefNode
	for _, n := range g.Nodes {
		total := totalByNode[n.ID]
		if total == 0 {
			continue
		}
		if conflictByNode[n.ID] > TensionFraction*total {
			tense = append(tense, n)
		}
	}
	return tense
}

func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// TemplateGraph is the static starter graph merged in when discovery yields
// no usable belief structure.
func TemplateGraph() *BeliefGraph {
	return &BeliefGraph{
		Nodes: []BeliefNode{
			{ID: "core-growth", Label: "I am capable of change", NodeType: NodeCoreBelief, Valence: 0.6},
			{ID: "goal-main", Label: "Primary goal", NodeType: NodeGoal, Valence: 0.4},
			{ID: "limit-doubt", Label: "Change has not worked before", NodeType: NodeLimitingBelief, Valence: -0.5},
			{ID: "outcome-better", Label: "Desired outcome", NodeType: NodeOutcome, Valence: 0.7},
		},
		Edges: []BeliefEdge{
			{Source: "core-growth", Target: "goal-main", Relationship: RelSupports, Weight: 0.8},
			{Source: "limit-doubt", Target: "goal-main", Relationship: RelBlocks, Weight: 0.6},
			{Source: "goal-main", Target: "outcome-better", Relationship: RelCauses, Weight: 0.7},
		},
	}
}

// MergeTemplate fills an empty graph from the starter template. Graphs that
// already have nodes are left alone.
func (g *BeliefGraph) MergeTemplate() {
	if len(g.Nodes) > 0 {
		return
	}
	tmpl := TemplateGraph()
	g.Nodes = append(g.Nodes, tmpl.Nodes...)
	g.Edges = append(g.Edges, tmpl.Edges...)
}

type MetricCategory string

const (
	CategoryEmotional  MetricCategory = "emotional"
	CategoryBehavioral MetricCategory = "behavioral"
	CategoryCognitive  MetricCategory = "cognitive"
)

func ValidMetricCategory(c string) bool {
	switch MetricCategory(c) {
	case CategoryEmotional, CategoryBehavioral, CategoryCognitive:
		return true
	}
	return false
}

// Well-known metric types.
const (
	MetricEmotionalIntensity = "emotional_intensity"
	MetricGoalFailure        = "goal_failure"
	MetricGoalProgress       = "goal_progress"
)

// CognitiveMetric is an append-only time-series fact about a user's state.
type CognitiveMetric struct {
	ID                uuid.UUID      `json:"id"`
	TenantID          uuid.UUID      `json:"tenant_id"`
	AgentID           uuid.UUID      `json:"agent_id"`
	UserID            uuid.UUID      `json:"user_id"`
	MetricType        string         `json:"metric_type"`
	Category          MetricCategory `json:"category"`
	Subject           string         `json:"subject,omitempty"` // goal text for goal-scoped metrics
	Value             float64        `json:"value"`
	Threshold         float64        `json:"threshold"`
	ThresholdExceeded bool           `json:"threshold_exceeded"`
	MeasuredAt        time.Time      `json:"measured_at"`
}
