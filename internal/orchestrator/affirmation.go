package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
	"github.com/mindmesh-ai/mindmesh/internal/memory"
)

// maxAffirmations bounds the generated set regardless of model verbosity.
const maxAffirmations = 5

const affirmationInstruction = `Write short, first-person, present-tense affirmations grounded in the goals below.
One affirmation per line, at most five lines, nothing else.`

// AffirmationExecutor synthesizes affirmations for a user's goals. It reads
// memory for grounding but writes nothing.
type AffirmationExecutor struct {
	contract *domain.Contract
	mgr      *memory.Manager
	model    domain.ModelClient
}

func NewAffirmationExecutor(contract *domain.Contract, mgr *memory.Manager, model domain.ModelClient) *AffirmationExecutor {
	return &AffirmationExecutor{contract: contract, mgr: mgr, model: model}
}

func (a *AffirmationExecutor) Generate(ctx context.Context, userID uuid.UUID, goals []domain.GoalAssessment) ([]string, error) {
	var sb strings.Builder
	sb.WriteString("Goals:\n")
	for _, g := range goals {
		fmt.Fprintf(&sb, "- %s (%s)\n", g.Text, g.Category)
	}

	if a.contract.Configuration.MemoryEnabled {
		mctx := a.mgr.GetContext(ctx, sb.String(), uuid.Nil, userID, 3)
		if len(mctx.Items) > 0 {
			sb.WriteString("\nWhat we know about the user:\n")
			for _, it := range mctx.Items {
				fmt.Fprintf(&sb, "- %s\n", it.Content)
			}
		}
	}

	out, err := a.model.Generate(ctx, affirmationInstruction, sb.String(), modelConfig(a.contract))
	if err != nil {
		return nil, fmt.Errorf("affirmation generation: %w", err)
	}

	lines := parseLines(out)
	if len(lines) > maxAffirmations {
		lines = lines[:maxAffirmations]
	}
	return lines, nil
}
