package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/mindmesh-ai/mindmesh/internal/domain"
	"github.com/mindmesh-ai/mindmesh/internal/memory"
)

const protocolInstruction = `Compose a short daily practice protocol for the goals below: a morning
intention, one concrete action per goal, and an evening reflection prompt.
Plain text, under 200 words.`

// ProtocolExecutor synthesizes a daily practice script from discovered goals.
type ProtocolExecutor struct {
	contract *domain.Contract
	mgr      *memory.Manager
	model    domain.ModelClient
}

func NewProtocolExecutor(contract *domain.Contract, mgr *memory.Manager, model domain.ModelClient) *ProtocolExecutor {
	return &ProtocolExecutor{contract: contract, mgr: mgr, model: model}
}

func (p *ProtocolExecutor) Generate(ctx context.Context, goals []domain.GoalAssessment) (string, error) {
	var sb strings.Builder
	sb.WriteString("Goals:\n")
	for _, g := range goals {
		fmt.Fprintf(&sb, "- %s (%s)\n", g.Text, g.Category)
	}

	out, err := p.model.Generate(ctx, protocolInstruction, sb.String(), modelConfig(p.contract))
	if err != nil {
		return "", fmt.Errorf("protocol generation: %w", err)
	}
	return strings.TrimSpace(out), nil
}
