// Package orchestrator drives the fixed invocation pipeline for one request:
// retrieve context, build the prompt, invoke the model, post-process, check
// reflex triggers.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mindmesh-ai/mindmesh/internal/domain"
	"github.com/mindmesh-ai/mindmesh/internal/memory"
	"github.com/mindmesh-ai/mindmesh/internal/reflex"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrModelInvocation marks a failed model call. It is the only pipeline error
// surfaced to the caller; everything else degrades in place.
var ErrModelInvocation = errors.New("model invocation failed")

// fallbackResponse stands in when a degraded pipeline produced no usable text.
const fallbackResponse = "I'm having trouble forming a response right now. Could you try again in a moment?"

type stateName string

const (
	stateRetrieveContext stateName = "retrieve_context"
	stateBuildPrompt     stateName = "build_prompt"
	stateInvokeModel     stateName = "invoke_model"
	statePostProcess     stateName = "post_process"
	stateCheckTriggers   stateName = "check_triggers"
	stateDone            stateName = "done"
)

// ChatResult is the outcome of one chat invocation. Degraded means some
// non-terminal pipeline state failed and the response may be partial.
type ChatResult struct {
	ResponseText string `json:"response_text"`
	TriggerCount int    `json:"trigger_count"`
	Degraded     bool   `json:"degraded,omitempty"`
}

// FlowResult is the outcome of one full-flow invocation. AudioAssets stays
// empty until a synthesis capability is attached downstream.
type FlowResult struct {
	Affirmations []string `json:"affirmations"`
	Protocol     string   `json:"protocol"`
	AudioAssets  []string `json:"audio_assets,omitempty"`
	TriggerCount int      `json:"trigger_count"`
	Degraded     bool     `json:"degraded,omitempty"`
}

// pipelineState accumulates across states. Each state reads what earlier
// states wrote and never reaches back.
type pipelineState struct {
	contract *domain.Contract
	mgr      *memory.Manager
	threadID uuid.UUID
	userID   uuid.UUID
	input    string
	fullFlow bool

	memCtx   domain.MemoryContext
	system   string
	response string
	triggers []domain.TriggerEvent
	flow     *FlowResult
	err      error
	degraded bool
}

// Orchestrator is safe for concurrent use; all per-request state lives in the
// pipelineState, never on the struct.
type Orchestrator struct {
	model  domain.ModelClient
	reflex *reflex.Engine
	logger *zap.Logger
}

func New(model domain.ModelClient, rfx *reflex.Engine, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{model: model, reflex: rfx, logger: logger}
}

// Chat runs the pipeline for a conversational turn. It returns an error only
// when the model call itself fails; any other failure yields a degraded
// result with at least the fallback sentence.
func (o *Orchestrator) Chat(ctx context.Context, contract *domain.Contract, mgr *memory.Manager, threadID, userID uuid.UUID, input string) (*ChatResult, error) {
	st := &pipelineState{
		contract: contract,
		mgr:      mgr,
		threadID: threadID,
		userID:   userID,
		input:    input,
	}
	o.run(ctx, st)

	if errors.Is(st.err, ErrModelInvocation) {
		return nil, st.err
	}
	resp := st.response
	if resp == "" {
		resp = fallbackResponse
		st.degraded = true
	}
	return &ChatResult{
		ResponseText: resp,
		TriggerCount: len(st.triggers),
		Degraded:     st.degraded,
	}, nil
}

// RunFullFlow runs the pipeline with asset-producing post-processing:
// discovery, then affirmation and protocol synthesis.
func (o *Orchestrator) RunFullFlow(ctx context.Context, contract *domain.Contract, mgr *memory.Manager, userID uuid.UUID, discoveryInput string) (*FlowResult, error) {
	st := &pipelineState{
		contract: contract,
		mgr:      mgr,
		userID:   userID,
		input:    discoveryInput,
		fullFlow: true,
	}
	o.run(ctx, st)

	if errors.Is(st.err, ErrModelInvocation) {
		return nil, st.err
	}
	flow := st.flow
	if flow == nil {
		flow = &FlowResult{}
		st.degraded = true
	}
	flow.TriggerCount = len(st.triggers)
	flow.Degraded = st.degraded
	return flow, nil
}

// run advances through the states in order. A state failure is recorded and
// the machine continues to done, except a model failure which stops the
// pipeline immediately.
func (o *Orchestrator) run(ctx context.Context, st *pipelineState) {
	steps := []struct {
		name stateName
		fn   func(context.Context, *pipelineState) error
	}{
		{stateRetrieveContext, o.retrieveContext},
		{stateBuildPrompt, o.buildPrompt},
		{stateInvokeModel, o.invokeModel},
		{statePostProcess, o.postProcess},
		{stateCheckTriggers, o.checkTriggers},
	}

	for _, step := range steps {
		if err := step.fn(ctx, st); err != nil {
			st.err = err
			if step.name == stateInvokeModel {
				o.logger.Error("pipeline terminated",
					zap.String("state", string(step.name)), zap.Error(err))
				return
			}
			st.degraded = true
			o.logger.Warn("pipeline state failed, continuing degraded",
				zap.String("state", string(step.name)), zap.Error(err))
		}
	}
}

func (o *Orchestrator) retrieveContext(ctx context.Context, st *pipelineState) error {
	if !st.contract.Configuration.MemoryEnabled {
		return nil
	}
	st.memCtx = st.mgr.GetContext(ctx, st.input, st.threadID, st.userID, 0)
	return nil
}

func (o *Orchestrator) buildPrompt(_ context.Context, st *pipelineState) error {
	st.system = renderSystemPrompt(st.contract, st.memCtx)
	return nil
}

func (o *Orchestrator) invokeModel(ctx context.Context, st *pipelineState) error {
	out, err := o.model.Generate(ctx, st.system, st.input, modelConfig(st.contract))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelInvocation, err)
	}
	st.response = out
	return nil
}

func (o *Orchestrator) postProcess(ctx context.Context, st *pipelineState) error {
	if st.contract.Configuration.MemoryEnabled && st.threadID != uuid.Nil {
		st.mgr.StoreInteraction(ctx, st.input, st.response, st.threadID, st.userID)
	}
	if !st.fullFlow {
		return nil
	}

	discovery := NewDiscoveryExecutor(st.contract, st.mgr, o.model, o.logger)
	goals, err := discovery.Generate(ctx, st.userID, st.input)
	if err != nil {
		return err
	}

	var (
		affirmations []string
		protocol     string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		affirmations, err = NewAffirmationExecutor(st.contract, st.mgr, o.model).Generate(gctx, st.userID, goals)
		return err
	})
	g.Go(func() error {
		var err error
		protocol, err = NewProtocolExecutor(st.contract, st.mgr, o.model).Generate(gctx, goals)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	st.flow = &FlowResult{Affirmations: affirmations, Protocol: protocol}
	return nil
}

func (o *Orchestrator) checkTriggers(ctx context.Context, st *pipelineState) error {
	flags := st.contract.Configuration.Cognitive
	if !flags.Enabled || !flags.ReflexTriggersEnabled {
		return nil
	}
	st.triggers = o.reflex.CheckAllTriggers(ctx, st.mgr.TenantID(), st.mgr.AgentID(), st.userID, flags)
	if len(st.triggers) > 0 && st.response != "" {
		st.response += "\n\n" + st.triggers[0].PromptTemplate
	}
	return nil
}

// modelConfig narrows a contract's configuration to one model call.
func modelConfig(c *domain.Contract) domain.ModelConfig {
	return domain.ModelConfig{
		Model:       c.Configuration.ModelRef,
		Temperature: c.Configuration.Temperature,
		MaxTokens:   c.Configuration.TokenLimit,
	}
}
