package orchestrator

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mindmesh-ai/mindmesh/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSystemPrompt_AllTraitsAlwaysRendered(t *testing.T) {
	c := chatContract()
	prompt := renderSystemPrompt(c, domain.MemoryContext{})

	for _, nt := range c.Traits.Named() {
		assert.Contains(t, prompt, fmt.Sprintf("%s (%d/100)", nt.Name, nt.Value))
	}
	assert.Contains(t, prompt, "You are coach.")
	assert.Contains(t, prompt, "Mission: help users grow")
}

func TestRenderSystemPrompt_Deterministic(t *testing.T) {
	c := chatContract()
	mctx := domain.MemoryContext{
		Items: []domain.ContextItem{{Content: "likes hiking", Relevance: 0.8}},
		SessionMessages: []domain.Message{
			{Role: domain.RoleUser, Content: "hello"},
			{Role: domain.RoleAgent, Content: "hi there"},
		},
	}

	first := renderSystemPrompt(c, mctx)
	second := renderSystemPrompt(c, mctx)
	require.Equal(t, first, second)
}

func TestRenderSystemPrompt_TraitBands(t *testing.T) {
	c := chatContract()

	c.Traits.Warmth = 10
	low := renderSystemPrompt(c, domain.MemoryContext{})
	assert.Contains(t, low, traitInstructions["warmth"][0])

	c.Traits.Warmth = 50
	mid := renderSystemPrompt(c, domain.MemoryContext{})
	assert.Contains(t, mid, traitInstructions["warmth"][1])

	c.Traits.Warmth = 90
	high := renderSystemPrompt(c, domain.MemoryContext{})
	assert.Contains(t, high, traitInstructions["warmth"][2])
}

func TestRenderSystemPrompt_ContextWindowBounded(t *testing.T) {
	c := chatContract()
	var mctx domain.MemoryContext
	for i := 0; i < maxContextItems+4; i++ {
		mctx.Items = append(mctx.Items, domain.ContextItem{Content: fmt.Sprintf("memory-%d", i)})
	}

	prompt := renderSystemPrompt(c, mctx)

	assert.Contains(t, prompt, fmt.Sprintf("memory-%d", maxContextItems-1))
	assert.NotContains(t, prompt, fmt.Sprintf("memory-%d", maxContextItems))
}

func TestRenderSystemPrompt_SessionMessagesIncluded(t *testing.T) {
	c := chatContract()
	mctx := domain.MemoryContext{
		SessionMessages: []domain.Message{
			{Role: domain.RoleUser, Content: "how was my week"},
			{Role: domain.RoleAgent, Content: "you made progress on two goals"},
		},
	}

	prompt := renderSystemPrompt(c, mctx)

	assert.Contains(t, prompt, "Recent conversation:")
	assert.Contains(t, prompt, "user: how was my week")
	assert.Contains(t, prompt, "agent: you made progress on two goals")
}

func TestBandIndex(t *testing.T) {
	tests := []struct {
		value int
		want  int
	}{
		{0, 0}, {33, 0}, {34, 1}, {66, 1}, {67, 2}, {100, 2},
	}
	for _, tt := range tests {
		if got := bandIndex(tt.value); got != tt.want {
			t.Errorf("bandIndex(%d) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestParseLines(t *testing.T) {
	out := " - first goal | health\n\n2. second goal\n* third\n"
	lines := parseLines(out)
	require.Len(t, lines, 3)
	assert.Equal(t, "first goal | health", lines[0])
	assert.Equal(t, "second goal", lines[1])
	assert.Equal(t, "third", lines[2])
}

func TestSplitGoalLine(t *testing.T) {
	text, category := splitGoalLine("build confidence | growth")
	assert.Equal(t, "build confidence", text)
	assert.Equal(t, "growth", category)

	text, category = splitGoalLine("just a goal")
	assert.Equal(t, "just a goal", text)
	assert.Equal(t, "personal", category)
}

func TestRenderSystemPrompt_NoContextSections(t *testing.T) {
	prompt := renderSystemPrompt(chatContract(), domain.MemoryContext{})
	assert.False(t, strings.Contains(prompt, "Relevant memories:"))
	assert.False(t, strings.Contains(prompt, "Recent conversation:"))
}
