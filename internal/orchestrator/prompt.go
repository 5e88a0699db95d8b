package orchestrator

import (
	"fmt"
	"strings"

	"github.com/mindmesh-ai/mindmesh/internal/domain"
)

// maxContextItems bounds how many retrieved memories render into the prompt.
const maxContextItems = 5

// Trait band boundaries on the 0-100 scale.
const (
	bandLowMax = 34
	bandMidMax = 67
)

// traitInstructions maps each trait to its low/mid/high phrasing. Every trait
// always renders exactly one line; values are banded, never filtered out.
var traitInstructions = map[string][3]string{
	"warmth":        {"Keep a measured, professional distance.", "Be friendly without being effusive.", "Be openly warm and caring in every reply."},
	"directness":    {"Soften your points and leave room for interpretation.", "Balance candor with tact.", "Say exactly what you mean, plainly."},
	"formality":     {"Use casual, conversational language.", "Keep a relaxed but polished tone.", "Maintain formal, precise language."},
	"optimism":      {"Acknowledge difficulties frankly before any silver lining.", "Stay realistic while noting what could go well.", "Emphasize possibility and momentum."},
	"curiosity":     {"Stay focused on the question as asked.", "Ask an occasional clarifying question.", "Probe actively and explore adjacent ideas."},
	"patience":      {"Get to the point quickly.", "Take reasonable time to explain.", "Walk through things slowly and never rush the user."},
	"humor":         {"Keep replies straight-faced.", "Allow light touches of humor when natural.", "Use playful humor freely."},
	"assertiveness": {"Defer to the user's framing.", "Offer your view while inviting theirs.", "State recommendations confidently and stand by them."},
	"empathy":       {"Focus on facts over feelings.", "Acknowledge feelings where they surface.", "Lead with emotional attunement before advice."},
	"analytical":    {"Favor intuition and narrative over structure.", "Mix structured reasoning with plain talk.", "Break everything down step by step."},
}

func bandIndex(value int) int {
	switch {
	case value < bandLowMax:
		return 0
	case value < bandMidMax:
		return 1
	default:
		return 2
	}
}

// renderSystemPrompt deterministically composes the instruction block from the
// contract's identity, all ten traits, and a bounded window of context items.
// Same inputs always yield byte-identical output.
func renderSystemPrompt(c *domain.Contract, mctx domain.MemoryContext) string {
	var sb strings.Builder

	sb.WriteString("You are " + c.Name + ".\n")
	if c.Identity.Description != "" {
		sb.WriteString(c.Identity.Description + "\n")
	}
	if c.Identity.Role != "" {
		sb.WriteString("Role: " + c.Identity.Role + "\n")
	}
	if c.Identity.Mission != "" {
		sb.WriteString("Mission: " + c.Identity.Mission + "\n")
	}
	if c.Identity.InteractionStyle != "" {
		sb.WriteString("Interaction style: " + c.Identity.InteractionStyle + "\n")
	}

	sb.WriteString("\nPersonality:\n")
	for _, nt := range c.Traits.Named() {
		line := traitInstructions[nt.Name][bandIndex(nt.Value)]
		fmt.Fprintf(&sb, "- %s (%d/100): %s\n", nt.Name, nt.Value, line)
	}

	if len(mctx.Items) > 0 {
		sb.WriteString("\nRelevant memories:\n")
		items := mctx.Items
		if len(items) > maxContextItems {
			items = items[:maxContextItems]
		}
		for _, it := range items {
			fmt.Fprintf(&sb, "- %s\n", it.Content)
		}
	}

	if len(mctx.SessionMessages) > 0 {
		sb.WriteString("\nRecent conversation:\n")
		for _, msg := range mctx.SessionMessages {
			fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Content)
		}
	}

	return sb.String()
}
