package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrContractInvalid is returned when a contract fails construction-time
// validation. It is always wrapped with a reason.
var ErrContractInvalid = errors.New("contract invalid")

type ContractType string

const (
	ContractConversational ContractType = "conversational"
	ContractVoice          ContractType = "voice"
	ContractWorkflow       ContractType = "workflow"
	ContractAutonomous     ContractType = "autonomous"
)

func ValidContractType(t string) bool {
	switch ContractType(t) {
	case ContractConversational, ContractVoice, ContractWorkflow, ContractAutonomous:
		return true
	}
	return false
}

// Identity describes who the agent is and how it speaks.
type Identity struct {
	Description      string `json:"description"`
	Role             string `json:"role"`
	Mission          string `json:"mission"`
	InteractionStyle string `json:"interaction_style"`
}

// Traits holds the ten personality dimensions, each 0-100.
type Traits struct {
	Warmth        int `json:"warmth"`
	Directness    int `json:"directness"`
	Formality     int `json:"formality"`
	Optimism      int `json:"optimism"`
	Curiosity     int `json:"curiosity"`
	Patience      int `json:"patience"`
	Humor         int `json:"humor"`
	Assertiveness int `json:"assertiveness"`
	Empathy       int `json:"empathy"`
	Analytical    int `json:"analytical"`
}

type NamedTrait struct {
	Name  string
	Value int
}

// Named returns all ten traits in a fixed order. Prompt rendering depends on
// this ordering being stable.
func (t Traits) Named() []NamedTrait {
	return []NamedTrait{
		{"warmth", t.Warmth},
		{"directness", t.Directness},
		{"formality", t.Formality},
		{"optimism", t.Optimism},
		{"curiosity", t.Curiosity},
		{"patience", t.Patience},
		{"humor", t.Humor},
		{"assertiveness", t.Assertiveness},
		{"empathy", t.Empathy},
		{"analytical", t.Analytical},
	}
}

// CognitiveFlags is the single source of truth for cognitive-feature
// configuration, including every reflex threshold. Thresholds live here so
// the reflex engine never carries its own defaults.
type CognitiveFlags struct {
	Enabled                  bool    `json:"enabled"`
	ReflexTriggersEnabled    bool    `json:"reflex_triggers_enabled"`
	EmotionConflictThreshold float64 `json:"emotion_conflict_threshold"`
	RepeatedFailureCount     int     `json:"repeated_failure_count"`
	BeliefConflictThreshold  float64 `json:"belief_conflict_threshold"`
}

func DefaultCognitiveFlags() CognitiveFlags {
	return CognitiveFlags{
		EmotionConflictThreshold: 0.7,
		RepeatedFailureCount:     2,
		BeliefConflictThreshold:  0.8,
	}
}

// applyDefaults fills zero-valued thresholds from DefaultCognitiveFlags. A
// caller that enables cognitive features without naming thresholds gets the
// defaults, never zero values.
func (f *CognitiveFlags) applyDefaults() {
	def := DefaultCognitiveFlags()
	if f.EmotionConflictThreshold == 0 {
		f.EmotionConflictThreshold = def.EmotionConflictThreshold
	}
	if f.RepeatedFailureCount == 0 {
		f.RepeatedFailureCount = def.RepeatedFailureCount
	}
	if f.BeliefConflictThreshold == 0 {
		f.BeliefConflictThreshold = def.BeliefConflictThreshold
	}
}

// Configuration holds runtime knobs for one agent.
type Configuration struct {
	ModelRef      string         `json:"model_ref"`
	Temperature   float32        `json:"temperature"`
	TokenLimit    int            `json:"token_limit"`
	MemoryEnabled bool           `json:"memory_enabled"`
	VoiceEnabled  bool           `json:"voice_enabled"`
	Cognitive     CognitiveFlags `json:"cognitive_flags"`
}

// VoiceProfile identifies the synthesis voice for voice-capable agents.
// Audio generation itself happens outside this core.
type VoiceProfile struct {
	VoiceID string  `json:"voice_id"`
	Speed   float32 `json:"speed"`
	Pitch   float32 `json:"pitch"`
}

// Contract is the immutable, versioned descriptor of an agent. Updates never
// mutate in place; NewVersion produces the successor and the store keeps an
// append-only snapshot per version.
type Contract struct {
	ID            uuid.UUID     `json:"id"`
	TenantID      uuid.UUID     `json:"tenant_id"`
	Name          string        `json:"name"`
	Type          ContractType  `json:"type"`
	Version       int           `json:"version"`
	Identity      Identity      `json:"identity"`
	Traits        Traits        `json:"traits"`
	Configuration Configuration `json:"configuration"`
	Voice         *VoiceProfile `json:"voice,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewContract validates and constructs a contract at version 1.
func NewContract(tenantID uuid.UUID, name string, ctype ContractType, identity Identity, traits Traits, cfg Configuration, voice *VoiceProfile) (*Contract, error) {
	c := &Contract{
		TenantID:      tenantID,
		Name:          name,
		Type:          ctype,
		Version:       1,
		Identity:      identity,
		Traits:        traits,
		Configuration: cfg,
		Voice:         voice,
	}
	c.Configuration.Cognitive.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewVersion returns a successor contract with the given fields and
// Version+1. The receiver is left untouched.
func (c *Contract) NewVersion(identity Identity, traits Traits, cfg Configuration, voice *VoiceProfile) (*Contract, error) {
	next := &Contract{
		ID:            c.ID,
		TenantID:      c.TenantID,
		Name:          c.Name,
		Type:          c.Type,
		Version:       c.Version + 1,
		Identity:      identity,
		Traits:        traits,
		Configuration: cfg,
		Voice:         voice,
	}
	next.Configuration.Cognitive.applyDefaults()
	if err := next.validate(); err != nil {
		return nil, err
	}
	return next, nil
}

// RequiresVoice reports whether a voice profile is mandatory for this contract.
func (c *Contract) RequiresVoice() bool {
	return c.Type == ContractVoice || c.Configuration.VoiceEnabled
}

func (c *Contract) validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrContractInvalid)
	}
	if !ValidContractType(string(c.Type)) {
		return fmt.Errorf("%w: unknown type %q", ErrContractInvalid, c.Type)
	}
	if c.RequiresVoice() && c.Voice == nil {
		return fmt.Errorf("%w: voice profile is required for voice-enabled contracts", ErrContractInvalid)
	}
	for _, nt := range c.Traits.Named() {
		if nt.Value < 0 || nt.Value > 100 {
			return fmt.Errorf("%w: trait %s=%d out of range [0,100]", ErrContractInvalid, nt.Name, nt.Value)
		}
	}
	if c.Configuration.Temperature < 0 || c.Configuration.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v out of range [0,2]", ErrContractInvalid, c.Configuration.Temperature)
	}
	return nil
}
