package domain

type TriggerType string

const (
	TriggerEmotionConflict TriggerType = "emotion_conflict"
	TriggerRepeatedFailure TriggerType = "repeated_failure"
	TriggerBeliefConflict  TriggerType = "belief_conflict"
)

// TriggerEvent is an intervention directive produced by the reflex engine
// when a monitored metric crosses its threshold.
type TriggerEvent struct {
	Type           TriggerType    `json:"type"`
	Action         string         `json:"action"`
	PromptTemplate string         `json:"prompt_template"`
	Context        map[string]any `json:"context,omitempty"`
}
