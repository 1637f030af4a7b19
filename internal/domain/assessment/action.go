package assessment

// ActionType enumerates the remediation actions the recommender can emit.
type ActionType string

const (
	ActionQuarantine  ActionType = "QUARANTINE"
	ActionBlockSender ActionType = "BLOCK_SENDER"
	ActionAlert       ActionType = "ALERT"
	ActionTag         ActionType = "TAG"
	ActionLog         ActionType = "LOG"
	ActionNone        ActionType = "NO_ACTION"
)

// Priority ranks the urgency of a recommended action.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// RecommendedAction is a single remediation step. Reasoning is always set.
type RecommendedAction struct {
	ActionType       ActionType     `json:"action_type"`
	Priority         Priority       `json:"priority"`
	Confidence       float64        `json:"confidence"`
	Parameters       map[string]any `json:"parameters"`
	RequiresApproval bool           `json:"requires_approval"`
	Reasoning        string         `json:"reasoning"`
}

// HasAction reports whether actions contains at least one action of type t.
func HasAction(actions []RecommendedAction, t ActionType) bool {
	for i := range actions {
		if actions[i].ActionType == t {
			return true
		}
	}
	return false
}
