package run

// State is the persisted state for a single run, written after every stage
// transition. It is mutated only by the orchestrator, sequentially, and is
// terminal once Status becomes "succeeded" or "failed".
type State struct {
	RunID         string       `json:"run_id"`
	Issue         int          `json:"issue"`
	Title         string       `json:"title"`
	Label         string       `json:"label,omitempty"` // classification: chore, bug, feature
	CurrentStage  string       `json:"current_stage"`
	Branch        string       `json:"branch,omitempty"`
	PlanPath      string       `json:"plan_path,omitempty"`
	PRURL         string       `json:"pr_url,omitempty"`
	Invocations   []Invocation `json:"invocations"`
	Status        string       `json:"status"` // "in_progress", "succeeded", "failed"
	FailedStage   string       `json:"failed_stage,omitempty"`
	FailureReason string       `json:"failure_reason,omitempty"`
	CreatedAt     string       `json:"created_at"`
	UpdatedAt     string       `json:"updated_at"`
}

// Invocation records one agent invocation. Owned by the stage that created
// it; appended to the state and never mutated afterwards.
type Invocation struct {
	Stage      string   `json:"stage"`
	Template   string   `json:"template,omitempty"`
	Args       []string `json:"args,omitempty"`
	Model      string   `json:"model"`
	Success    bool     `json:"success"`
	SessionID  string   `json:"session_id,omitempty"`
	CostUSD    float64  `json:"cost_usd"`
	DurationMS int64    `json:"duration_ms"`
	Transcript string   `json:"transcript,omitempty"`
	Timestamp  string   `json:"timestamp"`
}

// Terminal reports whether the run has reached a terminal outcome.
func (s *State) Terminal() bool {
	return s.Status == "succeeded" || s.Status == "failed"
}
