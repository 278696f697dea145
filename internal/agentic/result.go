package agentic

import "time"

// TerminationReason explains why a run ended.
type TerminationReason string

const (
	ReasonCompleted        TerminationReason = "completed"
	ReasonMaxTurnsExceeded TerminationReason = "max_turns_exceeded"
	ReasonTimeout          TerminationReason = "timeout"
	ReasonCostExceeded     TerminationReason = "cost_exceeded"
	ReasonToolFatalError   TerminationReason = "tool_fatal_error"
	ReasonModelUnavailable TerminationReason = "model_unavailable"
	ReasonCancelled        TerminationReason = "cancelled"
)

// Result is the terminal, immutable snapshot of a run. It always carries
// the transcript and usage totals, even on non-completed termination.
type Result struct {
	RunID string `json:"run_id"`
	Goal  string `json:"goal"`

	// FinalText is the model's answer. Set only when Reason is completed.
	FinalText string            `json:"final_text,omitempty"`
	Reason    TerminationReason `json:"reason"`

	// Err carries the underlying failure for tool_fatal_error and
	// model_unavailable terminations. Budget terminations are not errors.
	Err error `json:"-"`

	Transcript []Turn `json:"transcript"`
	Turns      int    `json:"turns"`
	Totals     Usage  `json:"totals"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// result snapshots the run context into an immutable Result.
func (rc *RunContext) result(reason TerminationReason, finalText string, err error) *Result {
	transcript := make([]Turn, len(rc.Transcript))
	copy(transcript, rc.Transcript)

	return &Result{
		RunID:      rc.RunID,
		Goal:       rc.Goal,
		FinalText:  finalText,
		Reason:     reason,
		Err:        err,
		Transcript: transcript,
		Turns:      rc.Turns,
		Totals:     rc.Totals,
		StartedAt:  rc.StartedAt,
		FinishedAt: time.Now(),
	}
}
