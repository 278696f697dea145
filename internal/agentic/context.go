package agentic

import (
	"time"

	"github.com/google/uuid"
)

// RunContext is the mutable state of one run. It is owned exclusively by
// the loop that created it: tools and hooks receive it read-only and must
// never append to the transcript themselves.
type RunContext struct {
	RunID string
	Goal  string

	Transcript []Turn
	Turns      int   // completed model queries
	Totals     Usage // monotone within a run

	StartedAt time.Time

	visible   ToolRegistry // config ∩ registry, fixed at construction
	window    int          // context capacity in tokens for the selected tier
	estTokens int          // cached estimate, recomputed on every mutation
}

func newRunContext(goal string, visible ToolRegistry, window int) *RunContext {
	rc := &RunContext{
		RunID:     uuid.NewString(),
		Goal:      goal,
		StartedAt: time.Now(),
		visible:   visible,
		window:    window,
	}
	rc.appendTurn(Turn{Kind: TurnUser, Content: goal})
	return rc
}

// appendTurn is the single mutation point for the transcript outside of
// compaction. It keeps the token estimate current.
func (rc *RunContext) appendTurn(t Turn) {
	rc.Transcript = append(rc.Transcript, t)
	rc.estTokens += turnTokens(t)
}

// replaceTranscript swaps the transcript wholesale (compaction only) and
// recomputes the token estimate from scratch.
func (rc *RunContext) replaceTranscript(turns []Turn) {
	rc.Transcript = turns
	rc.estTokens = CountTranscriptTokens(turns)
}

// Fullness reports the ratio of estimated used capacity to the model's
// context window for the selected tier, in [0.0, 1.0].
func (rc *RunContext) Fullness() float64 {
	if rc.window <= 0 {
		return 0
	}
	f := float64(rc.estTokens) / float64(rc.window)
	if f > 1 {
		return 1
	}
	return f
}

// Elapsed is the wall-clock time since the run started.
func (rc *RunContext) Elapsed() time.Duration {
	return time.Since(rc.StartedAt)
}

// VisibleTools returns the registry subset this run exposes to the model.
func (rc *RunContext) VisibleTools() ToolRegistry {
	return rc.visible
}
