// agentic/compaction.go
package agentic

import "context"

// maybeCompact rewrites the transcript when it has grown past the configured
// fraction of the context window. The original goal (transcript[0]) and the
// most recent CompactionKeepRecent turns survive verbatim; everything in
// between is replaced by a single model-written summary turn.
//
// Compaction is best-effort: a summarization failure, or a summary that does
// not bring fullness back under the threshold, is reported through the
// OnCompaction hook and never stops the run.
func (l *Loop) maybeCompact(ctx context.Context, rc *RunContext) {
	if !l.cfg.EnableCompaction {
		return
	}
	if rc.Fullness() < l.cfg.CompactionThreshold {
		return
	}

	keep := l.cfg.CompactionKeepRecent
	if keep < 1 {
		keep = 1
	}

	// Evictable region: everything between the goal turn and the preserved
	// recent window.
	if len(rc.Transcript) <= 1+keep {
		return
	}
	evict := rc.Transcript[1 : len(rc.Transcript)-keep]

	// Idempotence: a second pass with no new turns sees only the summary
	// produced by the first, and must not shrink the window any further.
	if len(evict) == 1 && evict[0].Kind == TurnSummary {
		return
	}

	before := rc.estTokens

	summary, usage, err := l.model.Summarize(ctx, evict, l.cfg.Tier)
	rc.Totals.Add(usage)
	if err != nil {
		l.hooks.OnCompaction(ctx, rc, before, before, false)
		return
	}

	compacted := make([]Turn, 0, 2+keep)
	compacted = append(compacted, rc.Transcript[0])
	compacted = append(compacted, Turn{Kind: TurnSummary, Content: summary})
	compacted = append(compacted, rc.Transcript[len(rc.Transcript)-keep:]...)
	rc.replaceTranscript(compacted)

	l.hooks.OnCompaction(ctx, rc, before, rc.estTokens, rc.Fullness() < l.cfg.CompactionThreshold)
}
