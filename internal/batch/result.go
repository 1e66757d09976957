package batch

// Outcome classifies how a batch run ended. Failures are carried as values
// rather than thrown through the call stack so every caller (scheduler tick,
// on-demand trigger) handles the full set of outcomes explicitly.
type Outcome string

// Possible batch outcomes.
const (
	// OutcomeSuccess means tasks were extracted and persisted.
	OutcomeSuccess Outcome = "success"

	// OutcomeEmpty means the window contained no unprocessed messages and
	// the extraction gateway was never called.
	OutcomeEmpty Outcome = "empty"

	// OutcomeAlreadyRunning means another batch holds the conversation's
	// single-flight guard. The store was not touched.
	OutcomeAlreadyRunning Outcome = "already_running"

	// OutcomeTransientFailure means the extraction gateway exhausted its
	// retries on a retryable failure. The window is untouched and will be
	// picked up by the next trigger.
	OutcomeTransientFailure Outcome = "transient_failure"

	// OutcomePermanentFailure means the batch hit a non-retryable failure
	// (malformed extraction output, integrity violation). The window is
	// untouched; the failure needs operator attention.
	OutcomePermanentFailure Outcome = "permanent_failure"
)

// Result describes one batch run. Err is set for the failure outcomes.
type Result struct {
	Outcome        Outcome
	ConversationID int64
	MessageCount   int
	TaskCount      int
	Err            error
}

// Failed reports whether the run ended in a failure outcome.
func (r Result) Failed() bool {
	return r.Outcome == OutcomeTransientFailure || r.Outcome == OutcomePermanentFailure
}
