package extraction

import "errors"

// Common errors returned by the extraction package
var (
	// ErrExtractionFailed is returned when extraction fails for any general reason
	ErrExtractionFailed = errors.New("failed to extract tasks from messages")

	// ErrEmptyBatch is returned when an extraction request carries no messages
	ErrEmptyBatch = errors.New("extraction request contains no messages")

	// ErrInvalidResponse is returned when the LLM response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrRateLimited is returned when the LLM rejects the call for rate limiting
	ErrRateLimited = errors.New("rate limited by language model")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during task extraction")

	// ErrInvalidConfig is returned when the extractor configuration is invalid
	ErrInvalidConfig = errors.New("invalid extractor configuration")
)

// IsTransient reports whether the error is worth retrying, either within
// the gateway's backoff loop or by rescheduling the batch at the next tick.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientFailure) || errors.Is(err, ErrRateLimited)
}
