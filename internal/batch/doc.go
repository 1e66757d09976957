// Package batch implements the batch orchestrator: claiming windows of
// unprocessed messages per conversation, invoking the extraction gateway,
// and applying all resulting writes atomically under a per-conversation
// single-flight guard.
package batch
