// Package lifecycle implements the human prioritization state machine for
// extracted tasks: pending items receive a priority, prioritized items are
// exported to an external tracker, and items in either state can be
// discarded.
package lifecycle
