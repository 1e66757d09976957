// Package scheduler drives the periodic work: interval batch sweeps over
// every registered conversation, a daily report fire at a configured local
// time, and on-demand triggers that share the batch orchestrator's
// single-flight guard.
package scheduler
