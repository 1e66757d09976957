// Package report assembles daily per-conversation task summaries, grouping
// items by priority and splitting the rendered text into delivery-sized
// chunks.
package report
