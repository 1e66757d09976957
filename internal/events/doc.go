// Package events provides a lightweight in-process event mechanism used to
// decouple the batch pipeline from delivery collaborators.
package events
