// Package staff resolves which message senders belong to the internal team,
// merging a static configured allow-list with the staff_members table.
package staff
