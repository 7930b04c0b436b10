// Package presence contains the core domain types of the presence tracker.
//
// It defines State (home or away), Subject (a tracked person), Record (the
// last confirmed state of a subject), Change (a committed transition), the
// Combined state of a household and the QuietHours gate.
package presence
