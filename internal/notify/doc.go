// Package notify delivers presence transitions to the outside world.
//
// Delivery is best effort: failures are logged by the callbacks adapter and
// never retried, and they never influence the recorded state.
package notify
