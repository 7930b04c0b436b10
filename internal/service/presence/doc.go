// Package presence runs the presence control loop.
//
// A Monitor observes, confirms suspected departures, persists committed
// transitions and dispatches callbacks. Arrivals are trusted on the first
// positive sample; departures are only committed once repeated observation
// agrees. The scan variant tracks the household as one subject and confirms
// inline, the heartbeat variant tracks every subject and relies on the next
// poll instead.
package presence
