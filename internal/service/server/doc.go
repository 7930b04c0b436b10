// Package server serves the read-only status API next to the control loop.
package server
