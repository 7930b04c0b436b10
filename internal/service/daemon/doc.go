// Package daemon wires configuration, storage, observers, notifiers and the
// status API around the presence monitor and runs them until shutdown.
package daemon
