// Package common holds helpers shared by several commands.
//
// It provides a lightweight gRPC client for the status API with call timeouts
// and a helper deriving the default heartbeat key from the current user.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
