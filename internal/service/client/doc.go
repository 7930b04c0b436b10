// Package client queries the status API of a running daemon.
package client
