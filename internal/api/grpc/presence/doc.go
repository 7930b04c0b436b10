// Package presence implements the gRPC transport of the status API.
//
// The service has a single read-only method returning the latest monitor
// snapshot as a google.protobuf.Struct, so no generated stubs are needed:
// the service descriptor is declared by hand.
package presence
