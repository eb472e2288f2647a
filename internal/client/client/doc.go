// Package client checks the gophfeed server for reachability over the
// standard gRPC health protocol.
//
// HealthClient.Ping returns nil when the server reports SERVING,
// ErrNotServing for any other status and ErrUnavailable when the endpoint
// cannot be reached in time. The CLI uses it to switch between online and
// offline mode.
package client
