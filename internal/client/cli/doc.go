// Package cli provides the interactive gophfeed command-line client.
//
// It wires configuration, token storage, the request gateway and the session
// store into a REPL. Background loops ping server health (online/offline
// mode), renew the access token ahead of expiry and report session changes
// made by other processes sharing the same data directory.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher and runREPL for details.
package cli
