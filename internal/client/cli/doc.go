// Package cli provides the interactive gophchat terminal client.
//
// It talks to the request API over gRPC for account, history and message
// management, and optionally opens the live channel to receive presence
// updates and messages as they arrive. The REPL is started via App.Run,
// which blocks until the user exits.
package cli
