// Package cli provides the interactive Lexora sync command-line client.
//
// It wires configuration, the local replica, remote storage, and an
// interactive REPL. Typical flow: hydrate the replica, kick off the startup
// sync, start a background connectivity watcher, and execute user commands.
//
// Key features:
//   - Sign in / sign out against the remote storage provider
//   - Manage decks (collections) and cards, record reviews
//   - Bidirectional sync plus explicit pull/push
//   - Export and import of the full snapshot as JSON
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, runREPL, and the services package for details.
package cli
