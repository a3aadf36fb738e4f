// Package cli provides the interactive AutoMailPro command-line client.
//
// It wires the session manager, the update engine and the run pipeline to
// a small REPL. Typical flow: check the stored session, start a background
// update watcher, then execute user commands until exit.
//
// Key features:
//   - Login / Logout against the remote API
//   - Status of the session and of the installed versions
//   - Update on demand (with confirmation) and in the background
//   - Scenario listing, compilation and per-account extension builds
//   - Results of previous runs
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartUpdateWatcher, and runREPL for details.
package cli
