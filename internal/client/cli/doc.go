// Package cli provides the interactive PuffPass command-line client.
//
// The App drives the client core: on start (and after every login) it
// restores the local entry snapshot and loads the profile and the first
// page of entries concurrently. Commands then read from the stores'
// published snapshots and call their write-through operations.
//
// Commands:
//   - register, login, logout
//   - log [reason], list, more, delete <n|id>, refresh
//   - profile, price [amount|recommended], currency [code]
//   - stats
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
