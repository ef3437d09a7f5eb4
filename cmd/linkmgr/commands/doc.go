// Package commands defines the linkmgr CLI.
//
// Commands
//
//   - init             Create or load storage and print the channel identity
//   - sessions list    Show stored link sessions
//   - sessions add     Store a link session
//   - sessions remove  Delete a link session by identity
//   - sessions clear   Delete every link session
//   - listen           Connect to the relay and print authenticated requests
//
// The root command resolves configuration (defaults, linkmgr.toml, flags)
// and builds the app wiring before any subcommand runs.
package commands
