// Package app wires the link manager for the CLI.
//
// It resolves Config from defaults, an optional TOML file and flags, then
// builds the logger, the storage sink, the host callbacks and the manager,
// exposing them via Wire for commands to use.
package app
