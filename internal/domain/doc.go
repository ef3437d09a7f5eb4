// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (sessions, keys, persisted storage) and contracts
// (host handler, storage sink, relay channel) only.
package domain
