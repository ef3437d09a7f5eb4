// Package store holds the link session registry and its on-disk sink.
//
// SessionStore is the in-memory, insertion-ordered set of sessions keyed by
// (network, actor, permission, name), plus the channel identity and request
// key. It serializes to the JSON document handed to host storage callbacks.
//
// FileSink implements domain.StorageSink on a single file, written
// atomically via temp file and rename, optionally sealed with a passphrase.
package store
