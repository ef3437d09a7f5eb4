// Package manager is the link session manager a wallet host embeds.
//
// A Manager owns the session store, the relay channel listening on
// wss://{linkUrl}/{linkId}, and the request pipeline: every inbound frame is
// decoded as a sealed message, unsealed with the store's request key and
// accepted only when its sender key belongs to a known session. Accepted
// requests refresh the session's lastUsed stamp, persist the store through
// the host and are handed to the host as plaintext.
//
// Every store mutation is followed by Handler.OnStorageUpdate while the
// store commit lock is held (store.SessionStore.Transact), so hosts see
// snapshots in mutation order even when managers share a store, and must
// not call back into the Manager from that callback.
package manager
