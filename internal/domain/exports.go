package domain

import (
	interfaces "linkmgr/internal/domain/interfaces"
	types "linkmgr/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Name           = types.Name
	ChainID        = types.ChainID
	Timestamp      = types.Timestamp
	PublicKey      = types.PublicKey
	PrivateKey     = types.PrivateKey
	LinkSession    = types.LinkSession
	SessionKey     = types.SessionKey
	SealedEnvelope = types.SealedEnvelope
	StorageData    = types.StorageData
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Handler            = interfaces.Handler
	SocketEventHandler = interfaces.SocketEventHandler
	StorageSink        = interfaces.StorageSink
	Channel            = interfaces.Channel
)

// Re-exported key sizes.
const (
	PublicKeySize  = types.PublicKeySize
	PrivateKeySize = types.PrivateKeySize
)

// Re-exported constructors and parsers.
var (
	ParseName       = types.ParseName
	ParseChainID    = types.ParseChainID
	ParsePublicKey  = types.ParsePublicKey
	ParsePrivateKey = types.ParsePrivateKey
	TimestampOf     = types.TimestampOf
	NewLinkSession  = types.NewLinkSession
)

// Re-exported sentinel errors.
var (
	ErrInvalidKey     = types.ErrInvalidKey
	ErrInvalidName    = types.ErrInvalidName
	ErrInvalidChainID = types.ErrInvalidChainID
)
