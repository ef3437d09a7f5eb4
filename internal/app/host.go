package app

import (
	"github.com/rs/zerolog"

	"linkmgr/internal/domain"
	"linkmgr/internal/metrics"
	"linkmgr/internal/relay"
)

// Host is the CLI side of the manager callbacks: storage snapshots go to
// the sink and authenticated requests to OnRequest.
type Host struct {
	sink domain.StorageSink
	log  zerolog.Logger

	// OnRequest, when set, receives every authenticated request payload.
	OnRequest func(payload string)
}

var (
	_ domain.Handler            = (*Host)(nil)
	_ domain.SocketEventHandler = (*Host)(nil)
)

// NewHost returns a Host persisting to sink.
func NewHost(sink domain.StorageSink, log zerolog.Logger) *Host {
	return &Host{sink: sink, log: log.With().Str("component", "host").Logger()}
}

func (h *Host) OnIncomingRequest(payload string) {
	h.log.Info().Int("bytes", len(payload)).Msg("request received")
	if h.OnRequest != nil {
		h.OnRequest(payload)
	}
}

func (h *Host) OnStorageUpdate(storage string) {
	err := h.sink.SaveStorage(storage)
	metrics.RecordStorageWrite(err)
	if err != nil {
		h.log.Error().Err(err).Msg("persist storage")
	}
}

func (h *Host) OnSocketEvent(kind string, event any) {
	ev := h.log.Debug().Str("event", kind)
	switch e := event.(type) {
	case relay.CloseEvent:
		ev = ev.Int("code", e.Code).Bool("reconnect", e.Reconnect)
	case relay.BackoffEvent:
		ev = ev.Int("retry", e.Retry).Dur("wait", e.Wait)
	case error:
		ev = ev.Err(e)
	}
	ev.Msg("socket event")
}
