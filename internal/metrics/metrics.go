// Package metrics exposes prometheus collectors for the channel and the
// request pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes.
const (
	ResultOK            = "ok"
	ResultUnknownSender = "unknown_sender"
	ResultDecryptError  = "decrypt_error"
	ResultMalformed     = "malformed"
)

var (
	registerOnce sync.Once

	channelEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkmgr",
			Subsystem: "channel",
			Name:      "events_total",
			Help:      "Socket events observed on the relay channel.",
		},
		[]string{"event"},
	)
	reconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "linkmgr",
			Subsystem: "channel",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts scheduled after an unrequested close or failed dial.",
		},
	)
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkmgr",
			Name:      "requests_total",
			Help:      "Inbound sealed requests by outcome.",
		},
		[]string{"result"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "linkmgr",
			Name:      "request_duration_seconds",
			Help:      "Time to unseal, authenticate and persist an inbound request.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"},
	)
	storageWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkmgr",
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Storage snapshots written by the host sink.",
		},
		[]string{"success"},
	)
	sessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "linkmgr",
			Subsystem: "store",
			Name:      "sessions",
			Help:      "Link sessions currently stored.",
		},
	)
)

// Register adds the collectors to the default registry once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(channelEvents, reconnects, requests, requestDuration, storageWrites, sessions)
	})
}

// RecordChannelEvent counts a socket event kind.
func RecordChannelEvent(kind string) {
	Register()
	channelEvents.WithLabelValues(kind).Inc()
}

// RecordReconnect counts a scheduled reconnect.
func RecordReconnect() {
	Register()
	reconnects.Inc()
}

// RecordRequest counts a handled request and its latency.
func RecordRequest(result string, d time.Duration) {
	Register()
	requests.WithLabelValues(result).Inc()
	requestDuration.WithLabelValues(result).Observe(d.Seconds())
}

// RecordStorageWrite counts a storage write and whether it succeeded.
func RecordStorageWrite(err error) {
	Register()
	storageWrites.WithLabelValues(strconv.FormatBool(err == nil)).Inc()
}

// SetSessions publishes the stored session count.
func SetSessions(n int) {
	Register()
	sessions.Set(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
