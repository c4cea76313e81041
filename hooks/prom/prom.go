// Package prom exports playstate hook events as Prometheus metrics.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/playstate"
)

// Label values.
const (
	Hit   = "hit"
	Miss  = "miss"
	Found = "found"
	Empty = "default"
)

// Hooks is a playstate.Hooks backed by Prometheus collectors.
type Hooks struct {
	CacheLookupsTotal        *prometheus.CounterVec
	ReadThroughTotal         *prometheus.CounterVec
	CorruptRowsTotal         prometheus.Counter
	WritesTotal              prometheus.Counter
	WriteDurationSeconds     prometheus.Histogram
	WriteFailuresTotal       prometheus.Counter
	SelfHealTotal            *prometheus.CounterVec
	ProviderSetRejectedTotal prometheus.Counter
	GenErrorsTotal           *prometheus.CounterVec
	InvalidateOutagesTotal   prometheus.Counter
}

var _ playstate.Hooks = (*Hooks)(nil)

// New builds the collectors and registers them with reg. A nil reg leaves them
// unregistered.
func New(reg prometheus.Registerer) (*Hooks, error) {
	h := &Hooks{
		CacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playstate_cache_lookups_total",
			Help: "Cumulative number of Get cache lookups, by result.",
		}, []string{"result"}),
		ReadThroughTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playstate_read_through_total",
			Help: "Cumulative number of cache misses resolved against the backend, by outcome.",
		}, []string{"outcome"}),
		CorruptRowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playstate_corrupt_rows_total",
			Help: "Cumulative number of stored rows that failed to decode.",
		}),
		WritesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playstate_writes_total",
			Help: "Cumulative number of committed write transactions.",
		}),
		WriteDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "playstate_write_duration_seconds",
			Help:    "Duration of committed writes, including the wait for the write gate.",
			Buckets: prometheus.DefBuckets,
		}),
		WriteFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playstate_write_failures_total",
			Help: "Cumulative number of write transactions that failed and were rolled back.",
		}),
		SelfHealTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playstate_self_heal_total",
			Help: "Cumulative number of shared cache entries dropped on read, by reason.",
		}, []string{"reason"}),
		ProviderSetRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playstate_provider_set_rejected_total",
			Help: "Cumulative number of cache provider writes rejected under pressure.",
		}),
		GenErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playstate_gen_errors_total",
			Help: "Cumulative number of generation store errors, by operation.",
		}, []string{"op"}),
		InvalidateOutagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playstate_invalidate_outages_total",
			Help: "Cumulative number of saves whose cache entry could not be invalidated.",
		}),
	}
	if reg == nil {
		return h, nil
	}
	for _, c := range []prometheus.Collector{
		h.CacheLookupsTotal, h.ReadThroughTotal, h.CorruptRowsTotal,
		h.WritesTotal, h.WriteDurationSeconds, h.WriteFailuresTotal,
		h.SelfHealTotal, h.ProviderSetRejectedTotal, h.GenErrorsTotal,
		h.InvalidateOutagesTotal,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) CacheLookup(hit bool) {
	if hit {
		h.CacheLookupsTotal.WithLabelValues(Hit).Inc()
	} else {
		h.CacheLookupsTotal.WithLabelValues(Miss).Inc()
	}
}

func (h *Hooks) ReadThrough(_ playstate.Key, found bool) {
	if found {
		h.ReadThroughTotal.WithLabelValues(Found).Inc()
	} else {
		h.ReadThroughTotal.WithLabelValues(Empty).Inc()
	}
}

func (h *Hooks) CorruptRow(playstate.Key, error) { h.CorruptRowsTotal.Inc() }

func (h *Hooks) WriteCommitted(_ playstate.Key, elapsed time.Duration) {
	h.WritesTotal.Inc()
	h.WriteDurationSeconds.Observe(elapsed.Seconds())
}

func (h *Hooks) WriteFailed(playstate.Key, error) { h.WriteFailuresTotal.Inc() }

func (h *Hooks) SelfHeal(_ string, reason string) {
	h.SelfHealTotal.WithLabelValues(reason).Inc()
}

func (h *Hooks) ProviderSetRejected(string) { h.ProviderSetRejectedTotal.Inc() }

func (h *Hooks) GenSnapshotError(string, error) {
	h.GenErrorsTotal.WithLabelValues("snapshot").Inc()
}

func (h *Hooks) GenBumpError(string, error) {
	h.GenErrorsTotal.WithLabelValues("bump").Inc()
}

func (h *Hooks) InvalidateOutage(string, error, error) { h.InvalidateOutagesTotal.Inc() }
