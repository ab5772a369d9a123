package netcode

import (
	"io"
	"net"

	"github.com/VictoriaMetrics/metrics"

	"github.com/cryonet/netcode-server/pkg/ncmetrics"
)

// Metrics holds every counter the server core exports. It is safe to share a
// single Metrics between a Server and an HTTP handler that serves
// WritePrometheus, since *metrics.Set is already safe for concurrent use —
// the Server itself must still only be driven from one goroutine.
type Metrics struct {
	set *metrics.Set

	admitted              *metrics.Counter
	slotFull              *metrics.Counter
	rejectedRequests      *metrics.Counter
	rejectedByVersionGate *metrics.Counter
	deniedByList          *metrics.Counter
	decodeFailures        *metrics.Counter
	pendingTimedOut       *metrics.Counter
	idleTimedOut          *metrics.Counter
	rxPayload             *metrics.Counter
	txPayload             *metrics.Counter

	geo *geoCounters
}

// NewMetrics creates a Metrics instance registered in its own *metrics.Set
// (so it can be exposed independent of the default global registry, the way
// pkg/nspkt's listener keeps its own counters). prefix is prepended to every
// metric name; pass "" to use this package's defaults.
func NewMetrics(prefix string) *Metrics {
	if prefix == "" {
		prefix = "netcode_server"
	}
	set := metrics.NewSet()
	return &Metrics{
		set:                   set,
		admitted:              set.NewCounter(prefix + `_connections_total{result="admitted"}`),
		slotFull:              set.NewCounter(prefix + `_connections_total{result="slot_full"}`),
		rejectedRequests:      set.NewCounter(prefix + `_connections_total{result="rejected"}`),
		rejectedByVersionGate: set.NewCounter(prefix + `_connections_total{result="version_gate"}`),
		deniedByList:          set.NewCounter(prefix + `_connections_total{result="denylisted"}`),
		decodeFailures:        set.NewCounter(prefix + `_decode_failures_total`),
		pendingTimedOut:       set.NewCounter(prefix + `_timeouts_total{state="pending_response"}`),
		idleTimedOut:          set.NewCounter(prefix + `_timeouts_total{state="idle"}`),
		rxPayload:             set.NewCounter(prefix + `_payload_total{dir="rx"}`),
		txPayload:             set.NewCounter(prefix + `_payload_total{dir="tx"}`),
		geo:                   newGeoCounters(set, prefix+`_connections_geo`),
	}
}

// WritePrometheus writes this server's metrics, in Prometheus text exposition
// format, to w.
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

// SetGeoDatabase enables per-connection geo bucketing using the provided
// ip2x lookup database. Safe to call with nil to disable it again.
func (m *Metrics) SetGeoDatabase(db ncmetrics.GeoLookup) {
	m.geo.setDatabase(db)
}

// geoCounters wraps pkg/ncmetrics to split admitted connections by a coarse
// geohash derived from the peer's public IP, when a geo database is
// configured.
type geoCounters struct {
	ctr *ncmetrics.GeoCounter
}

func newGeoCounters(set *metrics.Set, name string) *geoCounters {
	return &geoCounters{ctr: ncmetrics.NewGeoCounter(set, name, 2)}
}

func (g *geoCounters) setDatabase(db ncmetrics.GeoLookup) {
	g.ctr.SetDatabase(db)
}

func (g *geoCounters) observeConnect(ip net.IP) {
	g.ctr.Observe(ip)
}
