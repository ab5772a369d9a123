// Package ncmetrics extends github.com/VictoriaMetrics/metrics with a
// geohash-bucketed counter for per-connection origin tracking, adapted from
// the Atlas metrics helper for use by a single server process rather than a
// shared registry.
package ncmetrics

import (
	"net"
	"strings"

	"github.com/VictoriaMetrics/metrics"
	"github.com/mmcloughlin/geohash"
)

// GeoLookup resolves an IP address to a latitude/longitude pair, backed by
// an IP2Location-style database. ok is false when the address has no known
// location (private ranges, unallocated blocks, or no database loaded).
type GeoLookup interface {
	Lookup(ip net.IP) (lat, lng float64, ok bool)
}

// GeoCounter is like a *metrics.Counter, but split by location using
// geohashes of the configured precision level.
type GeoCounter struct {
	level uint
	ctr   []*metrics.Counter
	unk   *metrics.Counter
	set   *metrics.Set
	base  string
	arg   string
	db    GeoLookup
}

// NewGeoCounter creates a new GeoCounter writing to the metrics in set named
// name, with level characters of geohash precision. No database is
// configured initially; until SetDatabase is called, every observation is
// counted as unknown.
func NewGeoCounter(set *metrics.Set, name string, level uint) *GeoCounter {
	base, arg := splitName(name)
	return &GeoCounter{
		level: level,
		ctr:   make([]*metrics.Counter, 1<<(5*level)),
		unk:   set.NewCounter(formatName(base, arg, "geohash", "")),
		set:   set,
		base:  base,
		arg:   arg,
	}
}

// SetDatabase installs (or clears, with nil) the lookup database used to
// resolve observed IPs to coordinates.
func (c *GeoCounter) SetDatabase(db GeoLookup) {
	c.db = db
}

// Observe increments the counter bucket for ip's resolved location, or the
// unknown counter if no database is configured or the address isn't found.
func (c *GeoCounter) Observe(ip net.IP) {
	if c.db == nil {
		c.unk.Inc()
		return
	}
	lat, lng, ok := c.db.Lookup(ip)
	if !ok {
		c.unk.Inc()
		return
	}
	c.counter(lat, lng).Inc()
}

func (c *GeoCounter) counter(lat, lng float64) *metrics.Counter {
	h := geohash.EncodeIntWithPrecision(lat, lng, c.level*5)
	if int(h) >= len(c.ctr) {
		return c.unk
	}
	m := c.ctr[h]
	if m == nil {
		m = c.set.NewCounter(formatName(c.base, c.arg, "geohash", geohash.EncodeWithPrecision(lat, lng, c.level)))
		c.ctr[h] = m
	}
	return m
}

func splitName(name string) (base, arg string) {
	if n := len(name); n != 0 {
		base = name
		for i, r := range base {
			if r == '{' {
				if j := len(base) - 1; j > i && base[j] == '}' {
					base, arg = base[:i], base[i+1:j]
					break
				}
			}
		}
	}
	return
}

func formatName(base, arg string, args ...string) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteByte('{')
	if arg != "" {
		b.WriteString(arg)
	}
	for i := 1; i < len(args); i += 2 {
		if arg != "" || i > 1 {
			b.WriteByte(',')
		}
		b.WriteString(args[i-1])
		b.WriteString("=\"")
		b.WriteString(args[i])
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}
