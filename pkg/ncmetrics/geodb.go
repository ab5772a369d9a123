package ncmetrics

import (
	"net"
	"net/netip"
	"os"
	"sync"

	"github.com/pg9182/ip2x"
)

// IP2LocationDB adapts a file-backed IP2Location database to GeoLookup,
// adapted from Atlas's ip2xMgr to serve one read-mostly lookup instead of a
// hot-reloadable shared registry.
type IP2LocationDB struct {
	mu   sync.RWMutex
	file *os.File
	db   *ip2x.DB
}

// LoadIP2LocationDB opens and validates an IP2Location BIN database file.
func LoadIP2LocationDB(path string) (*IP2LocationDB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	db, err := ip2x.New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &IP2LocationDB{file: f, db: db}, nil
}

// Close releases the underlying file handle.
func (m *IP2LocationDB) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return nil
	}
	return m.file.Close()
}

// Lookup implements GeoLookup.
func (m *IP2LocationDB) Lookup(ip net.IP) (lat, lng float64, ok bool) {
	addr, ok := netip.AddrFromSlice(ip.To16())
	if !ok {
		return 0, 0, false
	}

	m.mu.RLock()
	db := m.db
	m.mu.RUnlock()
	if db == nil {
		return 0, 0, false
	}

	rec, err := db.Lookup(addr)
	if err != nil {
		return 0, 0, false
	}
	lat, latOK := rec.GetFloat(ip2x.Latitude)
	lng, lngOK := rec.GetFloat(ip2x.Longitude)
	if !latOK || !lngOK {
		return 0, 0, false
	}
	return lat, lng, true
}
