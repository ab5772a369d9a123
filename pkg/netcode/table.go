package netcode

import "net"

// table is the fixed-capacity client slot vector described in spec §4.2.
// Slot indices are stable for the lifetime of a connection; a nil entry is
// an empty slot. Linear scans are acceptable up to a few thousand slots.
type table struct {
	slots []*connection
}

func newTable(maxClients int) *table {
	return &table{slots: make([]*connection, maxClients)}
}

func (t *table) len() int {
	return len(t.slots)
}

func (t *table) at(i int) *connection {
	return t.slots[i]
}

func (t *table) findByAddr(addr *net.UDPAddr) (int, *connection) {
	for i, c := range t.slots {
		if c != nil && addrEqual(c.addr, addr) {
			return i, c
		}
	}
	return -1, nil
}

func (t *table) findByID(id uint64) (int, *connection) {
	for i, c := range t.slots {
		if c != nil && c.clientID == id {
			return i, c
		}
	}
	return -1, nil
}

// insert places c in the first empty slot, returning its index, or -1 if the
// table is full.
func (t *table) insert(c *connection) int {
	for i, s := range t.slots {
		if s == nil {
			t.slots[i] = c
			return i
		}
	}
	return -1
}

func (t *table) remove(i int) {
	t.slots[i] = nil
}

func addrEqual(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return false
	}
	return a.IP.Equal(b.IP) && a.Port == b.Port && a.Zone == b.Zone
}
