package netcode

import (
	"net"
	"testing"
)

func addr(t *testing.T, s string) *net.UDPAddr {
	t.Helper()
	a, err := net.ResolveUDPAddr("udp", s)
	if err != nil {
		t.Fatalf("resolve %q: %v", s, err)
	}
	return a
}

func TestTableInsertFindRemove(t *testing.T) {
	tb := newTable(2)

	c1 := newConnection(0, 1, addr(t, "1.2.3.4:1000"), []byte("a"), []byte("b"))
	c2 := newConnection(0, 2, addr(t, "1.2.3.4:2000"), []byte("c"), []byte("d"))

	i1 := tb.insert(c1)
	if i1 < 0 {
		t.Fatalf("insert c1 failed")
	}
	i2 := tb.insert(c2)
	if i2 < 0 {
		t.Fatalf("insert c2 failed")
	}
	if i1 == i2 {
		t.Fatalf("expected distinct slots, got %d and %d", i1, i2)
	}

	c3 := newConnection(0, 3, addr(t, "1.2.3.4:3000"), []byte("e"), []byte("f"))
	if i3 := tb.insert(c3); i3 != -1 {
		t.Fatalf("expected table full, got slot %d", i3)
	}

	if idx, found := tb.findByID(2); found == nil || idx != i2 {
		t.Fatalf("findByID(2) = %d, %v; want %d, non-nil", idx, found, i2)
	}
	if idx, found := tb.findByAddr(addr(t, "1.2.3.4:1000")); found == nil || idx != i1 {
		t.Fatalf("findByAddr = %d, %v; want %d, non-nil", idx, found, i1)
	}
	if _, found := tb.findByID(99); found != nil {
		t.Fatalf("expected no match for unknown id")
	}

	tb.remove(i1)
	if _, found := tb.findByID(1); found != nil {
		t.Fatalf("expected slot 1 to be empty after remove")
	}
	if i3 := tb.insert(c3); i3 != i1 {
		t.Fatalf("expected insert to reuse freed slot %d, got %d", i1, i3)
	}
}

func TestAddrEqual(t *testing.T) {
	a := addr(t, "1.2.3.4:1000")
	b := addr(t, "1.2.3.4:1000")
	c := addr(t, "1.2.3.4:1001")

	if !addrEqual(a, b) {
		t.Fatalf("expected equal addresses to match")
	}
	if addrEqual(a, c) {
		t.Fatalf("expected different ports to not match")
	}
	if addrEqual(nil, b) || addrEqual(a, nil) {
		t.Fatalf("expected nil address to never match")
	}
}
