package netcode

import (
	"net"
	"testing"
	"time"
)

type fakeDenyChecker struct {
	calls  int
	denied map[string]bool
}

func (f *fakeDenyChecker) Denied(ip net.IP) bool {
	f.calls++
	return f.denied[ip.String()]
}

func TestCachedDenyListCachesClearResults(t *testing.T) {
	backend := &fakeDenyChecker{denied: map[string]bool{}}
	cached := NewCachedDenyList(backend, time.Minute)

	ip := net.ParseIP("1.2.3.4")
	if cached.Denied(ip) {
		t.Fatalf("expected clear address to not be denied")
	}
	if cached.Denied(ip) {
		t.Fatalf("expected clear address to still not be denied")
	}
	if backend.calls != 1 {
		t.Fatalf("expected backend to be consulted once due to caching, got %d calls", backend.calls)
	}
}

func TestCachedDenyListNeverCachesDenied(t *testing.T) {
	backend := &fakeDenyChecker{denied: map[string]bool{"5.6.7.8": true}}
	cached := NewCachedDenyList(backend, time.Minute)

	ip := net.ParseIP("5.6.7.8")
	if !cached.Denied(ip) {
		t.Fatalf("expected denied address to be denied")
	}
	if !cached.Denied(ip) {
		t.Fatalf("expected denied address to be denied on second check")
	}
	if backend.calls != 2 {
		t.Fatalf("expected every check of a denied address to hit backend, got %d calls", backend.calls)
	}
}

func TestCachedDenyListExpiresEntries(t *testing.T) {
	backend := &fakeDenyChecker{denied: map[string]bool{}}
	cached := NewCachedDenyList(backend, time.Millisecond)

	ip := net.ParseIP("9.9.9.9")
	cached.Denied(ip)
	time.Sleep(5 * time.Millisecond)
	cached.Denied(ip)

	if backend.calls != 2 {
		t.Fatalf("expected cache entry to expire and re-check backend, got %d calls", backend.calls)
	}
}
