package ncdb

import (
	"net"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestDenyListAddDeniedRemove(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "denylist.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	cur, tgt, err := db.Version()
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if cur != tgt {
		t.Fatalf("expected Open to migrate to latest version, got %d want %d", cur, tgt)
	}

	ip := net.ParseIP("203.0.113.5")
	if db.Denied(ip) {
		t.Fatalf("expected unlisted address to not be denied")
	}

	if err := db.Add(ip, "abuse report"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !db.Denied(ip) {
		t.Fatalf("expected listed address to be denied")
	}

	entries, err := db.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Reason != "abuse report" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	if err := db.Remove(ip); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if db.Denied(ip) {
		t.Fatalf("expected removed address to no longer be denied")
	}
}

func TestDenyListReopenPreservesVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "denylist.db")

	db1, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db1.Add(net.ParseIP("198.51.100.7"), ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	db1.Close()

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()

	if !db2.Denied(net.ParseIP("198.51.100.7")) {
		t.Fatalf("expected denylist entry to survive reopen")
	}
}
