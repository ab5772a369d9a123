// Package ncdb implements sqlite3-backed storage for the server's address
// denylist. It intentionally holds nothing about connection or session
// state: that lives only in memory, per the transport's no-persistence
// design.
package ncdb

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
)

// DB stores the address denylist in a sqlite3 database.
type DB struct {
	x *sqlx.DB
}

// Open opens a DB from the provided sqlite3 filename, migrating it to the
// latest schema version.
func Open(name string) (*DB, error) {
	x, err := sqlx.Connect("sqlite3", (&url.URL{
		Path: name,
		RawQuery: (url.Values{
			"_journal":      {"WAL"},
			"_cache_size":   {"-8000"},
			"_busy_timeout": {"6000"},
		}).Encode(),
	}).String())
	if err != nil {
		return nil, err
	}
	db := &DB{x}

	_, required, err := db.Version()
	if err != nil {
		x.Close()
		return nil, err
	}
	if err := db.MigrateUp(context.Background(), required); err != nil {
		x.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.x.Close()
}

// Denied reports whether ip is currently denylisted.
func (db *DB) Denied(ip net.IP) bool {
	var n int
	if err := db.x.Get(&n, `SELECT COUNT(1) FROM denylist WHERE ip = ?`, ip.String()); err != nil {
		return false
	}
	return n > 0
}

// Add denylists ip with an optional human-readable reason.
func (db *DB) Add(ip net.IP, reason string) error {
	_, err := db.x.Exec(`
		INSERT OR REPLACE INTO denylist (ip, reason, added) VALUES (?, ?, ?)
	`, ip.String(), reason, time.Now().Unix())
	return err
}

// Remove clears ip from the denylist, if present.
func (db *DB) Remove(ip net.IP) error {
	_, err := db.x.Exec(`DELETE FROM denylist WHERE ip = ?`, ip.String())
	return err
}

// List returns every currently denylisted address.
func (db *DB) List() ([]DenyEntry, error) {
	var rows []struct {
		IP     string `db:"ip"`
		Reason string `db:"reason"`
		Added  int64  `db:"added"`
	}
	if err := db.x.Select(&rows, `SELECT ip, reason, added FROM denylist ORDER BY added`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]DenyEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, DenyEntry{
			IP:     net.ParseIP(r.IP),
			Reason: r.Reason,
			Added:  time.Unix(r.Added, 0),
		})
	}
	return out, nil
}

// DenyEntry is a single denylisted address and why it was added.
type DenyEntry struct {
	IP     net.IP
	Reason string
	Added  time.Time
}
