package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/cryonet/netcode-server/pkg/netcode"
)

// metricsHandler serves the server's Prometheus metrics, gzip-compressed
// when the client advertises support for it.
func metricsHandler(m *netcode.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "private, no-cache, no-store")
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")

		if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			defer gz.Close()
			m.WritePrometheus(gz)
			return
		}
		m.WritePrometheus(w)
	})
}

// monitorHandler serves a minimal status page reporting the listener's
// bound address. It carries no live packet feed: netcode.Server exposes no
// hook for streaming packet events to another goroutine.
func monitorHandler(s *netcode.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "private, no-cache, no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<!doctype html><html><head><title>netcode-server</title></head><body>"+
			"<h1>netcode-server</h1><p>listening on %s</p><p><a href=\"/metrics\">/metrics</a></p>"+
			"</body></html>", s.LocalAddr())
	})
}
