// Command netcode-server runs the connectionless UDP transport's listening
// endpoint, draining handshake and payload events into a host loop.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"net/http/pprof"

	"github.com/hashicorp/go-envparse"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	wnc "github.com/wirepair/netcode"

	"github.com/cryonet/netcode-server/pkg/ncdb"
	"github.com/cryonet/netcode-server/pkg/ncmetrics"
	"github.com/cryonet/netcode-server/pkg/netcode"
)

var opt struct {
	Help bool
}

func init() {
	pflag.BoolVarP(&opt.Help, "help", "h", false, "Show this help text")
}

func main() {
	pflag.Parse()

	if pflag.NArg() > 1 || opt.Help {
		fmt.Printf("usage: %s [options] [env_file]\n\noptions:\n%s\nnote: if env_file is provided, config from the environment is ignored\n", os.Args[0], pflag.CommandLine.FlagUsages())
		if opt.Help {
			os.Exit(2)
		}
		os.Exit(0)
	}

	var e []string
	if pflag.NArg() == 0 {
		e = os.Environ()
	} else {
		x, err := readEnv(pflag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: read env file: %v\n", err)
			os.Exit(1)
		}
		e = x
		if v, ok := os.LookupEnv("NOTIFY_SOCKET"); ok {
			e = append(e, "NOTIFY_SOCKET="+v)
		}
	}

	var c netcode.Config
	if err := c.UnmarshalEnv(e, false); err != nil {
		fmt.Fprintf(os.Stderr, "error: parse config: %v\n", err)
		os.Exit(1)
	}

	log := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		if !c.LogStdoutPretty {
			w.NoColor = true
		}
	})).Level(c.LogLevel).With().Timestamp().Logger()

	key, err := decodePrivateKey(c.PrivateKey)
	if err != nil {
		log.Fatal().Err(err).Msg("parse private key")
	}

	met := netcode.NewMetrics("netcode_server")

	var denylist netcode.DenyChecker
	if c.DenylistDB != "" {
		db, err := ncdb.Open(c.DenylistDB)
		if err != nil {
			log.Fatal().Err(err).Msg("open denylist db")
		}
		defer db.Close()
		denylist = netcode.NewCachedDenyList(db, 30*time.Second)
	}

	if c.IP2Location != "" {
		geodb, err := ncmetrics.LoadIP2LocationDB(c.IP2Location)
		if err != nil {
			log.Warn().Err(err).Msg("load ip2location database, geo metrics disabled")
		} else {
			defer geodb.Close()
			met.SetGeoDatabase(geodb)
		}
	}

	srv, err := netcode.NewServer(c.Addr.String(), c.MaxClients, c.ProtocolID, key, netcode.Options{
		InactivityTimeout: c.InactivityTimeout.Seconds(),
		Denylist:          denylist,
		MinClientVersion:  c.MinClientVersion,
		Metrics:           met,
		Logger:            log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("start listener")
	}
	defer srv.Close()
	log.Info().Stringer("addr", srv.LocalAddr()).Msg("listening")

	if c.MonitorAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		mux.Handle("/metrics", metricsHandler(met))
		mux.Handle("/", monitorHandler(srv))
		go func() {
			log.Warn().Str("addr", c.MonitorAddr).Msg("running insecure debug monitor")
			if err := http.ListenAndServe(c.MonitorAddr, mux); err != nil {
				log.Error().Err(err).Msg("debug monitor exited")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runLoop(ctx, srv, log)
}

// runLoop drives the server's Update/NextEvent cycle from a single
// goroutine, as required by the transport's single-threaded design.
func runLoop(ctx context.Context, srv *netcode.Server, log zerolog.Logger) {
	buf := make([]byte, netcode.MaxPacketSize)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		default:
		}

		now := time.Now()
		srv.Update(now.Sub(last).Seconds(), 0)
		last = now

		ev, err := srv.NextEvent(buf)
		if err != nil {
			log.Error().Err(err).Msg("event loop error")
			continue
		}
		if ev == nil {
			time.Sleep(time.Millisecond)
			continue
		}

		switch ev.Kind {
		case netcode.EventClientConnect:
			log.Info().Uint64("client_id", ev.ClientID).Msg("client connected")
		case netcode.EventClientDisconnect:
			log.Info().Uint64("client_id", ev.ClientID).Msg("client disconnected")
		case netcode.EventClientSlotFull:
			log.Warn().Msg("client table full, rejected connection")
		case netcode.EventPacket:
			log.Debug().Uint64("client_id", ev.ClientID).Int("len", ev.PacketLen).Msg("received payload")
		}
	}
}

func decodePrivateKey(s string) ([wnc.KEY_BYTES]byte, error) {
	var key [wnc.KEY_BYTES]byte
	if s == "" {
		return key, fmt.Errorf("NETCODE_PRIVATE_KEY is required")
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("decode base64: %w", err)
	}
	if len(raw) != wnc.KEY_BYTES {
		return key, fmt.Errorf("want %d bytes, got %d", wnc.KEY_BYTES, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

func readEnv(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := envparse.Parse(f)
	if err != nil {
		return nil, err
	}

	r := make([]string, 0, len(m))
	for k, v := range m {
		r = append(r, k+"="+v)
	}
	return r, nil
}
