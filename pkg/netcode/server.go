// Package netcode implements the server side of a connectionless,
// authenticated, encrypted UDP transport: a listening endpoint that admits
// clients through a three-packet handshake, multiplexes many peers on one
// socket, and delivers payload datagrams with replay protection.
//
// The packet codec, connect/challenge token sealing, and AEAD primitives are
// external collaborators provided by github.com/wirepair/netcode; this
// package owns only the server state machine described in spec.md: the
// handshake engine, the per-client connection automaton, timeout-driven
// liveness, retry pacing, and the client table.
package netcode

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	wnc "github.com/wirepair/netcode"

	"github.com/cryonet/netcode-server/pkg/ncsock"
)

// MaxPacketSize is the minimum out-buffer capacity NextEvent requires.
const MaxPacketSize = wnc.MAX_PACKET_BYTES

// RetryInterval is how often, at minimum, a pending/idle connection's
// server-initiated retransmission may repeat.
const RetryInterval = 1.0

// DefaultInactivityTimeout is the default wall-time budget since the last
// inbound progress on a connection after which it is declared dead.
const DefaultInactivityTimeout = 5.0

// Server is the per-listening-endpoint transport core described in spec §3.
// It is single-threaded and cooperative: every exported method must be
// called from one goroutine, the same one driving Update and NextEvent. The
// server does not lock internally — unlike the teacher's own
// goroutine-per-client design, the host is responsible for serializing
// access (spec §5).
type Server struct {
	logger zerolog.Logger

	conn       *net.UDPConn
	listenAddr *net.UDPAddr

	protocolID uint64
	connectKey [wnc.KEY_BYTES]byte

	clients *table

	time float64

	sendSequence      uint64
	challengeSequence uint64
	challengeKey      [wnc.KEY_BYTES]byte

	eventCursor int

	inactivityTimeout float64

	allowedPackets []byte

	denylist   DenyChecker
	minVersion string

	metrics *Metrics

	scratch []byte
}

// DenyChecker is consulted before any cryptographic work is spent on a
// connection request from addr. Implemented by *ncdb.DB and CachedDenyList.
type DenyChecker interface {
	Denied(ip net.IP) bool
}

// Options carries the knobs beyond the ones spec.md's constructor names,
// all of which have sane zero-value defaults.
type Options struct {
	InactivityTimeout float64     // seconds; 0 means DefaultInactivityTimeout
	Denylist          DenyChecker // optional, consulted in admission
	MinClientVersion  string      // optional semver floor, see versiongate.go
	Metrics           *Metrics    // optional; a private registry is used if nil
	Logger            zerolog.Logger

	// RecvBufferSize and SendBufferSize request larger kernel socket
	// buffers (SO_RCVBUF/SO_SNDBUF on unix, the net.UDPConn buffer setters
	// elsewhere). Zero leaves the OS default.
	RecvBufferSize int
	SendBufferSize int
}

// NewServer binds a UDP socket on localAddr and constructs a Server able to
// hold up to maxClients concurrently handshaking or connected clients.
func NewServer(localAddr string, maxClients int, protocolID uint64, privateKey [wnc.KEY_BYTES]byte, opts Options) (*Server, error) {
	addr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, newError(ErrAddrNotAvailable, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		switch {
		case errors.Is(err, syscall.EADDRINUSE):
			return nil, newError(ErrAddrInUse, err)
		case errors.Is(err, syscall.EADDRNOTAVAIL):
			return nil, newError(ErrAddrNotAvailable, err)
		default:
			return nil, newError(ErrSocketError, err)
		}
	}

	if opts.RecvBufferSize > 0 || opts.SendBufferSize > 0 {
		if err := ncsock.SetBuffers(conn, opts.RecvBufferSize, opts.SendBufferSize); err != nil {
			opts.Logger.Warn().Err(err).Msg("failed to tune socket buffer sizes")
		}
	}

	challengeKeyBuf, err := wnc.GenerateKey()
	if err != nil {
		conn.Close()
		return nil, newError(ErrInternal, fmt.Errorf("generate challenge key: %w", err))
	}
	var challengeKey [wnc.KEY_BYTES]byte
	copy(challengeKey[:], challengeKeyBuf)

	inactivity := opts.InactivityTimeout
	if inactivity <= 0 {
		inactivity = DefaultInactivityTimeout
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics("")
	}

	allowed := make([]byte, wnc.ConnectionNumPackets)
	allowed[wnc.ConnectionRequest] = 1
	allowed[wnc.ConnectionResponse] = 1
	allowed[wnc.ConnectionKeepAlive] = 1
	allowed[wnc.ConnectionPayload] = 1
	allowed[wnc.ConnectionDisconnect] = 1

	s := &Server{
		logger:            opts.Logger.With().Str("component", "netcode").Logger(),
		conn:              conn,
		listenAddr:        conn.LocalAddr().(*net.UDPAddr),
		protocolID:        protocolID,
		connectKey:        privateKey,
		clients:           newTable(maxClients),
		challengeKey:      challengeKey,
		inactivityTimeout: inactivity,
		allowedPackets:    allowed,
		denylist:          opts.Denylist,
		minVersion:        opts.MinClientVersion,
		metrics:           metrics,
		scratch:           make([]byte, MaxPacketSize),
	}
	return s, nil
}

// LocalAddr returns the bound socket address.
func (s *Server) LocalAddr() net.Addr {
	return s.listenAddr
}

// Update advances the server's internal clock by elapsed seconds.
// maxBlock is accepted for interface fidelity with the original source,
// which defines but never uses it either; NextEvent's ingress phase is
// always non-blocking regardless.
func (s *Server) Update(elapsed float64, maxBlock time.Duration) {
	s.time += elapsed
}

// NextEvent drains at most one event: an inbound datagram's consequence, or
// a per-client timer tick. out must have capacity >= MaxPacketSize.
func (s *Server) NextEvent(out []byte) (*ServerEvent, error) {
	if len(out) < MaxPacketSize {
		return nil, newError(ErrPacketBufferTooSmall, nil)
	}

	for {
		ev, gotDatagram, err := s.ingressOnce(out)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			return ev, nil
		}
		if !gotDatagram {
			break
		}
	}

	for s.eventCursor < s.clients.len() {
		idx := s.eventCursor
		s.eventCursor++

		c := s.clients.at(idx)
		if c == nil {
			continue
		}

		remove, ev := s.tick(c)
		if remove {
			s.clients.remove(idx)
		}
		if ev != nil {
			return ev, nil
		}
	}
	s.eventCursor = 0

	return nil, nil
}

// Close releases the bound socket. The host is expected to call this on
// shutdown; per spec §5, no explicit disconnect datagrams are sent to
// peers — the protocol tolerates this via inactivity timeout.
func (s *Server) Close() error {
	return s.conn.Close()
}

func isWouldBlock(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}
