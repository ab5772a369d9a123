package netcode

import (
	"net"

	wnc "github.com/wirepair/netcode"
)

// state is the Connection's position in the per-client automaton described
// in the connection FSM. Connected is carried as a distinct value for data
// model fidelity but is never the target of a transition: the packet
// handler treats it identically to Idle (see handlePacket).
type state uint8

const (
	statePendingResponse state = iota
	stateConnected
	stateIdle
	stateDisconnected
	stateTimedOut
)

func (s state) String() string {
	switch s {
	case statePendingResponse:
		return "pending_response"
	case stateConnected:
		return "connected"
	case stateIdle:
		return "idle"
	case stateDisconnected:
		return "disconnected"
	case stateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// hasRetry reports whether s carries a retry substructure. Only
// PendingResponse and Idle do; this is the constructor-enforced invariant
// Design Notes §9 calls for in place of a discriminated union.
func (s state) hasRetry() bool {
	return s == statePendingResponse || s == stateIdle
}

// retry tracks liveness and retransmission pacing for a connection sitting
// in PendingResponse or Idle.
type retry struct {
	lastUpdate float64 // time of the most recent valid inbound packet
	lastRetry  float64 // time since the most recent server-initiated retransmission
	retryCount uint32
}

func newRetry(now float64) retry {
	return retry{lastUpdate: now}
}

// connection is one occupied client-table slot.
type connection struct {
	clientID uint64
	addr     *net.UDPAddr

	serverToClientKey []byte // encrypts outbound packets to this client
	clientToServerKey []byte // decrypts inbound packets from this client

	state state
	retry retry

	replay *wnc.ReplayProtection
}

func newConnection(now float64, clientID uint64, addr *net.UDPAddr, serverToClientKey, clientToServerKey []byte) *connection {
	return &connection{
		clientID:          clientID,
		addr:              addr,
		serverToClientKey: serverToClientKey,
		clientToServerKey: clientToServerKey,
		state:             statePendingResponse,
		retry:             newRetry(now),
		replay:            wnc.NewReplayProtection(),
	}
}

// enterIdle transitions the connection to Idle, resetting its retry clock to
// now. Used both on a successful handshake response and on every subsequent
// valid payload/keep-alive while already connected.
func (c *connection) enterIdle(now float64) {
	c.state = stateIdle
	c.retry = newRetry(now)
}
