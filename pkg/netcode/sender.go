package netcode

import (
	"net"

	wnc "github.com/wirepair/netcode"
)

// Send encodes payload as a Payload packet under the connection's
// server-to-client key and the server's next send sequence, and transmits it
// to the client's peer address.
func (s *Server) Send(clientID uint64, payload []byte) error {
	_, c := s.clients.findByID(clientID)
	if c == nil {
		return newError(ErrInvalidClientID, nil)
	}
	if err := s.sendPacket(c, wnc.NewPayloadPacket(payload)); err != nil {
		return err
	}
	s.metrics.txPayload.Inc()
	return nil
}

// sendPacket is the shared encode-then-transmit path used for challenges,
// payloads, and any other keyed outbound packet. send_sequence is
// incremented before every encode and never reused for the server's
// lifetime (invariant 3).
func (s *Server) sendPacket(c *connection, packet wnc.Packet) error {
	s.sendSequence++

	buf := make([]byte, MaxPacketSize)
	n, err := packet.Write(buf, s.protocolID, s.sendSequence, c.serverToClientKey)
	if err != nil {
		return newError(ErrPacketEncodeError, err)
	}

	if _, err := s.conn.WriteToUDP(buf[:n], c.addr); err != nil {
		return newError(ErrSocketError, err)
	}
	return nil
}

// sendDenied encodes and transmits a ConnectionDenied packet directly to
// addr, sealed with key, without allocating a client-table slot.
func (s *Server) sendDenied(addr *net.UDPAddr, key []byte) error {
	s.sendSequence++

	buf := make([]byte, MaxPacketSize)
	packet := &wnc.DeniedPacket{}
	n, err := packet.Write(buf, s.protocolID, s.sendSequence, key)
	if err != nil {
		return newError(ErrPacketEncodeError, err)
	}

	if _, err := s.conn.WriteToUDP(buf[:n], addr); err != nil {
		return newError(ErrSocketError, err)
	}
	return nil
}
