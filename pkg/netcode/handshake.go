package netcode

import (
	"net"
	"time"

	wnc "github.com/wirepair/netcode"
)

// ingressOnce performs a single non-blocking receive and, if a datagram was
// read, routes it to the handshake engine or the connection FSM. gotDatagram
// is false only on WouldBlock, which NextEvent's ingress loop uses to know
// when to fall through to the timer phase.
func (s *Server) ingressOnce(out []byte) (ev *ServerEvent, gotDatagram bool, err error) {
	s.conn.SetReadDeadline(time.Now())

	n, addr, rerr := s.conn.ReadFromUDP(s.scratch)
	if rerr != nil {
		if isWouldBlock(rerr) {
			return nil, false, nil
		}
		return nil, false, newError(ErrSocketError, rerr)
	}
	if n == 0 {
		// An empty datagram from anyone alters no state and yields no event.
		return nil, true, nil
	}

	_, conn := s.clients.findByAddr(addr)
	if conn == nil {
		ev = s.handleConnectionRequest(addr, s.scratch[:n], out)
		return ev, true, nil
	}

	ev = s.handlePacket(conn, s.scratch[:n], out)
	return ev, true, nil
}

// handleConnectionRequest implements §4.3's validate_connect_request and
// admission policy. A failure at any validation step is dropped silently
// (§7): no slot, no reply, no event, so a forged datagram cannot be
// distinguished from packet loss.
func (s *Server) handleConnectionRequest(addr *net.UDPAddr, data []byte, out []byte) *ServerEvent {
	if s.denylist != nil && s.denylist.Denied(addr.IP) {
		s.metrics.deniedByList.Inc()
		return nil
	}

	packet := wnc.NewPacket(data)
	if packet == nil || packet.GetType() != wnc.ConnectionRequest {
		return nil
	}

	timestamp := uint64(time.Now().Unix())
	if err := packet.Read(data, len(data), s.protocolID, timestamp, nil, s.connectKey[:], s.allowedPackets, nil); err != nil {
		s.logger.Debug().Err(err).Stringer("addr", addr).Msg("rejected connection request")
		s.metrics.rejectedRequests.Inc()
		return nil
	}

	requestPacket, ok := packet.(*wnc.RequestPacket)
	if !ok || requestPacket.Token == nil {
		return nil
	}
	token := requestPacket.Token

	if !s.versionAllowed(token.UserData) {
		s.metrics.rejectedByVersionGate.Inc()
		return nil
	}

	// Replay of an identical ConnectionRequest for a client already in
	// PendingResponse is a retransmission: re-send the challenge, don't
	// allocate a second slot.
	if _, existing := s.clients.findByID(token.ClientId); existing != nil {
		if existing.state == statePendingResponse {
			existing.retry.lastRetry = 0
			existing.retry.retryCount++
			s.sendChallenge(existing, token)
		}
		return nil
	}

	conn := newConnection(s.time, token.ClientId, addr, token.ServerKey, token.ClientKey)
	if s.clients.insert(conn) < 0 {
		if err := s.sendDenied(addr, token.ServerKey); err != nil {
			s.logger.Warn().Err(err).Msg("failed to send connection denied")
		}
		s.metrics.slotFull.Inc()
		return clientSlotFull()
	}

	s.sendChallenge(conn, token)
	s.metrics.admitted.Inc()
	s.metrics.geo.observeConnect(addr.IP)

	s.logger.Info().Uint64("client_id", conn.clientID).Stringer("addr", addr).Msg("client pending response")
	return clientConnect(conn.clientID)
}

func (s *Server) sendChallenge(c *connection, token *wnc.ConnectTokenPrivate) {
	s.challengeSequence++

	challenge := wnc.NewChallengeToken(token.ClientId)
	buf := challenge.Write(token.UserData)

	if err := wnc.EncryptChallengeToken(buf, s.challengeSequence, s.challengeKey[:]); err != nil {
		s.logger.Error().Err(err).Msg("failed to encrypt challenge token")
		return
	}

	packet := &wnc.ChallengePacket{
		ChallengeTokenSequence: s.challengeSequence,
		ChallengeTokenData:     buf,
	}
	if err := s.sendPacket(c, packet); err != nil {
		s.logger.Error().Err(err).Uint64("client_id", c.clientID).Msg("failed to send challenge")
	}
}

// handlePacket implements the response-handling and steady-state rows of the
// connection FSM table in §4.4, for a datagram attributed to an existing
// slot.
func (s *Server) handlePacket(c *connection, data []byte, out []byte) *ServerEvent {
	decoded := wnc.NewPacket(data)
	if decoded == nil {
		c.state = stateDisconnected
		return clientDisconnect(c.clientID)
	}

	if err := decoded.Read(data, len(data), s.protocolID, uint64(time.Now().Unix()), c.clientToServerKey, nil, s.allowedPackets, c.replay); err != nil {
		c.state = stateDisconnected
		s.metrics.decodeFailures.Inc()
		return clientDisconnect(c.clientID)
	}

	switch c.state {
	case stateConnected, stateIdle:
		switch p := decoded.(type) {
		case *wnc.PayloadPacket:
			c.enterIdle(s.time)
			n := copy(out, p.PayloadData)
			s.metrics.rxPayload.Inc()
			return packetEvent(c.clientID, n)
		case *wnc.KeepAlivePacket:
			c.enterIdle(s.time)
			return nil
		case *wnc.DisconnectPacket:
			c.state = stateDisconnected
			return clientDisconnect(c.clientID)
		default:
			s.logger.Debug().Uint8("type", decoded.GetType()).Msg("unexpected packet in idle state")
			c.state = stateDisconnected
			return clientDisconnect(c.clientID)
		}
	case statePendingResponse:
		resp, ok := decoded.(*wnc.ResponsePacket)
		if !ok {
			c.state = stateDisconnected
			return clientDisconnect(c.clientID)
		}

		tokenBuf, err := wnc.DecryptChallengeToken(resp.ChallengeTokenData, resp.ChallengeTokenSequence, s.challengeKey[:])
		if err != nil {
			c.state = stateDisconnected
			return clientDisconnect(c.clientID)
		}
		token, err := wnc.ReadChallengeToken(tokenBuf)
		if err != nil {
			c.state = stateDisconnected
			return clientDisconnect(c.clientID)
		}

		copy(out[:wnc.USER_DATA_BYTES], token.UserData.Bytes())
		c.enterIdle(s.time)

		s.logger.Info().Uint64("client_id", token.ClientId).Msg("client connected")
		return clientConnect(token.ClientId)
	default:
		// Disconnected/TimedOut slots are reclaimed on the next timer tick;
		// any further datagram for them is simply ignored.
		return nil
	}
}

// tick runs the per-client liveness/retry check described in §4.4's table
// and retry policy. remove reports whether the slot should be cleared.
func (s *Server) tick(c *connection) (remove bool, ev *ServerEvent) {
	switch c.state {
	case statePendingResponse:
		if s.time-c.retry.lastUpdate > s.inactivityTimeout {
			// The client never finished the handshake; the host was
			// already notified at admission, so this is silent.
			s.metrics.pendingTimedOut.Inc()
			return true, nil
		}
		// The client drives its own connect-token retry; the server only
		// re-challenges in response to a duplicate request (handled in
		// handleConnectionRequest), so there is nothing to retransmit here.
		return false, nil

	case stateIdle:
		if s.time-c.retry.lastUpdate > s.inactivityTimeout {
			s.metrics.idleTimedOut.Inc()
			return true, clientDisconnect(c.clientID)
		}
		return false, nil

	case stateDisconnected, stateTimedOut:
		return true, nil

	default:
		return false, nil
	}
}

func (s *Server) versionAllowed(userData *wnc.Buffer) bool {
	if s.minVersion == "" {
		return true
	}
	return versionGate(s.minVersion, userData.Bytes())
}
