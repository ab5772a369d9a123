package netcode

import "testing"

func TestEventConstructors(t *testing.T) {
	if ev := clientConnect(5); ev.Kind != EventClientConnect || ev.ClientID != 5 {
		t.Fatalf("clientConnect(5) = %+v", ev)
	}
	if ev := clientDisconnect(6); ev.Kind != EventClientDisconnect || ev.ClientID != 6 {
		t.Fatalf("clientDisconnect(6) = %+v", ev)
	}
	if ev := clientSlotFull(); ev.Kind != EventClientSlotFull {
		t.Fatalf("clientSlotFull() = %+v", ev)
	}
	if ev := packetEvent(7, 42); ev.Kind != EventPacket || ev.ClientID != 7 || ev.PacketLen != 42 {
		t.Fatalf("packetEvent(7, 42) = %+v", ev)
	}
}

func TestServerEventString(t *testing.T) {
	if got := clientConnect(1).String(); got != "client_connect(1)" {
		t.Fatalf("String() = %q", got)
	}
	if got := packetEvent(1, 10).String(); got != "packet(1, 10)" {
		t.Fatalf("String() = %q", got)
	}
}
