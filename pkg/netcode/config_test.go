package netcode

import "testing"

func TestConfigUnmarshalEnvDefaults(t *testing.T) {
	var c Config
	if err := c.UnmarshalEnv(nil, false); err != nil {
		t.Fatalf("UnmarshalEnv: %v", err)
	}
	if c.MaxClients != 256 {
		t.Fatalf("MaxClients = %d, want 256", c.MaxClients)
	}
	if c.Addr.Port() != 40000 {
		t.Fatalf("Addr port = %d, want 40000", c.Addr.Port())
	}
	if c.LogLevel.String() != "info" {
		t.Fatalf("LogLevel = %v, want info", c.LogLevel)
	}
}

func TestConfigUnmarshalEnvOverrides(t *testing.T) {
	var c Config
	err := c.UnmarshalEnv([]string{
		"NETCODE_MAX_CLIENTS=10",
		"NETCODE_PROTOCOL_ID=12345",
		"NETCODE_MIN_CLIENT_VERSION=1.4.0",
		"NETCODE_LOG_STDOUT_PRETTY=true",
	}, false)
	if err != nil {
		t.Fatalf("UnmarshalEnv: %v", err)
	}
	if c.MaxClients != 10 {
		t.Fatalf("MaxClients = %d, want 10", c.MaxClients)
	}
	if c.ProtocolID != 12345 {
		t.Fatalf("ProtocolID = %d, want 12345", c.ProtocolID)
	}
	if c.MinClientVersion != "1.4.0" {
		t.Fatalf("MinClientVersion = %q, want 1.4.0", c.MinClientVersion)
	}
	if !c.LogStdoutPretty {
		t.Fatalf("expected LogStdoutPretty to be true")
	}
}

func TestConfigUnmarshalEnvRejectsUnknownVar(t *testing.T) {
	var c Config
	err := c.UnmarshalEnv([]string{"NETCODE_NOT_A_REAL_FIELD=1"}, false)
	if err == nil {
		t.Fatalf("expected error for unknown env var")
	}
}

func TestConfigUnmarshalEnvIncrementalKeepsUnsetFields(t *testing.T) {
	var c Config
	if err := c.UnmarshalEnv([]string{"NETCODE_MAX_CLIENTS=10"}, false); err != nil {
		t.Fatalf("UnmarshalEnv: %v", err)
	}
	if err := c.UnmarshalEnv([]string{"NETCODE_PROTOCOL_ID=7"}, true); err != nil {
		t.Fatalf("incremental UnmarshalEnv: %v", err)
	}
	if c.MaxClients != 10 {
		t.Fatalf("expected incremental update to preserve MaxClients, got %d", c.MaxClients)
	}
	if c.ProtocolID != 7 {
		t.Fatalf("ProtocolID = %d, want 7", c.ProtocolID)
	}
}
