package netcode

import (
	"fmt"
	"net/netip"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config contains the configuration for cmd/netcode-server. The env struct
// tag contains the environment variable name and the default value if
// missing, or empty (if not ?=).
type Config struct {
	// The address to listen on for the game transport.
	Addr netip.AddrPort `env:"NETCODE_ADDR=:40000"`

	// The maximum number of clients the listening endpoint will admit at once.
	MaxClients int `env:"NETCODE_MAX_CLIENTS=256"`

	// The protocol ID bound into every packet's associated data. Clients and
	// servers must agree on this value out of band.
	ProtocolID uint64 `env:"NETCODE_PROTOCOL_ID=0"`

	// The 32-byte private key shared with the token authority, base64
	// encoded.
	PrivateKey string `env:"NETCODE_PRIVATE_KEY"`

	// The wall-time budget, since a connection's last inbound progress,
	// after which it is declared dead. If zero, DefaultInactivityTimeout is
	// used.
	InactivityTimeout time.Duration `env:"NETCODE_INACTIVITY_TIMEOUT=5s"`

	// Minimum client build version to admit, checked against a version tag
	// embedded in the connect token's user data. If empty, no version gate
	// is applied.
	MinClientVersion string `env:"NETCODE_MIN_CLIENT_VERSION"`

	// Path to a sqlite3 database of denylisted addresses. If empty, no
	// denylist is consulted.
	DenylistDB string `env:"NETCODE_DENYLIST_DB"`

	// Path to an IP2Location database used for geo-bucketed connection
	// metrics. If empty, geo metrics report everything as unknown.
	IP2Location string `env:"NETCODE_IP2LOCATION"`

	// The address to serve the debug/metrics monitor page on. If empty, the
	// monitor is disabled.
	MonitorAddr string `env:"NETCODE_MONITOR_ADDR"`

	// The minimum log level (e.g., trace, debug, info, warn, error, fatal).
	LogLevel zerolog.Level `env:"NETCODE_LOG_LEVEL=info"`

	// Whether to use pretty (console-formatted) logs on stdout.
	LogStdoutPretty bool `env:"NETCODE_LOG_STDOUT_PRETTY"`

	// For sd-notify.
	NotifySocket string `env:"NOTIFY_SOCKET"`
}

// UnmarshalEnv unmarshals an array of "KEY=VALUE" environment variable
// strings into c, setting default values as appropriate. If incremental is
// true, defaults are only applied to vars that are present but empty, not to
// vars that are entirely missing.
func (c *Config) UnmarshalEnv(es []string, incremental bool) error {
	em := map[string]string{}
	for _, e := range es {
		if strings.HasPrefix(e, "NETCODE_") || strings.HasPrefix(e, "NOTIFY_SOCKET=") {
			if k, v, ok := strings.Cut(e, "="); ok {
				em[k] = v
			}
		}
	}

	cv := reflect.ValueOf(c).Elem()
	for _, ctf := range reflect.VisibleFields(cv.Type()) {
		env, ok := ctf.Tag.Lookup("env")
		if !ok {
			continue
		}

		var unsettable bool
		key, val, _ := strings.Cut(env, "=")
		if strings.HasSuffix(key, "?") {
			key = strings.TrimSuffix(key, "?")
			unsettable = true
		}

		if v, exists := em[key]; exists {
			if unsettable || v != "" {
				val = v
			}
			delete(em, key)
		} else if incremental {
			continue
		}

		cvf := cv.FieldByName(ctf.Name)
		switch cvf.Interface().(type) {
		case string:
			cvf.SetString(val)
		case int, int8, int16, int32, int64:
			if val == "" {
				cvf.SetInt(0)
			} else if v, err := strconv.ParseInt(val, 10, 64); err == nil {
				cvf.SetInt(v)
			} else {
				return fmt.Errorf("env %s (%T): parse %q: %w", key, cvf.Interface(), val, err)
			}
		case uint, uint8, uint16, uint32, uint64:
			if val == "" {
				cvf.SetUint(0)
			} else if v, err := strconv.ParseUint(val, 10, 64); err == nil {
				cvf.SetUint(v)
			} else {
				return fmt.Errorf("env %s (%T): parse %q: %w", key, cvf.Interface(), val, err)
			}
		case bool:
			if val == "" {
				cvf.SetBool(false)
			} else if v, err := strconv.ParseBool(val); err == nil {
				cvf.SetBool(v)
			} else {
				return fmt.Errorf("env %s (%T): parse %q: %w", key, cvf.Interface(), val, err)
			}
		case zerolog.Level:
			if v, err := zerolog.ParseLevel(val); err == nil {
				cvf.Set(reflect.ValueOf(v))
			} else {
				return fmt.Errorf("env %s (%T): parse %q: %w", key, cvf.Interface(), val, err)
			}
		case time.Duration:
			if v, err := time.ParseDuration(val); err == nil {
				cvf.Set(reflect.ValueOf(v))
			} else {
				return fmt.Errorf("env %s (%T): parse %q: %w", key, cvf.Interface(), val, err)
			}
		case netip.AddrPort:
			if val == "" {
				cvf.Set(reflect.ValueOf(netip.AddrPort{}))
			} else if v, err := netip.ParseAddrPort(val); err == nil {
				cvf.Set(reflect.ValueOf(v))
			} else if v, err1 := netip.ParseAddrPort("[::]" + val); val[0] == ':' && err1 == nil {
				cvf.Set(reflect.ValueOf(v))
			} else {
				return fmt.Errorf("env %s (%T): parse %q: %w", key, cvf.Interface(), val, err)
			}
		default:
			return fmt.Errorf("unhandled type %T (%s)", cvf.Interface(), env)
		}
	}
	for key, val := range em {
		if val != "" {
			return fmt.Errorf("unknown environment variable %q", key)
		}
	}
	return nil
}
