package snmp

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/imdario/mergo"
)

// SessionFactory defines a factory method for instantiating SNMP Sessions.
type SessionFactory interface {
	// NewSession instantiates an SNMP session for managing the target device.
	// target is a host, or a host:port pair; if no port is given the
	// configured Port (default 161) is appended.
	NewSession(ctx context.Context, target string, opts ...SessionOption) (Session, error)
}

// NewFactory delivers a new session factory.
func NewFactory() SessionFactory {
	return &factoryImpl{}
}

type factoryImpl struct{}

func (f *factoryImpl) NewSession(ctx context.Context, target string, opts ...SessionOption) (Session, error) {
	config := defaultConfig
	config.address = target
	for _, opt := range opts {
		opt(&config)
	}
	config.address = withPort(config.address, config.port)

	_ = mergo.Merge(config.trace, NoOpLoggingHooks)

	conn, err := newConnection(ctx, &config)
	if err != nil {
		config.trace.Error("Network Connection", &config, err)
		return nil, err
	}

	return &sessionImpl{config: &config, conn: conn, ids: config.idSource}, nil
}

// withPort appends ":port" to address if it doesn't already carry one.
func withPort(address string, port int) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(strings.TrimSuffix(address, ":"), strconv.Itoa(port))
}

// SessionOption implements options for configuring session behaviour.
type SessionOption func(*SessionConfig)

// Timeout defines the timeout for receiving a response to a request.
// Default value is 2s.
func Timeout(timeout time.Duration) SessionOption {
	return func(c *SessionConfig) { c.timeout = timeout }
}

// Retries defines the number of times an unsuccessful request will be retried.
// Default value is 0.
func Retries(value int) SessionOption {
	return func(c *SessionConfig) { c.retries = value }
}

// Network defines the transport network. Default value is udp.
func Network(value string) SessionOption {
	return func(c *SessionConfig) { c.network = value }
}

// WithVersion defines the SNMP version to use. Default value is SNMPV2C.
func WithVersion(value Version) SessionOption {
	return func(c *SessionConfig) { c.version = value }
}

// Community defines the community string to be used. Default value is public.
func Community(value string) SessionOption {
	return func(c *SessionConfig) { c.community = value }
}

// Port defines the default UDP port used when a session's target doesn't
// already name one. Default value is 161.
func Port(value int) SessionOption {
	return func(c *SessionConfig) { c.port = value }
}

// BulkSize defines the max-repetitions value used by BulkWalk's internal
// GETBULK fetcher. Default value is 10.
func BulkSize(value int) SessionOption {
	return func(c *SessionConfig) { c.bulkSize = value }
}

// MaxListSize defines the default max-repetitions value used by BulkGet
// when the caller doesn't specify one explicitly. Default value is 1.
func MaxListSize(value int) SessionOption {
	return func(c *SessionConfig) { c.maxListSize = value }
}

// ErrMode controls how MultiWalk/BulkWalk handle agent misbehaviour
// (non-increasing OIDs). See ErrModeStrict/ErrModeWarn.
type ErrMode int

const (
	// ErrModeStrict propagates FaultySNMPImplementation to the caller and
	// aborts the whole walk. This is the default, matching the reference
	// implementation's walk()/multiwalk() default.
	ErrModeStrict ErrMode = iota
	// ErrModeWarn logs the offending base and terminates only that base's
	// subtree, letting the others continue.
	ErrModeWarn
)

// WalkErrors selects the walk engine's error recovery mode.
// Default value is ErrModeStrict.
func WalkErrors(mode ErrMode) SessionOption {
	return func(c *SessionConfig) { c.errMode = mode }
}

// LoggingHooks defines a set of logging hooks to be used by the session.
// Default value is DefaultLoggingHooks.
func LoggingHooks(trace *SessionTrace) SessionOption {
	return func(c *SessionConfig) { c.trace = trace }
}

// WithIDSource overrides the request-id source. Default value is the
// process-wide source shared by all sessions; tests that need byte-exact
// request fixtures should inject a NewStaticIDSource here.
func WithIDSource(src IDSource) SessionOption {
	return func(c *SessionConfig) { c.idSource = src }
}

// Version identifies which SNMP message-format version a session speaks on
// the wire. Only SNMPV2C is implemented by the operation/walk engines;
// SNMPV1/SNMPV3 are recognised as values (so callers can fail fast / probe
// mixed-version fleets) but not otherwise supported — see spec Non-goals.
type Version int

const (
	SNMPV1  Version = 0
	SNMPV2C Version = 1
	SNMPV3  Version = 3
)

// newConnection delivers a new network connection to the address defined in
// the configuration.
func newConnection(_ context.Context, c *SessionConfig) (conn net.Conn, err error) {
	defer func(begin time.Time) {
		c.trace.ConnectDone(c, err, time.Since(begin))
	}(time.Now())
	c.trace.ConnectStart(c)
	return net.Dial(c.network, c.address)
}

// SessionConfig defines properties controlling session behaviour.
type SessionConfig struct {
	// Connection network, typically udp.
	network string
	// Network address/hostname with port, for example: 10.48.24.234:161
	address string
	// Default port appended to address when it names none.
	port int
	// SNMP version
	version Version
	// community string for v2c.
	community string
	// Timeout for receiving a response
	timeout time.Duration
	// Defines the number of times an unsuccessful request will be retried.
	retries int
	// max-repetitions used by BulkWalk's internal fetcher.
	bulkSize int
	// max-repetitions used by BulkGet when the caller passes none.
	maxListSize int
	// walk engine error recovery mode.
	errMode ErrMode
	// Trace hooks
	trace *SessionTrace
	// Request-id source.
	idSource IDSource
}

var defaultConfig = SessionConfig{
	network:     "udp",
	address:     "",
	port:        161,
	community:   "public",
	version:     SNMPV2C,
	timeout:     time.Second * 2,
	retries:     0,
	bulkSize:    10,
	maxListSize: 1,
	errMode:     ErrModeStrict,
	trace:       DefaultLoggingHooks,
	idSource:    defaultIDSource,
}
