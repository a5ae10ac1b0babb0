package snmp

import (
	"encoding/hex"
	"log"
	"time"
)

// SessionTrace defines a structure for handling trace events raised by a
// Session and by the walk engine built on top of it.
type SessionTrace struct {
	// ConnectStart is called before establishing a network connection to an agent.
	ConnectStart func(config *SessionConfig)

	// ConnectDone is called when the network connection attempt completes, with err indicating
	// whether it was successful.
	ConnectDone func(config *SessionConfig, err error, d time.Duration)

	// Error is called after an error condition has been detected.
	Error func(location string, config *SessionConfig, err error)

	// Warn is called when the walk engine recovers from agent misbehaviour in
	// errors=warn mode (a non-increasing OID terminated a base subtree).
	Warn func(location string, config *SessionConfig, msg string)

	// WriteDone is called after a packet has been written
	WriteDone func(config *SessionConfig, output []byte, err error, d time.Duration)

	// ReadDone is called after a read has completed
	ReadDone func(config *SessionConfig, input []byte, err error, d time.Duration)
}

// DefaultLoggingHooks provides default logging hooks to report errors and warnings.
var DefaultLoggingHooks = &SessionTrace{
	Error: func(location string, config *SessionConfig, err error) {
		log.Printf("SNMP-Error context:%s target:%s err:%v\n", location, config.address, err)
	},
	Warn: func(location string, config *SessionConfig, msg string) {
		log.Printf("SNMP-Warning context:%s target:%s msg:%s\n", location, config.address, msg)
	},
}

// MetricLoggingHooks provides a set of hooks that log metrics.
var MetricLoggingHooks = &SessionTrace{
	ConnectDone: func(config *SessionConfig, err error, d time.Duration) {
		log.Printf("SNMP-ConnectDone target:%s err:%v took:%dms\n", config.address, err, d.Milliseconds())
	},
	Error: DefaultLoggingHooks.Error,
	Warn:  DefaultLoggingHooks.Warn,
	WriteDone: func(config *SessionConfig, output []byte, err error, d time.Duration) {
		log.Printf("SNMP-WriteDone target:%s err:%v took:%dms\n", config.address, err, d.Milliseconds())
	},
	ReadDone: func(config *SessionConfig, input []byte, err error, d time.Duration) {
		log.Printf("SNMP-ReadDone target:%s err:%v took:%dms\n", config.address, err, d.Milliseconds())
	},
}

// DiagnosticLoggingHooks provides a set of hooks that log all events with all data.
var DiagnosticLoggingHooks = &SessionTrace{
	ConnectStart: func(config *SessionConfig) {
		log.Printf("SNMP-ConnectStart target:%s\n", config.address)
	},
	ConnectDone: MetricLoggingHooks.ConnectDone,
	Error:       DefaultLoggingHooks.Error,
	Warn:        DefaultLoggingHooks.Warn,
	WriteDone: func(config *SessionConfig, output []byte, err error, d time.Duration) {
		log.Printf("SNMP-WriteDone target:%s err:%v took:%dms data:%s\n", config.address, err, d.Milliseconds(), hex.EncodeToString(output))
	},
	ReadDone: func(config *SessionConfig, input []byte, err error, d time.Duration) {
		log.Printf("SNMP-ReadDone target:%s err:%v took:%dms data:%s\n", config.address, err, d.Milliseconds(), hex.EncodeToString(input))
	},
}

// NoOpLoggingHooks provides a set of hooks that do nothing.
var NoOpLoggingHooks = &SessionTrace{
	ConnectStart: func(config *SessionConfig) {},
	ConnectDone:  func(config *SessionConfig, err error, d time.Duration) {},
	Error:        func(location string, config *SessionConfig, err error) {},
	Warn:         func(location string, config *SessionConfig, msg string) {},
	WriteDone:    func(config *SessionConfig, output []byte, err error, d time.Duration) {},
	ReadDone:     func(config *SessionConfig, input []byte, err error, d time.Duration) {},
}
