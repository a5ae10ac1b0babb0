package snmp

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error taxonomy. SnmpError covers generic agent-side/protocol-violation
// failures; NoSuchOID and FaultySNMPImplementation are more specific agent
// misbehaviours the operation and walk engines must detect explicitly;
// TypeFault is caller-side (bad arguments); Timeout wraps the transport's
// deadline-exceeded condition. Walk-engine propagation policy for each is
// described on WalkStream.Next in walk.go.

// SnmpError reports a generic agent-side error or a protocol-level
// invariant violation (bad varbind cardinality, unexpected error-status,
// malformed envelope).
type SnmpError struct {
	msg string
}

func (e *SnmpError) Error() string { return e.msg }

func newSnmpError(format string, args ...interface{}) error {
	return &SnmpError{msg: fmt.Sprintf(format, args...)}
}

// NoSuchOID reports that the agent has no value for a requested OID, either
// via error_status=noSuchName in the PDU or via a NoSuchObject/NoSuchInstance
// exception marker on the varbind itself.
type NoSuchOID struct {
	OID        OID
	ErrorIndex int
}

func (e *NoSuchOID) Error() string {
	if e.OID != nil {
		return fmt.Sprintf("no such object: %s", e.OID)
	}
	return fmt.Sprintf("no such object at index %d", e.ErrorIndex)
}

// FaultySNMPImplementation reports agent misbehaviour that would otherwise
// corrupt client-side walk/get state: a GETNEXT/GETBULK response OID that
// does not strictly follow the requested OID, or a GETBULK response whose
// varbind count exceeds the I6 cardinality bound.
type FaultySNMPImplementation struct {
	msg string
}

func (e *FaultySNMPImplementation) Error() string { return e.msg }

func newFaultyImplementation(format string, args ...interface{}) error {
	return &FaultySNMPImplementation{msg: fmt.Sprintf(format, args...)}
}

// TypeFault reports a caller-side error: a MultiSet value lacking a legal
// wire-type tag, or a BulkWalk oids argument that isn't a list of OIDs.
type TypeFault struct {
	msg string
}

func (e *TypeFault) Error() string { return e.msg }

func newTypeFault(format string, args ...interface{}) error {
	return &TypeFault{msg: fmt.Sprintf(format, args...)}
}

// Timeout reports that the transport did not receive a reply within the
// configured deadline. It wraps the underlying net.Error so callers can
// still type-assert down to it if needed.
type Timeout struct {
	cause error
}

func (e *Timeout) Error() string { return "snmp: timed out waiting for response: " + e.cause.Error() }

func (e *Timeout) Unwrap() error { return e.cause }

func newTimeout(cause error) error {
	return &Timeout{cause: cause}
}

// exceptionToErr maps a varbind's exception-marker value (if any) to the
// error taxonomy, for use by single-value GET-family operations.
func exceptionToErr(oid OID, tv *TypedValue) error {
	switch tv.Type { //nolint: exhaustive
	case NoSuchObject, NoSuchInstance:
		return &NoSuchOID{OID: oid}
	}
	return nil
}

// wrap annotates err with msg via pkg/errors.Wrap, returning nil when err
// is nil.
func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
