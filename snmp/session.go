package snmp

import (
	"context"
	"net"
	"time"
)

// VarBind is a golang-typed variable binding: an OID paired with the value
// an agent returned for it (or an exception marker — see TypedValue.IsException).
type VarBind struct {
	OID        OID
	TypedValue *TypedValue
}

// PDU is the golang-typed response to a request: the echoed request id, the
// agent's error-status/error-index (or, for a BulkGetRequest's request PDU,
// non-repeaters/max-repetitions), and the resolved variable bindings.
type PDU struct {
	RequestID   int32
	Error       int
	ErrorIndex  int
	VarbindList []VarBind
}

// SetPair is one OID/value assignment for MultiSet.
type SetPair struct {
	OID   string
	Value *TypedValue
}

// BulkResult is the result of a BulkGet: the non-repeating scalars keyed by
// OID, and the repeating listing in the order the agent returned it.
type BulkResult struct {
	Scalars map[string]*TypedValue
	Listing []VarBind
}

// Session represents a connection to a single SNMP agent. A Session is not
// safe for concurrent use by multiple goroutines: each operation shares the
// session's one underlying socket and request-response cycle.
type Session interface {
	// Get retrieves the value of a single OID.
	Get(ctx context.Context, oid string) (*TypedValue, error)

	// MultiGet retrieves the values of multiple OIDs in a single GetRequest.
	MultiGet(ctx context.Context, oids []string) ([]*TypedValue, error)

	// GetNext retrieves the varbind lexicographically following oid.
	GetNext(ctx context.Context, oid string) (*VarBind, error)

	// MultiGetNext retrieves, for each oid, the varbind lexicographically
	// following it, in a single GetNextRequest.
	MultiGetNext(ctx context.Context, oids []string) ([]VarBind, error)

	// Set assigns value to oid and returns the agent's echoed value.
	Set(ctx context.Context, oid string, value *TypedValue) (*TypedValue, error)

	// MultiSet assigns multiple OID/value pairs in a single SetRequest,
	// returning the agent's echoed values keyed by OID.
	MultiSet(ctx context.Context, pairs []SetPair) (map[string]*TypedValue, error)

	// BulkGet issues a single GetBulkRequest for the given non-repeating
	// scalars and repeating oids. maxListSize caps how many successors are
	// requested per repeater; 0 selects the session's configured default.
	BulkGet(ctx context.Context, scalars, repeaters []string, maxListSize int) (*BulkResult, error)

	// MultiWalk returns a lazy stream of every varbind strictly below any of
	// the given base oids, fetched a round at a time via GetNextRequest.
	MultiWalk(ctx context.Context, oids []string) (*WalkStream, error)

	// BulkWalk returns a lazy stream like MultiWalk, fetched a round at a
	// time via GetBulkRequest for higher throughput on deep subtrees.
	BulkWalk(ctx context.Context, oids []string) (*WalkStream, error)

	// Table walks base via BulkWalk and folds the column-major result into
	// row-major maps; each row is keyed by the single sub-identifier
	// numBaseNodes+1 positions from the end of its OIDs (see Table in table.go).
	Table(ctx context.Context, base string, numBaseNodes int) ([]map[string]*TypedValue, error)

	// Close releases the session's underlying connection.
	Close() error
}

// sessionImpl is the concrete Session implementation: one connected socket
// shared by every operation the session performs.
type sessionImpl struct {
	config *SessionConfig
	conn   net.Conn
	ids    IDSource
}

func (s *sessionImpl) Close() error {
	return s.conn.Close()
}

func (s *sessionImpl) Get(ctx context.Context, oid string) (*TypedValue, error) {
	values, err := s.MultiGet(ctx, []string{oid})
	if err != nil {
		return nil, err
	}
	return values[0], nil
}

func (s *sessionImpl) MultiGet(ctx context.Context, oids []string) ([]*TypedValue, error) {
	parsed, err := parseOIDs(oids)
	if err != nil {
		return nil, err
	}

	pdu, err := s.executeRequest(ctx, getMessage, parsed, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	if err := checkErrorStatus(pdu); err != nil {
		return nil, err
	}
	if len(pdu.VarbindList) != len(parsed) {
		return nil, newSnmpError("unexpected response: expected %d varbind(s), got %d", len(parsed), len(pdu.VarbindList))
	}

	values := make([]*TypedValue, len(pdu.VarbindList))
	for i, vb := range pdu.VarbindList {
		if err := exceptionToErr(vb.OID, vb.TypedValue); err != nil {
			return nil, err
		}
		values[i] = vb.TypedValue
	}
	return values, nil
}

func (s *sessionImpl) GetNext(ctx context.Context, oid string) (*VarBind, error) {
	vbs, err := s.MultiGetNext(ctx, []string{oid})
	if err != nil {
		return nil, err
	}
	return &vbs[0], nil
}

func (s *sessionImpl) MultiGetNext(ctx context.Context, oids []string) ([]VarBind, error) {
	parsed, err := parseOIDs(oids)
	if err != nil {
		return nil, err
	}

	vbs, err := s.getNext(ctx, parsed)
	if err != nil {
		return nil, err
	}

	for i, vb := range vbs {
		// An EndOfMibView (or, non-conformantly, NoSuchObject/NoSuchInstance)
		// exception marker echoes the requested oid rather than naming a
		// successor, so it is exempt from the strict-increase check.
		if vb.TypedValue.IsException() {
			continue
		}
		if parsed[i].Compare(vb.OID) >= 0 {
			return nil, newFaultyImplementation("agent returned non-increasing oid: requested %s, got %s", parsed[i], vb.OID)
		}
	}
	return vbs, nil
}

// getNext issues a single GetNextRequest and returns the raw varbind list,
// with no successor-ordering check applied. MultiGetNext layers its own
// hard strict-successor check on top of this for direct callers; the walk
// engine's nextFetcher calls this directly so that a non-increasing oid is
// handed to WalkStream as data, letting its errMode-aware logic (walk.go)
// decide whether that is a warning or a fatal error — never this method.
func (s *sessionImpl) getNext(ctx context.Context, oids []OID) ([]VarBind, error) {
	pdu, err := s.executeRequest(ctx, getNextMessage, oids, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	if err := checkErrorStatus(pdu); err != nil {
		return nil, err
	}
	if len(pdu.VarbindList) != len(oids) {
		return nil, newSnmpError("unexpected response: expected %d varbind(s), got %d", len(oids), len(pdu.VarbindList))
	}
	return pdu.VarbindList, nil
}

func (s *sessionImpl) Set(ctx context.Context, oid string, value *TypedValue) (*TypedValue, error) {
	result, err := s.MultiSet(ctx, []SetPair{{OID: oid, Value: value}})
	if err != nil {
		return nil, err
	}
	parsed, err := ParseOID(oid)
	if err != nil {
		return nil, err
	}
	return result[parsed.String()], nil
}

func (s *sessionImpl) MultiSet(ctx context.Context, pairs []SetPair) (map[string]*TypedValue, error) {
	oids := make([]OID, len(pairs))
	values := make([]*TypedValue, len(pairs))
	for i, p := range pairs {
		parsed, err := ParseOID(p.OID)
		if err != nil {
			return nil, err
		}
		if p.Value == nil || !p.Value.HasWireType() {
			return nil, newTypeFault("value for oid %s has no legal wire type", p.OID)
		}
		oids[i] = parsed
		values[i] = p.Value
	}

	pdu, err := s.executeRequest(ctx, setMessage, oids, values, 0, 0)
	if err != nil {
		return nil, err
	}
	if err := checkErrorStatus(pdu); err != nil {
		return nil, err
	}
	if len(pdu.VarbindList) != len(pairs) {
		return nil, newSnmpError("unexpected response: expected %d varbind(s), got %d", len(pairs), len(pdu.VarbindList))
	}

	out := make(map[string]*TypedValue, len(pdu.VarbindList))
	for _, vb := range pdu.VarbindList {
		out[vb.OID.String()] = vb.TypedValue
	}
	return out, nil
}

func (s *sessionImpl) BulkGet(ctx context.Context, scalars, repeaters []string, maxListSize int) (*BulkResult, error) {
	scalarOIDs, err := parseOIDs(scalars)
	if err != nil {
		return nil, err
	}
	repeaterOIDs, err := parseOIDs(repeaters)
	if err != nil {
		return nil, err
	}
	if len(scalarOIDs) == 0 && len(repeaterOIDs) == 0 {
		return nil, newSnmpError("bulkget requires at least one scalar or repeater oid")
	}
	if maxListSize <= 0 {
		maxListSize = s.config.maxListSize
	}

	allOIDs := make([]OID, 0, len(scalarOIDs)+len(repeaterOIDs))
	allOIDs = append(allOIDs, scalarOIDs...)
	allOIDs = append(allOIDs, repeaterOIDs...)

	pdu, err := s.executeRequest(ctx, getBulkMessage, allOIDs, nil, len(scalarOIDs), maxListSize)
	if err != nil {
		return nil, err
	}
	if err := checkErrorStatus(pdu); err != nil {
		return nil, err
	}

	repeating := len(allOIDs) - len(scalarOIDs)
	expectedMax := len(scalarOIDs) + maxListSize*repeating
	if len(pdu.VarbindList) > expectedMax {
		return nil, newFaultyImplementation("bulk response carries %d varbind(s), more than the %d the request allows", len(pdu.VarbindList), expectedMax)
	}

	scalarCount := len(scalarOIDs)
	if scalarCount > len(pdu.VarbindList) {
		scalarCount = len(pdu.VarbindList)
	}

	result := &BulkResult{
		Scalars: make(map[string]*TypedValue, scalarCount),
		Listing: make([]VarBind, len(pdu.VarbindList)-scalarCount),
	}
	for _, vb := range pdu.VarbindList[:scalarCount] {
		result.Scalars[vb.OID.String()] = vb.TypedValue
	}
	copy(result.Listing, pdu.VarbindList[scalarCount:])
	return result, nil
}

func (s *sessionImpl) MultiWalk(ctx context.Context, oids []string) (*WalkStream, error) {
	if oids == nil {
		return nil, newTypeFault("multiwalk oids must be a list of oids")
	}
	bases, err := parseOIDs(oids)
	if err != nil {
		return nil, err
	}
	return newWalkStream(bases, newNextFetcher(s), s.config), nil
}

func (s *sessionImpl) BulkWalk(ctx context.Context, oids []string) (*WalkStream, error) {
	if oids == nil {
		return nil, newTypeFault("bulkwalk oids must be a list of oids")
	}
	bases, err := parseOIDs(oids)
	if err != nil {
		return nil, err
	}
	return newWalkStream(bases, newBulkFetcher(s, s.config.bulkSize), s.config), nil
}

func (s *sessionImpl) Table(ctx context.Context, base string, numBaseNodes int) ([]map[string]*TypedValue, error) {
	stream, err := s.BulkWalk(ctx, []string{base})
	if err != nil {
		return nil, err
	}
	var varbinds []VarBind
	for {
		vb, ok, err := stream.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		varbinds = append(varbinds, vb)
	}
	return Table(varbinds, numBaseNodes), nil
}

// checkErrorStatus maps a response PDU's error-status/error-index to the
// error taxonomy, enriching a noSuchName status with the offending OID when
// the index falls within the returned varbind list.
func checkErrorStatus(pdu *PDU) error {
	switch pdu.Error {
	case 0:
		return nil
	case 2:
		var oid OID
		if pdu.ErrorIndex >= 1 && pdu.ErrorIndex <= len(pdu.VarbindList) {
			oid = pdu.VarbindList[pdu.ErrorIndex-1].OID
		}
		return &NoSuchOID{OID: oid, ErrorIndex: pdu.ErrorIndex}
	default:
		return newSnmpError("agent reported error-status %d at index %d", pdu.Error, pdu.ErrorIndex)
	}
}

func parseOIDs(oids []string) ([]OID, error) {
	parsed := make([]OID, len(oids))
	for i, o := range oids {
		p, err := ParseOID(o)
		if err != nil {
			return nil, err
		}
		parsed[i] = p
	}
	return parsed, nil
}

// executeRequest runs one request/response exchange, retrying on timeout up
// to config.retries times. Each attempt gets its own deadline derived from
// ctx so a caller-supplied cancellation still aborts retries promptly.
func (s *sessionImpl) executeRequest(ctx context.Context, mType messageType, oids []OID, values []*TypedValue, nonRepeaters, maxRepetitions int) (*PDU, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rctx, cancel := context.WithTimeout(ctx, s.config.timeout)
		defer cancel()

		deadline, _ := rctx.Deadline()
		if err := s.conn.SetDeadline(deadline); err != nil {
			return nil, err
		}

		requestID := s.ids.NextID()
		out, err := buildPacket(s.config.version, s.config.community, mType, requestID, oids, values, nonRepeaters, maxRepetitions)
		if err != nil {
			return nil, err
		}

		if err := s.writePacket(out); err != nil {
			return nil, err
		}

		in, err := s.readResponse()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				s.config.trace.Error("Session.executeRequest", s.config, err)
				if attempt < s.config.retries {
					continue
				}
				return nil, newTimeout(err)
			}
			return nil, err
		}

		_, pdu, err := parsePacket(in)
		if err != nil {
			return nil, err
		}
		if pdu.RequestID != requestID {
			return nil, newFaultyImplementation("response request-id %d does not match request %d", pdu.RequestID, requestID)
		}
		return pdu, nil
	}
}

// writePacket writes a single datagram, reporting elapsed time and any
// error via the configured trace hooks.
func (s *sessionImpl) writePacket(b []byte) (err error) {
	defer func(begin time.Time) {
		s.config.trace.WriteDone(s.config, b, err, time.Since(begin))
	}(time.Now())
	_, err = s.conn.Write(b)
	return err
}

// readResponse reads a single datagram response, reporting elapsed time and
// any error (including deadline timeouts) via the configured trace hooks.
func (s *sessionImpl) readResponse() (input []byte, err error) {
	defer func(begin time.Time) {
		s.config.trace.ReadDone(s.config, input, err, time.Since(begin))
	}(time.Now())
	buf := make([]byte, maxInputBufferSize)
	n, err := s.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
