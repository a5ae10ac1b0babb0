package snmp

import "context"

// NativeVarBind mirrors VarBind with the value unwrapped to a host-native
// Go scalar, and the OID rendered in canonical dotted-decimal form.
type NativeVarBind struct {
	OID   string
	Value interface{}
}

// NativeBulkResult mirrors BulkResult with every value unwrapped.
type NativeBulkResult struct {
	Scalars map[string]interface{}
	Listing []NativeVarBind
}

// Native wraps a Session, unwrapping every TypedValue it returns to a
// host-native Go scalar: OctetString/Opaque to []byte, Integer/Counter/
// Gauge/TimeTicks to an integer, IPAddress to a dotted-quad string, and
// ObjectIdentifier to a dotted-decimal string. It performs no I/O of its
// own — every call is a thin pass-through to the wrapped Session.
type Native struct {
	session Session
}

// NewNative builds a Native facade over an existing Session.
func NewNative(session Session) *Native {
	return &Native{session: session}
}

func nativeValue(tv *TypedValue) interface{} {
	switch tv.Type {
	case OctetString, Opaque:
		return tv.Value.([]byte)
	case Integer:
		return tv.Value.(int64)
	case Counter32, Gauge32, TimeTicks:
		return tv.Value.(uint32)
	case Counter64:
		return tv.Value.(uint64)
	case IPAddress:
		return tv.String()
	case ObjectIdentifier:
		return tv.Value.(OID).String()
	case Null:
		return nil
	default:
		// NoSuchObject/NoSuchInstance/EndOfMibView: no native scalar
		// representation, so surface the human-readable marker.
		return tv.String()
	}
}

func nativeVarBind(vb VarBind) NativeVarBind {
	return NativeVarBind{OID: vb.OID.String(), Value: nativeValue(vb.TypedValue)}
}

func (n *Native) Get(ctx context.Context, oid string) (interface{}, error) {
	tv, err := n.session.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	return nativeValue(tv), nil
}

func (n *Native) MultiGet(ctx context.Context, oids []string) ([]interface{}, error) {
	values, err := n.session.MultiGet(ctx, oids)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(values))
	for i, tv := range values {
		out[i] = nativeValue(tv)
	}
	return out, nil
}

func (n *Native) GetNext(ctx context.Context, oid string) (*NativeVarBind, error) {
	vb, err := n.session.GetNext(ctx, oid)
	if err != nil {
		return nil, err
	}
	nvb := nativeVarBind(*vb)
	return &nvb, nil
}

func (n *Native) MultiGetNext(ctx context.Context, oids []string) ([]NativeVarBind, error) {
	vbs, err := n.session.MultiGetNext(ctx, oids)
	if err != nil {
		return nil, err
	}
	out := make([]NativeVarBind, len(vbs))
	for i, vb := range vbs {
		out[i] = nativeVarBind(vb)
	}
	return out, nil
}

// Set assigns value (still a TypedValue — the wire type tag is required to
// build the SetRequest and has no native-scalar equivalent) and returns the
// agent's echoed value unwrapped.
func (n *Native) Set(ctx context.Context, oid string, value *TypedValue) (interface{}, error) {
	tv, err := n.session.Set(ctx, oid, value)
	if err != nil {
		return nil, err
	}
	return nativeValue(tv), nil
}

func (n *Native) MultiSet(ctx context.Context, pairs []SetPair) (map[string]interface{}, error) {
	values, err := n.session.MultiSet(ctx, pairs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(values))
	for oid, tv := range values {
		out[oid] = nativeValue(tv)
	}
	return out, nil
}

func (n *Native) BulkGet(ctx context.Context, scalars, repeaters []string, maxListSize int) (*NativeBulkResult, error) {
	result, err := n.session.BulkGet(ctx, scalars, repeaters, maxListSize)
	if err != nil {
		return nil, err
	}
	out := &NativeBulkResult{
		Scalars: make(map[string]interface{}, len(result.Scalars)),
		Listing: make([]NativeVarBind, len(result.Listing)),
	}
	for oid, tv := range result.Scalars {
		out.Scalars[oid] = nativeValue(tv)
	}
	for i, vb := range result.Listing {
		out.Listing[i] = nativeVarBind(vb)
	}
	return out, nil
}

// NativeWalkStream mirrors WalkStream, unwrapping each varbind as it is pulled.
type NativeWalkStream struct {
	stream *WalkStream
}

func (s *NativeWalkStream) Next(ctx context.Context) (NativeVarBind, bool, error) {
	vb, ok, err := s.stream.Next(ctx)
	if err != nil || !ok {
		return NativeVarBind{}, ok, err
	}
	return nativeVarBind(vb), true, nil
}

func (n *Native) MultiWalk(ctx context.Context, oids []string) (*NativeWalkStream, error) {
	stream, err := n.session.MultiWalk(ctx, oids)
	if err != nil {
		return nil, err
	}
	return &NativeWalkStream{stream: stream}, nil
}

func (n *Native) BulkWalk(ctx context.Context, oids []string) (*NativeWalkStream, error) {
	stream, err := n.session.BulkWalk(ctx, oids)
	if err != nil {
		return nil, err
	}
	return &NativeWalkStream{stream: stream}, nil
}

func (n *Native) Table(ctx context.Context, base string, numBaseNodes int) ([]map[string]interface{}, error) {
	rows, err := n.session.Table(ctx, base, numBaseNodes)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		nr := make(map[string]interface{}, len(row))
		for k, tv := range row {
			nr[k] = nativeValue(tv)
		}
		out[i] = nr
	}
	return out, nil
}
