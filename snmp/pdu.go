package snmp

import (
	"encoding/asn1"

	"github.com/geoffgarside/ber"
	"github.com/pkg/errors"
)

// Shapes of the five PDUs and the outer message envelope. rawPDU/rawVarbind
// define the wire-level transport format; VarBind/PDU (in session.go) are
// their golang-typed counterparts, populated once the variable bindings'
// values have been resolved from ASN1 raw values (see unmarshalValues).

// messageType identifies which of the five PDUs a packet carries. The
// values are the context-specific, constructed BER tags from RFC 3416 §3.
type messageType byte

const (
	getMessage         messageType = 0xA0
	getNextMessage     messageType = 0xA1
	getResponseMessage messageType = 0xA2
	setMessage         messageType = 0xA3
	getBulkMessage     messageType = 0xA5
)

// rawPDU defines the pdu that is passed to/from an SNMP agent. For
// GetRequest/GetNextRequest/SetRequest/Response, Error/ErrorIndex carry
// error-status/error-index; for BulkGetRequest the same two fields are
// reinterpreted as non-repeaters/max-repetitions.
type rawPDU struct {
	RequestID   int32
	Error       int
	ErrorIndex  int
	VarbindList []rawVarbind
}

// rawVarbind is a variable binding with its value left as an ASN1 raw
// value, prior to type resolution against the SNMP data type tags.
type rawVarbind struct {
	OID   asn1.ObjectIdentifier
	Value asn1.RawValue
}

// packet defines the SNMP message envelope passed over the network:
// Sequence(version, community, pdu). The pdu is initially unmarshalled as a
// raw value so the SNMP message type tag can be swapped for the generic
// ASN1 sequence tag before its contents are unmarshalled.
type packet struct {
	Version   Version
	Community []byte
	RawPdu    asn1.RawValue
}

const maxInputBufferSize = 65535

// buildVarbindList builds the wire-level variable binding list for a
// request, given parsed OIDs and the per-OID request values. Values defaults
// to Null (the GET/GETNEXT/GETBULK placeholder) when nil.
func buildVarbindList(oids []OID, values []*TypedValue) ([]rawVarbind, error) {
	vbl := make([]rawVarbind, len(oids))
	for i, oid := range oids {
		vbl[i].OID = oidToASN1(oid)

		v := NewNull()
		if values != nil && values[i] != nil {
			v = values[i]
		}
		b, err := marshalVariable(v)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding value for oid %s", oid)
		}
		vbl[i].Value = asn1.RawValue{FullBytes: b}
	}
	return vbl, nil
}

func oidToASN1(o OID) asn1.ObjectIdentifier {
	ints := make([]int, len(o))
	for i, v := range o {
		ints[i] = int(v)
	}
	return asn1.ObjectIdentifier(ints)
}

// buildPacket assembles the full envelope bytes for a request: the PDU is
// marshalled first, its leading sequence tag is overwritten with the SNMP
// message type, then the whole thing is wrapped in the version/community
// envelope and marshalled again.
func buildPacket(version Version, community string, mType messageType, requestID int32, oids []OID, values []*TypedValue, nonRepeaters, maxRepetitions int) ([]byte, error) {
	varbinds, err := buildVarbindList(oids, values)
	if err != nil {
		return nil, err
	}

	pdu := rawPDU{
		RequestID:   requestID,
		VarbindList: varbinds,
	}
	if mType == getBulkMessage {
		pdu.Error = nonRepeaters
		pdu.ErrorIndex = maxRepetitions
	}

	b, err := ber.Marshal(pdu)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling pdu")
	}
	b[0] = byte(mType)

	p := packet{
		Version:   version,
		Community: []byte(community),
		RawPdu:    asn1.RawValue{FullBytes: b},
	}

	b, err = ber.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling packet")
	}
	return b, nil
}

// parsePacket parses the bytes returned by a request, returning the
// envelope's PDU with variable binding values resolved to TypedValues.
//
// There are three unmarshal stages. Stage 1: the envelope is unmarshalled
// but the PDU is left as a raw ASN1 value; the first byte of its raw bytes
// is swapped from the SNMP message tag to the ASN1 Sequence tag. Stage 2:
// the raw PDU and its variable bindings are unmarshalled, but each
// binding's value is left as an ASN1 raw value. Stage 3: the tag of each
// raw value determines its golang representation (unmarshalVariable).
func parsePacket(input []byte) (messageType, *PDU, error) {
	pkt := &packet{}
	if _, err := ber.Unmarshal(input, pkt); err != nil {
		return 0, nil, newSnmpError("malformed packet envelope: %v", err)
	}

	mType := messageType(pkt.RawPdu.FullBytes[0])
	// Replace SNMP PDU Type with ASN1 sequence tag.
	pkt.RawPdu.FullBytes[0] = 0x30

	raw := &rawPDU{}
	if _, err := ber.Unmarshal(pkt.RawPdu.FullBytes, raw); err != nil {
		return 0, nil, errors.Wrap(err, "unmarshalling pdu")
	}

	pdu, err := unmarshalValues(raw)
	if err != nil {
		return 0, nil, errors.Wrap(err, "unmarshalling varbind values")
	}
	return mType, pdu, nil
}

// unmarshalValues resolves every variable binding's raw ASN1 value to a
// TypedValue, producing the golang-typed PDU from the wire-level rawPDU.
func unmarshalValues(raw *rawPDU) (*PDU, error) {
	pdu := &PDU{
		RequestID:   raw.RequestID,
		Error:       raw.Error,
		ErrorIndex:  raw.ErrorIndex,
		VarbindList: make([]VarBind, len(raw.VarbindList)),
	}
	for i := range raw.VarbindList {
		value, err := unmarshalVariable(&raw.VarbindList[i].Value)
		if err != nil {
			return nil, err
		}
		oid := make(OID, len(raw.VarbindList[i].OID))
		for j, v := range raw.VarbindList[i].OID {
			oid[j] = uint32(v)
		}
		pdu.VarbindList[i].OID = oid
		pdu.VarbindList[i].TypedValue = value
	}
	return pdu, nil
}
