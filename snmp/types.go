package snmp

import (
	"encoding/asn1"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/geoffgarside/ber"
	"github.com/pkg/errors"
)

// Definitions and methods used to marshal/unmarshal ASN1 and SNMP datatypes
// to/from ASN1 raw values. Refer to http://luca.ntop.org/Teaching/Appunti/asn1.html.

// Mask used to filter data types from the ASN1 tag, excluding the class bits.
const tagMask = 0x1f

// SNMP data type tags (RFC 1902 §7 / RFC 3416 §2).
const (
	ipTag                = 0x40
	resolvedIPTag        = ipTag & tagMask
	counter32Tag         = 0x41
	resolvedCounter32Tag = counter32Tag & tagMask
	gauge32Tag           = 0x42
	resolvedGauge32Tag   = gauge32Tag & tagMask
	timeTag              = 0x43
	resolvedTimeTag      = timeTag & tagMask
	opaqueTag            = 0x44
	resolvedOpaqueTag    = opaqueTag & tagMask
	counter64Tag         = 0x46
	resolvedCounter64Tag = counter64Tag & tagMask

	noSuchObjectTag           = 0x80
	resolvedNoSuchObjectTag   = noSuchObjectTag & tagMask
	noSuchInstanceTag         = 0x81
	resolvedNoSuchInstanceTag = noSuchInstanceTag & tagMask
	endOfMibViewTag           = 0x82
	resolvedEndOfMibViewTag   = endOfMibViewTag & tagMask
)

// DataType identifies the wire-level ASN.1/SNMP type carried by a TypedValue.
type DataType int

const (
	Integer DataType = iota
	OctetString
	ObjectIdentifier
	Null

	IPAddress
	Counter32
	Gauge32
	TimeTicks
	Counter64
	Opaque

	NoSuchObject
	NoSuchInstance
	EndOfMibView
)

// TypedValue encapsulates the wire-level data type and the golang
// representation of an SNMP variable's value. Every TypedValue must
// round-trip through BER encode/decode identically; the three exception
// markers carry no payload.
type TypedValue struct {
	Type  DataType
	Value interface{}
}

// NewInteger builds a TypedValue carrying a signed INTEGER.
func NewInteger(v int64) *TypedValue { return &TypedValue{Type: Integer, Value: v} }

// NewOctetString builds a TypedValue carrying an OCTET STRING.
func NewOctetString(v []byte) *TypedValue { return &TypedValue{Type: OctetString, Value: v} }

// NewObjectIdentifier builds a TypedValue carrying an OBJECT IDENTIFIER.
func NewObjectIdentifier(v OID) *TypedValue { return &TypedValue{Type: ObjectIdentifier, Value: v} }

// NewNull builds a TypedValue carrying the ASN.1 NULL placeholder used in
// GET/GETNEXT/GETBULK request variable bindings.
func NewNull() *TypedValue { return &TypedValue{Type: Null} }

// NewIPAddress builds a TypedValue carrying a 4-octet IpAddress.
func NewIPAddress(v [4]byte) *TypedValue { return &TypedValue{Type: IPAddress, Value: v[:]} }

// NewCounter32 builds a TypedValue carrying a Counter32.
func NewCounter32(v uint32) *TypedValue { return &TypedValue{Type: Counter32, Value: v} }

// NewGauge32 builds a TypedValue carrying a Gauge32.
func NewGauge32(v uint32) *TypedValue { return &TypedValue{Type: Gauge32, Value: v} }

// NewTimeTicks builds a TypedValue carrying a TimeTicks.
func NewTimeTicks(v uint32) *TypedValue { return &TypedValue{Type: TimeTicks, Value: v} }

// NewCounter64 builds a TypedValue carrying a Counter64.
func NewCounter64(v uint64) *TypedValue { return &TypedValue{Type: Counter64, Value: v} }

// NewOpaque builds a TypedValue carrying an Opaque blob.
func NewOpaque(v []byte) *TypedValue { return &TypedValue{Type: Opaque, Value: v} }

// HasWireType reports whether tv carries one of the data types legal to
// send to an agent in a SET request. The three exception markers and Null
// are receive-only/placeholder types and never legal SET payloads.
func (tv *TypedValue) HasWireType() bool {
	switch tv.Type { //nolint: exhaustive
	case Integer, OctetString, ObjectIdentifier, IPAddress, Counter32, Gauge32, TimeTicks, Counter64, Opaque:
		return true
	}
	return false
}

// IsException reports whether tv is one of the three SNMPv2c varbind
// exception markers (data, not control flow — see unmarshalVariable).
func (tv *TypedValue) IsException() bool {
	switch tv.Type { //nolint: exhaustive
	case NoSuchObject, NoSuchInstance, EndOfMibView:
		return true
	}
	return false
}

// String renders the value as a human-readable string.
func (tv *TypedValue) String() string {
	switch tv.Type {
	case Integer:
		return strconv.FormatInt(tv.Value.(int64), 10)
	case OctetString:
		return string(tv.Value.([]byte))
	case ObjectIdentifier:
		return tv.Value.(OID).String()
	case Null:
		return "Null"
	case TimeTicks:
		t := int64(tv.Value.(uint32)) * 10000000
		return time.Duration(t).String()
	case Counter32, Gauge32:
		return strconv.FormatUint(uint64(tv.Value.(uint32)), 10)
	case Counter64:
		return strconv.FormatUint(tv.Value.(uint64), 10)
	case IPAddress:
		address := tv.Value.([]byte)
		str := make([]string, len(address))
		for i, octet := range address {
			str[i] = strconv.Itoa(int(octet))
		}
		return strings.Join(str, ".")
	case Opaque:
		return hex.EncodeToString(tv.Value.([]byte))
	case NoSuchObject:
		return "No Such Object"
	case NoSuchInstance:
		return "No Such Instance"
	case EndOfMibView:
		return "End of Mib View"
	}
	return "unrecognised data type " + strconv.Itoa(int(tv.Type))
}

// OIDValue delivers the value as an OID. Value type must be ObjectIdentifier.
func (tv *TypedValue) OIDValue() OID {
	return tv.Value.(OID)
}

// Int64 delivers the value as a signed 64-bit int. Value type must be
// integer-based.
func (tv *TypedValue) Int64() int64 {
	switch tv.Type { //nolint: exhaustive
	case Integer:
		return tv.Value.(int64)
	case Counter64:
		return int64(tv.Value.(uint64))
	case Counter32, Gauge32, TimeTicks:
		return int64(tv.Value.(uint32))
	}
	panic(errors.Errorf("non-integer data type %d", tv.Type))
}

// unmarshalVariable unmarshals an asn1 RawValue containing a single variable
// to deliver a TypedValue that encapsulates the variable type and the
// golang representation of the variable value.
//
//nolint: gocyclo
func unmarshalVariable(raw *asn1.RawValue) (*TypedValue, error) {
	switch raw.Class {
	case asn1.ClassUniversal:
		switch raw.Tag {
		case asn1.TagInteger:
			return unmarshalInteger(raw, Integer)
		case asn1.TagOctetString:
			return unmarshalOctetString(raw, OctetString)
		case asn1.TagOID:
			return unmarshalOID(raw)
		case asn1.TagNull:
			return &TypedValue{Type: Null}, nil
		}

	case asn1.ClassApplication:
		switch raw.Tag {
		case resolvedIPTag:
			return unmarshalOctetString(raw, IPAddress)
		case resolvedCounter32Tag:
			return unmarshalInteger(raw, Counter32)
		case resolvedCounter64Tag:
			return unmarshalInteger(raw, Counter64)
		case resolvedGauge32Tag:
			return unmarshalInteger(raw, Gauge32)
		case resolvedTimeTag:
			return unmarshalInteger(raw, TimeTicks)
		case resolvedOpaqueTag:
			return unmarshalOctetString(raw, Opaque)
		}
	case asn1.ClassContextSpecific:
		switch raw.Tag {
		case resolvedNoSuchObjectTag:
			return &TypedValue{Type: NoSuchObject}, nil
		case resolvedNoSuchInstanceTag:
			return &TypedValue{Type: NoSuchInstance}, nil
		case resolvedEndOfMibViewTag:
			return &TypedValue{Type: EndOfMibView}, nil
		}
	}

	return nil, errors.Errorf("unsupported class %d tag %d", raw.Class, raw.Tag)
}

// unmarshalInteger unmarshals an SNMP integer-based variable into a TypedValue.
func unmarshalInteger(raw *asn1.RawValue, dataType DataType) (*TypedValue, error) {
	var value int64
	// Replace SNMP-tag with the generic Integer tag, so BER unmarshalling works.
	raw.FullBytes[0] = asn1.TagInteger
	if _, err := ber.Unmarshal(raw.FullBytes, &value); err != nil {
		return nil, err
	}
	return &TypedValue{Type: dataType, Value: integerValue(value, dataType)}, nil
}

// integerValue casts a signed 64-bit integer to the integer type that
// corresponds to the SNMP data type it was decoded from.
func integerValue(v int64, dataType DataType) interface{} {
	switch dataType { //nolint: exhaustive
	case Counter32, Gauge32, TimeTicks:
		return uint32(v)
	case Counter64:
		return uint64(v)
	}
	return v
}

// unmarshalOctetString unmarshals an SNMP octetstring-based variable into a TypedValue.
func unmarshalOctetString(raw *asn1.RawValue, dataType DataType) (*TypedValue, error) {
	value := &TypedValue{Type: dataType, Value: []byte{}}
	// Replace SNMP-tag with the generic OctetString tag, so BER unmarshalling works.
	raw.FullBytes[0] = asn1.TagOctetString
	if _, err := ber.Unmarshal(raw.FullBytes, &value.Value); err != nil {
		return nil, err
	}
	return value, nil
}

// unmarshalOID unmarshals an OID-valued variable into a TypedValue.
func unmarshalOID(raw *asn1.RawValue) (*TypedValue, error) {
	var value interface{}
	if _, err := ber.Unmarshal(raw.FullBytes, &value); err != nil {
		return nil, err
	}
	ints, ok := value.([]int)
	if !ok {
		return nil, errors.Errorf("oid: unexpected decoded type %T", value)
	}
	out := make(OID, len(ints))
	for i, v := range ints {
		out[i] = uint32(v)
	}
	return &TypedValue{Type: ObjectIdentifier, Value: out}, nil
}

// marshalVariable encodes tv to the wire bytes of a single ASN.1 variable,
// tagged appropriately for its SNMP data type. It mirrors unmarshalVariable:
// rather than hand-writing BER headers, it marshals through the nearest
// universal type via ber.Marshal and then patches the leading tag byte —
// the same trick unmarshalInteger/unmarshalOctetString use in reverse.
func marshalVariable(tv *TypedValue) ([]byte, error) {
	switch tv.Type {
	case Null:
		return []byte{asn1.TagNull, 0x00}, nil
	case NoSuchObject:
		return []byte{noSuchObjectTag, 0x00}, nil
	case NoSuchInstance:
		return []byte{noSuchInstanceTag, 0x00}, nil
	case EndOfMibView:
		return []byte{endOfMibViewTag, 0x00}, nil
	case Integer:
		return ber.Marshal(tv.Value.(int64))
	case OctetString:
		return ber.Marshal(tv.Value.([]byte))
	case ObjectIdentifier:
		oid := tv.Value.(OID)
		ints := make([]int, len(oid))
		for i, v := range oid {
			ints[i] = int(v)
		}
		return ber.Marshal(asn1.ObjectIdentifier(ints))
	case IPAddress:
		b, err := ber.Marshal(tv.Value.([]byte))
		return patchTag(b, ipTag, err)
	case Counter32:
		b, err := ber.Marshal(int64(tv.Value.(uint32)))
		return patchTag(b, counter32Tag, err)
	case Gauge32:
		b, err := ber.Marshal(int64(tv.Value.(uint32)))
		return patchTag(b, gauge32Tag, err)
	case TimeTicks:
		b, err := ber.Marshal(int64(tv.Value.(uint32)))
		return patchTag(b, timeTag, err)
	case Counter64:
		b, err := ber.Marshal(int64(tv.Value.(uint64))) //nolint: gosec
		return patchTag(b, counter64Tag, err)
	case Opaque:
		b, err := ber.Marshal(tv.Value.([]byte))
		return patchTag(b, opaqueTag, err)
	}
	return nil, errors.Errorf("marshalVariable: unsupported data type %d", tv.Type)
}

func patchTag(b []byte, tag byte, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	b[0] = tag
	return b, nil
}
