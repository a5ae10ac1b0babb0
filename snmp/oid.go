package snmp

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// OID is a parsed dotted-decimal SNMP object identifier: a non-empty
// sequence of unsigned 32-bit sub-identifiers. Ordering is lexicographic.
type OID []uint32

// ParseOID parses a dotted-decimal OID string such as "1.3.6.1.2.1.1.5.0".
// Leading dots are rejected; trailing dots are tolerated to keep walk
// continuation logic (which often appends ".0" style suffixes) simple.
func ParseOID(s string) (OID, error) {
	if s == "" {
		return nil, errors.New("oid: empty string")
	}
	if strings.HasPrefix(s, ".") {
		return nil, errors.Errorf("oid: leading dot not permitted: %q", s)
	}
	parts := strings.Split(strings.TrimSuffix(s, "."), ".")
	out := make(OID, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "oid: invalid sub-identifier %q in %q", p, s)
		}
		out[i] = uint32(v)
	}
	return out, nil
}

// MustParseOID is ParseOID but panics on error; useful for literals in
// tests and for base OIDs already known to be well-formed.
func MustParseOID(s string) OID {
	o, err := ParseOID(s)
	if err != nil {
		panic(err)
	}
	return o
}

// String renders the OID in canonical dotted-decimal form.
func (o OID) String() string {
	parts := make([]string, len(o))
	for i, v := range o {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, ".")
}

// Equal reports whether o and other denote the same sequence of
// sub-identifiers.
func (o OID) Equal(other OID) bool {
	return o.Compare(other) == 0
}

// Compare returns -1, 0 or 1 as o is lexicographically less than, equal
// to, or greater than other: sub-identifiers are compared pairwise, and a
// strict prefix sorts before its extension.
func (o OID) Compare(other OID) int {
	n := len(o)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		switch {
		case o[i] < other[i]:
			return -1
		case o[i] > other[i]:
			return 1
		}
	}
	switch {
	case len(o) < len(other):
		return -1
	case len(o) > len(other):
		return 1
	}
	return 0
}

// Less reports whether o sorts strictly before other.
func (o OID) Less(other OID) bool {
	return o.Compare(other) < 0
}

// Contains reports whether o ⊑ other: whether o is a strict prefix of
// other, i.e. other is a descendant of the subtree rooted at o.
func (o OID) Contains(other OID) bool {
	if len(other) <= len(o) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of o.
func (o OID) Clone() OID {
	c := make(OID, len(o))
	copy(c, o)
	return c
}
