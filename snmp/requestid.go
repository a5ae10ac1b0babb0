package snmp

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// IDSource produces a fresh request identifier for every outgoing request.
// Implementations must be safe for concurrent use and must never return 0
// (0 is reserved so a zero-valued PDU is never mistaken for a real request).
type IDSource interface {
	NextID() int32
}

// counterIDSource is a thread-safe monotonic counter with wrap-skipping
// zero, seeded from a process-wide source of entropy rather than always
// starting at 1 — this keeps successive process restarts from re-using
// request IDs an agent (or an on-path observer) may have just seen.
type counterIDSource struct {
	counter uint32
}

// NewIDSource returns the default process-wide request-ID source, seeded
// from a random UUID so restarts don't replay recently used ids.
func NewIDSource() IDSource {
	seed := uuid.New()
	// Fold the UUID's first 4 bytes into the initial counter value.
	v := uint32(seed[0])<<24 | uint32(seed[1])<<16 | uint32(seed[2])<<8 | uint32(seed[3])
	if v == 0 {
		v = 1
	}
	return &counterIDSource{counter: v}
}

func (c *counterIDSource) NextID() int32 {
	for {
		v := atomic.AddUint32(&c.counter, 1)
		if v == 0 {
			// Wrapped to zero: skip it and try again.
			continue
		}
		return int32(v) //nolint: gosec
	}
}

// defaultIDSource is the process-wide source used by sessions that don't
// supply their own via the WithIDSource option. A single shared source (rather
// than one per session) keeps request IDs process-wide unique, not merely
// unique per connection.
var defaultIDSource = NewIDSource()

// staticIDSource is a deterministic IDSource for tests needing byte-exact
// request fixtures: it returns a fixed sequence, repeating the last value
// once exhausted.
type staticIDSource struct {
	ids []int32
	pos int
}

// NewStaticIDSource returns an IDSource yielding ids in order, then
// repeating the final id forever once exhausted.
func NewStaticIDSource(ids ...int32) IDSource {
	return &staticIDSource{ids: ids}
}

func (s *staticIDSource) NextID() int32 {
	if len(s.ids) == 0 {
		return 0
	}
	id := s.ids[s.pos]
	if s.pos < len(s.ids)-1 {
		s.pos++
	}
	return id
}
