package snmp

import (
	"context"
	"fmt"
	"sort"
)

// WalkStream is the lazy, per-base-queue traversal engine behind
// Session.MultiWalk/BulkWalk. It is a pull-based iterator: no request is
// issued until the caller calls Next and the current round's buffer is
// empty. Not safe for concurrent use.
type WalkStream struct {
	bases   []*baseWalk
	fetcher Fetcher
	config  *SessionConfig

	// yielded dedups by OID string across every base in the stream (not
	// just within one base) — if two requested bases overlap, an OID is
	// emitted only under whichever base's queue reaches it first. This
	// matches the reference implementation's behaviour; see DESIGN.md.
	yielded map[string]bool

	pending    []VarBind
	pendingIdx int
	done       bool
	err        error
}

// baseWalk tracks one requested base-OID's traversal state.
type baseWalk struct {
	base     OID
	frontier OID // next oid to request; advances to the last value seen under this base
	lastSeen OID // last value yielded (or received) under this base, for the monotonicity check
	finished bool
}

func newWalkStream(bases []OID, fetcher Fetcher, config *SessionConfig) *WalkStream {
	ordered := make([]OID, len(bases))
	copy(ordered, bases)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Less(ordered[j]) })

	bs := make([]*baseWalk, len(ordered))
	for i, b := range ordered {
		bs[i] = &baseWalk{base: b, frontier: b}
	}
	return &WalkStream{bases: bs, fetcher: fetcher, config: config, yielded: map[string]bool{}}
}

// Next pulls the next varbind from the stream. ok is false once every base
// has finished; err is non-nil only on a fatal failure (a strict-mode
// FaultySNMPImplementation, a transport Timeout, or a propagated SnmpError),
// in which case the stream must not be pulled again.
func (w *WalkStream) Next(ctx context.Context) (VarBind, bool, error) {
	for {
		if w.err != nil {
			return VarBind{}, false, w.err
		}
		if w.pendingIdx < len(w.pending) {
			vb := w.pending[w.pendingIdx]
			w.pendingIdx++
			return vb, true, nil
		}
		if w.allFinished() {
			return VarBind{}, false, nil
		}
		if err := w.runRound(ctx); err != nil {
			w.err = err
			return VarBind{}, false, err
		}
	}
}

func (w *WalkStream) allFinished() bool {
	for _, b := range w.bases {
		if !b.finished {
			return false
		}
	}
	return true
}

// runRound issues exactly one fetch and refills the pending buffer with
// every newly yielded varbind, in ascending base order.
func (w *WalkStream) runRound(ctx context.Context) error {
	var active []*baseWalk
	var frontier []OID
	for _, b := range w.bases {
		if !b.finished {
			active = append(active, b)
			frontier = append(frontier, b.frontier)
		}
	}
	if len(active) == 0 {
		return nil
	}

	columns, err := w.fetcher.Fetch(ctx, frontier)
	if err != nil {
		if _, ok := err.(*NoSuchOID); ok {
			// End-of-MIB on every base this round finished cleanly, no
			// warning — this is the documented termination signal.
			for _, b := range active {
				b.finished = true
			}
			return nil
		}
		return err
	}

	w.pending = w.pending[:0]
	w.pendingIdx = 0

	for i, base := range active {
		newlyYielded, err := w.processColumn(base, columns[i])
		if err != nil {
			return err
		}
		w.pending = append(w.pending, newlyYielded...)
	}
	return nil
}

// processColumn walks one base's ordered slice of varbinds received this
// round, applying the exception, containment and monotonicity guards, and
// returns the subset that should be yielded to the caller.
func (w *WalkStream) processColumn(base *baseWalk, column []VarBind) ([]VarBind, error) {
	var out []VarBind
	for _, vb := range column {
		if vb.TypedValue.IsException() {
			// EndOfMibView (or, non-conformantly, NoSuchObject/NoSuchInstance):
			// end-of-tree signal, terminate cleanly, no warning.
			base.finished = true
			break
		}
		if !base.base.Contains(vb.OID) {
			base.finished = true
			break
		}

		last := base.lastSeen
		if last == nil {
			last = base.base
		}
		if vb.OID.Compare(last) <= 0 {
			if w.config.errMode == ErrModeWarn {
				w.config.trace.Warn("WalkStream", w.config, fmt.Sprintf(
					"base %s: agent returned non-increasing oid %s after %s, terminating this base",
					base.base, vb.OID, last))
				base.finished = true
				break
			}
			return nil, newFaultyImplementation("base %s: agent returned non-increasing oid %s after %s", base.base, vb.OID, last)
		}

		base.lastSeen = vb.OID
		base.frontier = vb.OID

		if w.yielded[vb.OID.String()] {
			continue
		}
		w.yielded[vb.OID.String()] = true
		out = append(out, vb)
	}
	return out, nil
}
