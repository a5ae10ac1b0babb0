package snmp

import "context"

// Fetcher is the pluggable capability the walk engine drives one round at a
// time: given the current per-base frontier (one oid per still-unfinished
// base, in base order), return the ordered sequence of varbinds the agent
// produced for each position. A GETNEXT-backed fetcher always returns
// exactly one varbind per position; a GETBULK-backed fetcher may return
// several (one per repetition row), reshaped back into one column per
// position so the walk engine never has to know which transport operation
// produced them.
type Fetcher interface {
	Fetch(ctx context.Context, oids []OID) ([][]VarBind, error)
}

// nextFetcher drives a walk round with a single GetNextRequest.
type nextFetcher struct {
	session *sessionImpl
}

func newNextFetcher(s *sessionImpl) Fetcher {
	return &nextFetcher{session: s}
}

// Fetch calls sessionImpl.getNext directly rather than Session.MultiGetNext:
// MultiGetNext applies a hard strict-successor check meant for direct
// GetNext/MultiGetNext callers, which would turn a non-increasing oid into
// an unconditional fatal error regardless of the session's configured
// errMode. The walk engine needs that oid delivered as plain data so
// walk.go's own errMode-aware check (strict vs warn) is the only place that
// classifies it.
func (f *nextFetcher) Fetch(ctx context.Context, oids []OID) ([][]VarBind, error) {
	vbs, err := f.session.getNext(ctx, oids)
	if err != nil {
		return nil, err
	}
	columns := make([][]VarBind, len(vbs))
	for i, vb := range vbs {
		columns[i] = []VarBind{vb}
	}
	return columns, nil
}

// bulkFetcher drives a walk round with a single GetBulkRequest, treating
// every frontier oid as a repeater (no non-repeating scalars) and reshaping
// the response's row-major listing back into one column per requested oid.
type bulkFetcher struct {
	session  *sessionImpl
	bulkSize int
}

func newBulkFetcher(s *sessionImpl, bulkSize int) Fetcher {
	return &bulkFetcher{session: s, bulkSize: bulkSize}
}

func (f *bulkFetcher) Fetch(ctx context.Context, oids []OID) ([][]VarBind, error) {
	strs := make([]string, len(oids))
	for i, o := range oids {
		strs[i] = o.String()
	}
	result, err := f.session.BulkGet(ctx, nil, strs, f.bulkSize)
	if err != nil {
		return nil, err
	}

	numRepeaters := len(oids)
	columns := make([][]VarBind, numRepeaters)
	for i, vb := range result.Listing {
		col := i % numRepeaters
		columns[col] = append(columns[col], vb)
	}
	return columns, nil
}
