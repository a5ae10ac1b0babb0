package snmp

import "strconv"

// Table folds a flat, column-major sequence of VarBinds from a single-OID
// walk into row-major maps, the way an SNMP table is actually laid out on
// the wire: each OID is <table-prefix>.<column>.<row-index>. numBaseNodes
// lets the row key be picked from further back than the final
// sub-identifier, for tables whose row index carries trailing components
// beyond the simple single-integer case.
//
// For each varbind's OID, the row key is the sub-identifier numBaseNodes+1
// positions from the end; the column key is the one immediately before it.
// Every row-map carries a synthetic "0" column equal to its row key, and
// rows are returned in the order their row key was first seen.
func Table(varbinds []VarBind, numBaseNodes int) []map[string]*TypedValue {
	rows := make(map[string]map[string]*TypedValue)
	var order []string

	for _, vb := range varbinds {
		n := len(vb.OID)
		rowIdx := n - 1 - numBaseNodes
		colIdx := rowIdx - 1
		if rowIdx < 0 || colIdx < 0 {
			continue
		}

		rowKey := strconv.FormatUint(uint64(vb.OID[rowIdx]), 10)
		colKey := strconv.FormatUint(uint64(vb.OID[colIdx]), 10)

		row, ok := rows[rowKey]
		if !ok {
			row = map[string]*TypedValue{"0": NewInteger(int64(vb.OID[rowIdx]))}
			rows[rowKey] = row
			order = append(order, rowKey)
		}
		row[colKey] = vb.TypedValue
	}

	out := make([]map[string]*TypedValue, len(order))
	for i, k := range order {
		out[i] = rows[k]
	}
	return out
}
