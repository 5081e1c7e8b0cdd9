package table

// InnerJoin joins two tables on the given key column. A row appears in
// the output once per matching (left, right) pair; keys present on only
// one side are dropped. Output columns are the left columns followed by
// the right columns minus the duplicated key, and output rows follow
// left-table order, then right-table order within one key.
func InnerJoin(left, right *Table, key string) *Table {
	cols := make([]string, 0, len(left.Columns)+len(right.Columns)-1)
	cols = append(cols, left.Columns...)
	for _, c := range right.Columns {
		if c != key {
			cols = append(cols, c)
		}
	}
	out := New(cols...)

	// Index right rows by key, preserving insertion order per key.
	byKey := make(map[string][]Row, right.Len())
	for _, r := range right.Rows {
		k := r.Get(key)
		byKey[k] = append(byKey[k], r)
	}

	for _, l := range left.Rows {
		for _, r := range byKey[l.Get(key)] {
			merged := make(Row, len(cols))
			for _, c := range left.Columns {
				merged[c] = l.Get(c)
			}
			for _, c := range right.Columns {
				if c != key {
					merged[c] = r.Get(c)
				}
			}
			out.Append(merged)
		}
	}
	return out
}
