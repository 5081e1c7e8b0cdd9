package table

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RecordsJSON serializes the table as a pretty-printed JSON array of row
// objects, one object per row. Keys follow the table's column order,
// non-ASCII text is preserved, and HTML characters are not escaped. An
// empty table serializes to "[]".
func (t *Table) RecordsJSON() (string, error) {
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, r := range t.Rows {
		if i > 0 {
			compact.WriteByte(',')
		}
		compact.WriteByte('{')
		for j, c := range t.Columns {
			if j > 0 {
				compact.WriteByte(',')
			}
			key, err := encodeJSONString(c)
			if err != nil {
				return "", fmt.Errorf("failed to encode column %q: %w", c, err)
			}
			val, err := encodeJSONString(r.Get(c))
			if err != nil {
				return "", fmt.Errorf("failed to encode value for column %q: %w", c, err)
			}
			compact.Write(key)
			compact.WriteByte(':')
			compact.Write(val)
		}
		compact.WriteByte('}')
	}
	compact.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return "", fmt.Errorf("failed to indent records: %w", err)
	}
	return out.String(), nil
}

// encodeJSONString marshals a string without HTML escaping, so paths and
// clinical text survive the round trip verbatim.
func encodeJSONString(s string) ([]byte, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(b.Bytes(), "\n"), nil
}
