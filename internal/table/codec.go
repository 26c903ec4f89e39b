package table

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// EncodeRow serializes a row as a JSON array. Nulls are JSON null and floats are
// encoded as strings so NaN and ±Inf survive a round trip.
func EncodeRow(row []Value) ([]byte, error) {
	cells := make([]any, len(row))
	for i, v := range row {
		if v.null {
			continue
		}
		switch v.kind {
		case KindString:
			cells[i] = v.s
		case KindInt:
			cells[i] = v.i
		case KindFloat:
			cells[i] = strconv.FormatFloat(v.f, 'g', -1, 64)
		case KindBool:
			cells[i] = v.b
		default:
			return nil, fmt.Errorf("cell %d: invalid kind %d", i, v.kind)
		}
	}
	return json.Marshal(cells)
}

// DecodeRow parses a row written by EncodeRow against its column definitions.
func DecodeRow(cols []Column, data []byte) ([]Value, error) {
	var cells []json.RawMessage
	if err := json.Unmarshal(data, &cells); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	if len(cells) != len(cols) {
		return nil, fmt.Errorf("decode row: %d cells for %d columns", len(cells), len(cols))
	}

	row := make([]Value, len(cols))
	for i, raw := range cells {
		col := cols[i]
		if bytes.Equal(raw, []byte("null")) {
			row[i] = Null(col.Kind)
			continue
		}

		var err error
		switch col.Kind {
		case KindString:
			var s string
			err = json.Unmarshal(raw, &s)
			row[i] = Str(s)
		case KindInt:
			var n int64
			err = json.Unmarshal(raw, &n)
			row[i] = Int(n)
		case KindFloat:
			var s string
			if err = json.Unmarshal(raw, &s); err == nil {
				var f float64
				f, err = strconv.ParseFloat(s, 64)
				row[i] = Float(f)
			}
		case KindBool:
			var b bool
			err = json.Unmarshal(raw, &b)
			row[i] = Bool(b)
		default:
			err = fmt.Errorf("invalid kind %d", col.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("decode column %q: %w", col.Name, err)
		}
	}
	return row, nil
}

// Fingerprint returns a SHA-256 over the column definitions and encoded rows.
// Two tables with the same fingerprint are byte-identical snapshots.
func (t *Table) Fingerprint() (string, error) {
	h := sha256.New()
	for _, c := range t.cols {
		fmt.Fprintf(h, "%s:%s\n", c.Name, c.Kind)
	}
	for i, row := range t.rows {
		data, err := EncodeRow(row)
		if err != nil {
			return "", fmt.Errorf("row %d: %w", i, err)
		}
		h.Write(data)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MarshalJSON encodes Kind by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a Kind name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
