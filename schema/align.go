package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a single aligned cell: a number, a text, or null (both nil).
type Value struct {
	Number *float64
	Text   *string
}

// IsNull reports whether the cell carries no value.
func (v Value) IsNull() bool {
	return v.Number == nil && v.Text == nil
}

// AlignedRecord is one row shaped exactly like the canonical schema:
// every canonical field present (value or null), nothing else. Records are
// built fresh per request and must not be mutated after alignment.
type AlignedRecord struct {
	schema *Canonical
	values map[string]Value
}

// Align coerces an arbitrary untrusted payload into the canonical shape.
// It never fails: missing fields become null, numeric coercion misses
// become null, categorical values become their string form, and payload
// fields outside the schema are dropped. This converts a hard
// schema-mismatch failure into a soft, always-satisfiable contract.
func (c *Canonical) Align(payload map[string]any) *AlignedRecord {
	rec := &AlignedRecord{
		schema: c,
		values: make(map[string]Value, len(c.fields)),
	}

	for _, f := range c.fields {
		raw, present := payload[f.Name]
		if !present || raw == nil {
			rec.values[f.Name] = Value{}
			continue
		}

		if c.numeric[f.Name] {
			if n, ok := CoerceNumber(raw); ok {
				rec.values[f.Name] = Value{Number: &n}
			} else {
				rec.values[f.Name] = Value{}
			}
			continue
		}

		s := coerceText(raw)
		rec.values[f.Name] = Value{Text: &s}
	}

	return rec
}

// Columns returns the field names in canonical order.
func (r *AlignedRecord) Columns() []string {
	cols := make([]string, len(r.schema.fields))
	for i, f := range r.schema.fields {
		cols[i] = f.Name
	}
	return cols
}

// Value returns the aligned cell for a canonical field. Unknown names
// return null.
func (r *AlignedRecord) Value(name string) Value {
	return r.values[name]
}

// Number returns the numeric cell for name, or nil if null or non-numeric.
func (r *AlignedRecord) Number(name string) *float64 {
	return r.values[name].Number
}

// Text returns the text cell for name, or nil if null or numeric.
func (r *AlignedRecord) Text(name string) *string {
	return r.values[name].Text
}

// Payload renders the record back into payload form, with explicit nils
// for null cells. Aligning the result reproduces the record (fixed point).
func (r *AlignedRecord) Payload() map[string]any {
	out := make(map[string]any, len(r.values))
	for _, f := range r.schema.fields {
		v := r.values[f.Name]
		switch {
		case v.Number != nil:
			out[f.Name] = *v.Number
		case v.Text != nil:
			out[f.Name] = *v.Text
		default:
			out[f.Name] = nil
		}
	}
	return out
}

// CoerceNumber attempts to read a scalar as a float. Accepted forms: JSON
// and native Go numbers, json.Number, booleans (1/0), and strings that
// parse as a float literal after trimming surrounding whitespace. Empty
// strings and anything else miss.
func CoerceNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// coerceText renders a scalar into its string representation.
func coerceText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
