package schema

import (
	"encoding/json"
	"math"
	"testing"
)

func TestDefaultSchemaShape(t *testing.T) {
	c := Default()

	if c.Len() != 39 {
		t.Fatalf("Default schema has %d fields, want 39", c.Len())
	}

	numeric := 0
	for _, f := range c.Fields() {
		if f.Kind == Numeric {
			numeric++
		}
	}
	if numeric != 23 {
		t.Errorf("Default schema has %d numeric fields, want 23", numeric)
	}

	if !c.IsNumeric("Age") {
		t.Error("Age should be numeric")
	}
	if c.IsNumeric("Category") {
		t.Error("Category should not be numeric")
	}
	if !c.Contains("Student_ID") {
		t.Error("Student_ID should be a canonical field")
	}
}

func TestNewRejectsBadSchemas(t *testing.T) {
	testCases := []struct {
		name   string
		fields []Field
	}{
		{"empty", nil},
		{"empty name", []Field{{Name: "", Kind: Numeric}}},
		{"duplicate", []Field{{Name: "A", Kind: Numeric}, {Name: "A", Kind: Categorical}}},
		{"bad kind", []Field{{Name: "A", Kind: "interval"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.fields); err == nil {
				t.Errorf("New(%v) should fail", tc.fields)
			}
		})
	}
}

func TestAlignMissingFieldsBecomeNull(t *testing.T) {
	c := Default()
	rec := c.Align(map[string]any{"Age": 25.0})

	if rec.Number("Age") == nil || *rec.Number("Age") != 25 {
		t.Errorf("Age = %v, want 25", rec.Number("Age"))
	}

	if !rec.Value("Quiz_Score_Avg").IsNull() {
		t.Error("absent Quiz_Score_Avg should be null")
	}
	if !rec.Value("Category").IsNull() {
		t.Error("absent Category should be null")
	}
}

func TestAlignDropsUnknownFields(t *testing.T) {
	c := Default()
	rec := c.Align(map[string]any{
		"Age":            30.0,
		"Unknown_Column": "junk",
	})

	if got := len(rec.Columns()); got != c.Len() {
		t.Fatalf("aligned record has %d columns, want %d", got, c.Len())
	}
	if _, present := rec.Payload()["Unknown_Column"]; present {
		t.Error("unknown field should be dropped")
	}
}

func TestAlignNumericCoercion(t *testing.T) {
	c := Default()

	testCases := []struct {
		name  string
		value any
		want  *float64
	}{
		{"json number", 25.0, f(25)},
		{"int", 25, f(25)},
		{"numeric string", "25", f(25)},
		{"padded string", " 25 ", f(25)},
		{"scientific", "2.5e1", f(25)},
		{"negative", "-3.5", f(-3.5)},
		{"json.Number", json.Number("42"), f(42)},
		{"bool true", true, f(1)},
		{"bool false", false, f(0)},
		{"word", "not_a_number", nil},
		{"spelled out", "TwentyFive", nil},
		{"empty string", "", nil},
		{"nil", nil, nil},
		{"object", map[string]any{"v": 1}, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := c.Align(map[string]any{"Age": tc.value})
			got := rec.Number("Age")

			if tc.want == nil {
				if got != nil {
					t.Errorf("Age = %v, want null", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Age = null, want %v", *tc.want)
			}
			if math.Abs(*got-*tc.want) > 1e-12 {
				t.Errorf("Age = %v, want %v", *got, *tc.want)
			}
		})
	}
}

func TestAlignCategoricalCoercion(t *testing.T) {
	c := Default()

	testCases := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "Programming", "Programming"},
		{"number", 42.0, "42"},
		{"float", 4.5, "4.5"},
		{"bool", true, "true"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := c.Align(map[string]any{"Category": tc.value})
			got := rec.Text("Category")
			if got == nil {
				t.Fatalf("Category = null, want %q", tc.want)
			}
			if *got != tc.want {
				t.Errorf("Category = %q, want %q", *got, tc.want)
			}
		})
	}
}

func TestAlignIsFixedPoint(t *testing.T) {
	c := Default()

	rec := c.Align(map[string]any{
		"Age":                 "not_a_number",
		"Category":            "Programming",
		"Progress_Percentage": 75.5,
		"Unknown_Column":      "junk",
	})

	again := c.Align(rec.Payload())

	for _, col := range rec.Columns() {
		a, b := rec.Value(col), again.Value(col)
		if a.IsNull() != b.IsNull() {
			t.Errorf("field %s: nullness changed on re-align", col)
			continue
		}
		if a.Number != nil && (b.Number == nil || *a.Number != *b.Number) {
			t.Errorf("field %s: number changed on re-align", col)
		}
		if a.Text != nil && (b.Text == nil || *a.Text != *b.Text) {
			t.Errorf("field %s: text changed on re-align", col)
		}
	}
}

func TestAlignEmptyPayload(t *testing.T) {
	c := Default()
	rec := c.Align(map[string]any{})

	for _, col := range rec.Columns() {
		if !rec.Value(col).IsNull() {
			t.Errorf("field %s should be null for empty payload", col)
		}
	}
}

func f(v float64) *float64 { return &v }
