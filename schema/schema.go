package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// FieldKind partitions canonical fields into numeric and categorical sets.
// The partition must match what the trained classifier was fit against.
type FieldKind string

const (
	Numeric     FieldKind = "numeric"
	Categorical FieldKind = "categorical"
)

// Field is a single named column in the canonical schema.
type Field struct {
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`
}

// Canonical is the ordered set of input columns the trained model expects.
// It is built once at process start and never mutated afterwards.
type Canonical struct {
	fields  []Field
	numeric map[string]bool
	index   map[string]bool
}

// New builds a canonical schema from an ordered field list.
func New(fields []Field) (*Canonical, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema must contain at least one field")
	}

	c := &Canonical{
		fields:  make([]Field, len(fields)),
		numeric: make(map[string]bool, len(fields)),
		index:   make(map[string]bool, len(fields)),
	}
	copy(c.fields, fields)

	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema field has empty name")
		}
		if c.index[f.Name] {
			return nil, fmt.Errorf("duplicate schema field %q", f.Name)
		}
		switch f.Kind {
		case Numeric:
			c.numeric[f.Name] = true
		case Categorical:
			// nothing to record beyond membership
		default:
			return nil, fmt.Errorf("field %q has invalid kind %q (must be numeric or categorical)", f.Name, f.Kind)
		}
		c.index[f.Name] = true
	}

	return c, nil
}

// Load reads a schema artifact produced by the training pipeline.
// The artifact is a JSON document: {"fields": [{"name": ..., "kind": ...}]}.
func Load(path string) (*Canonical, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema artifact: %w", err)
	}

	var doc struct {
		Fields []Field `json:"fields"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema artifact: %w", err)
	}

	return New(doc.Fields)
}

// Fields returns the ordered field list. The slice is a copy.
func (c *Canonical) Fields() []Field {
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// Len returns the number of canonical fields.
func (c *Canonical) Len() int {
	return len(c.fields)
}

// Contains reports whether name is a canonical field.
func (c *Canonical) Contains(name string) bool {
	return c.index[name]
}

// IsNumeric reports whether name is in the numeric subset.
func (c *Canonical) IsNumeric(name string) bool {
	return c.numeric[name]
}

// Default returns the canonical schema for the course-completion model.
// This list must stay in lockstep with the columns the training pipeline
// fits against.
func Default() *Canonical {
	c, err := New([]Field{
		{Name: "Student_ID", Kind: Categorical},
		{Name: "Name", Kind: Categorical},
		{Name: "Gender", Kind: Categorical},
		{Name: "Age", Kind: Numeric},
		{Name: "Education_Level", Kind: Categorical},
		{Name: "Employment_Status", Kind: Categorical},
		{Name: "City", Kind: Categorical},
		{Name: "Device_Type", Kind: Categorical},
		{Name: "Internet_Connection_Quality", Kind: Categorical},
		{Name: "Course_ID", Kind: Categorical},
		{Name: "Course_Name", Kind: Categorical},
		{Name: "Category", Kind: Categorical},
		{Name: "Course_Level", Kind: Categorical},
		{Name: "Course_Duration_Days", Kind: Numeric},
		{Name: "Instructor_Rating", Kind: Numeric},
		{Name: "Login_Frequency", Kind: Numeric},
		{Name: "Average_Session_Duration_Min", Kind: Numeric},
		{Name: "Video_Completion_Rate", Kind: Numeric},
		{Name: "Discussion_Participation", Kind: Numeric},
		{Name: "Time_Spent_Hours", Kind: Numeric},
		{Name: "Days_Since_Last_Login", Kind: Numeric},
		{Name: "Notifications_Checked", Kind: Numeric},
		{Name: "Peer_Interaction_Score", Kind: Numeric},
		{Name: "Assignments_Submitted", Kind: Numeric},
		{Name: "Assignments_Missed", Kind: Numeric},
		{Name: "Quiz_Attempts", Kind: Numeric},
		{Name: "Quiz_Score_Avg", Kind: Numeric},
		{Name: "Project_Grade", Kind: Numeric},
		{Name: "Progress_Percentage", Kind: Numeric},
		{Name: "Rewatch_Count", Kind: Numeric},
		{Name: "Enrollment_Date", Kind: Categorical},
		{Name: "Payment_Mode", Kind: Categorical},
		{Name: "Fee_Paid", Kind: Categorical},
		{Name: "Discount_Used", Kind: Categorical},
		{Name: "Payment_Amount", Kind: Numeric},
		{Name: "App_Usage_Percentage", Kind: Numeric},
		{Name: "Reminder_Emails_Clicked", Kind: Numeric},
		{Name: "Support_Tickets_Raised", Kind: Numeric},
		{Name: "Satisfaction_Rating", Kind: Numeric},
	})
	if err != nil {
		// The default list is a compile-time constant; this cannot happen.
		panic(err)
	}
	return c
}
