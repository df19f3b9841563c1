// Package guard rejects malformed or abusive payloads before they reach
// schema alignment. It is a cheap fixed-cost pre-filter, not a schema
// validator: type and range checks on domain fields belong to the training
// pipeline's validation stage.
package guard

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/cel-go/cel"
)

// Fixed anti-abuse bounds. These are serving limits, not domain rules.
const (
	MaxFields    = 200
	MaxStringLen = 5000
)

// ScreenRule is an operator-configured rejection rule: a CEL expression
// over the variable `payload` that evaluates to true when the payload
// should be rejected.
type ScreenRule struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

type compiledScreen struct {
	name    string
	program cel.Program
}

// Guard holds the fixed checks plus any compiled screening rules. It is
// read-only after construction and safe for concurrent use.
type Guard struct {
	maxFields    int
	maxStringLen int
	screens      []compiledScreen
}

// New returns a guard with the fixed checks only.
func New() *Guard {
	return &Guard{maxFields: MaxFields, maxStringLen: MaxStringLen}
}

// NewWithRules returns a guard that also evaluates the given screening
// rules. Expressions are compiled once here; a rule that does not compile
// is a configuration error and fails construction.
func NewWithRules(rules []ScreenRule) (*Guard, error) {
	g := New()
	if len(rules) == 0 {
		return g, nil
	}

	env, err := cel.NewEnv(cel.Variable("payload", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	for _, r := range rules {
		if r.Name == "" || r.Expression == "" {
			return nil, fmt.Errorf("screening rule requires name and expression")
		}

		ast, issues := env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("screening rule %q: compile error: %w", r.Name, issues.Err())
		}

		// Cost limit keeps a misconfigured expression from burning the
		// request path.
		prog, err := env.Program(ast, cel.CostLimit(1000000))
		if err != nil {
			return nil, fmt.Errorf("screening rule %q: program creation error: %w", r.Name, err)
		}

		g.screens = append(g.screens, compiledScreen{name: r.Name, program: prog})
	}

	return g, nil
}

// LoadRules reads screening rules from a JSON file: a list of
// {"name": ..., "expression": ...} objects.
func LoadRules(path string) ([]ScreenRule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read screening rules: %w", err)
	}

	var rules []ScreenRule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse screening rules: %w", err)
	}

	return rules, nil
}

// Check validates a payload against the fixed bounds and any screening
// rules. No side effects. A nil error means the payload may proceed to
// alignment.
func (g *Guard) Check(payload map[string]any) error {
	if payload == nil {
		return fmt.Errorf("payload must be a JSON object")
	}

	if len(payload) > g.maxFields {
		return fmt.Errorf("payload has too many fields (%d, limit %d)", len(payload), g.maxFields)
	}

	for k, v := range payload {
		if s, ok := v.(string); ok && len(s) > g.maxStringLen {
			return fmt.Errorf("field %q is too large", k)
		}
	}

	for _, screen := range g.screens {
		out, _, err := screen.program.Eval(map[string]any{"payload": payload})
		if err != nil {
			// Screening is best-effort: an expression that errors on this
			// payload does not reject it. The fixed checks above are the
			// authoritative bound.
			continue
		}
		if matched, ok := out.Value().(bool); ok && matched {
			return fmt.Errorf("payload rejected by screening rule %q", screen.name)
		}
	}

	return nil
}
