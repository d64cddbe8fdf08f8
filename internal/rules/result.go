package rules

import (
	"encoding/json"
	"strings"
)

// Kind classifies why a rule rejected an operation.
type Kind string

const (
	KindInvalidInput  Kind = "invalid_input"
	KindStateConflict Kind = "state_conflict"
	KindNotFound      Kind = "not_found"
)

// Violation reports a single failed rule.
type Violation struct {
	Rule    string `json:"rule"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Result aggregates the violations produced by a validator. The zero value is a passing result.
type Result struct {
	Violations []Violation
}

// Add appends a violation.
func (r *Result) Add(rule string, kind Kind, message string) {
	r.Violations = append(r.Violations, Violation{Rule: rule, Kind: kind, Message: message})
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// Valid reports whether no rule fired.
func (r Result) Valid() bool {
	return len(r.Violations) == 0
}

// Has reports whether the named rule fired.
func (r Result) Has(rule string) bool {
	for _, v := range r.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

// Messages returns the violation messages in evaluation order.
func (r Result) Messages() []string {
	msgs := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		msgs = append(msgs, v.Message)
	}
	return msgs
}

// Message joins all violation messages into one renderable string.
func (r Result) Message() string {
	return strings.Join(r.Messages(), ", ")
}

// Kind returns the most significant kind among the violations:
// not_found outranks invalid_input, which outranks state_conflict.
func (r Result) Kind() Kind {
	var kind Kind
	for _, v := range r.Violations {
		switch v.Kind {
		case KindNotFound:
			return KindNotFound
		case KindInvalidInput:
			kind = KindInvalidInput
		case KindStateConflict:
			if kind == "" {
				kind = KindStateConflict
			}
		}
	}
	return kind
}

type resultJSON struct {
	Valid      bool        `json:"valid"`
	Error      string      `json:"error,omitempty"`
	Errors     []string    `json:"errors"`
	Violations []Violation `json:"violations"`
}

// MarshalJSON renders the result the way API clients consume it.
func (r Result) MarshalJSON() ([]byte, error) {
	violations := r.Violations
	if violations == nil {
		violations = []Violation{}
	}
	return json.Marshal(resultJSON{
		Valid:      r.Valid(),
		Error:      r.Message(),
		Errors:     r.Messages(),
		Violations: violations,
	})
}

// Error is returned by write paths when a validator rejects the operation.
type Error struct {
	Result Result
}

func (e *Error) Error() string {
	return "rejected by rules: " + e.Result.Message()
}
