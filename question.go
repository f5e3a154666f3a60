package inquire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validator checks a candidate answer. It returns nil to accept, an error
// built with Reject to refuse the answer, or any other error to abort.
type Validator func(answer any) error

// Filter transforms an accepted answer before it is stored.
type Filter func(answer any) (any, error)

// Predicate decides from the answers so far whether a question is asked.
type Predicate func(answers View) (bool, error)

// Question describes one question of a session.
type Question struct {
	Name    string
	Type    string
	Message Field[string]
	Default Field[any]
	Choices Field[[]Choice]

	Validate Validator
	Filter   Filter
	When     Predicate

	// Extra holds further static properties sent to the peer verbatim.
	Extra map[string]any
}

// Choice is one entry of a list-style question.
type Choice struct {
	Name  string `json:"name"`
	Value any    `json:"value,omitempty"`
	Short string `json:"short,omitempty"`
}

// Answer returns the value a choice stands for: Value when set, else Name.
func (c Choice) Answer() any {
	if c.Value != nil {
		return c.Value
	}
	return c.Name
}

// MarshalJSON encodes a name-only choice as a bare string.
func (c Choice) MarshalJSON() ([]byte, error) {
	if c.Value == nil && c.Short == "" {
		return json.Marshal(c.Name)
	}
	type plain Choice
	return json.Marshal(plain(c))
}

// UnmarshalJSON accepts either a string or a {name, value, short} object.
func (c *Choice) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*c = Choice{Name: name}
		return nil
	}
	type plain Choice
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("choice: %w", err)
	}
	*c = Choice(p)
	return nil
}

// Dynamic reports whether the question depends on earlier answers: it has a
// computed message, default or choices, or a When predicate.
func (q *Question) Dynamic() bool {
	return q.When != nil ||
		q.Message.IsComputed() ||
		q.Default.IsComputed() ||
		q.Choices.IsComputed()
}

// Asked evaluates When against answers. Questions without When are always asked.
func (q *Question) Asked(answers View) (bool, error) {
	if q.When == nil {
		return true, nil
	}
	ok, err := q.When(answers)
	if err != nil {
		return false, fmt.Errorf("question %q: when: %w", q.Name, err)
	}
	return ok, nil
}

// Resolve replaces computed message, default and choices with their values
// for the given answers. Each computation runs at most once.
func (q *Question) Resolve(answers View) error {
	if _, err := q.Message.Resolve(answers); err != nil {
		return fmt.Errorf("question %q: message: %w", q.Name, err)
	}
	if _, err := q.Default.Resolve(answers); err != nil {
		return fmt.Errorf("question %q: default: %w", q.Name, err)
	}
	if _, err := q.Choices.Resolve(answers); err != nil {
		return fmt.Errorf("question %q: choices: %w", q.Name, err)
	}
	return nil
}

// Check runs Validate on a candidate answer. A rejection comes back as a
// *ValidationError carrying the reason shown to the peer.
func (q *Question) Check(answer any) error {
	if q.Validate == nil {
		return nil
	}
	err := q.Validate(answer)
	if err == nil {
		return nil
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		reason := verr.Reason
		if reason == "" {
			reason = "invalid value for " + q.Name
		}
		return &ValidationError{Question: q.Name, Reason: reason}
	}
	return fmt.Errorf("question %q: validate: %w", q.Name, err)
}

// Apply runs Filter on an accepted answer.
func (q *Question) Apply(answer any) (any, error) {
	if q.Filter == nil {
		return answer, nil
	}
	v, err := q.Filter(answer)
	if err != nil {
		return nil, fmt.Errorf("question %q: filter: %w", q.Name, err)
	}
	return v, nil
}

// MarshalJSON encodes the static view of the question. Functions are never
// encoded; computed fields appear only once resolved.
func (q *Question) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(q.Extra)+5)
	for k, v := range q.Extra {
		out[k] = v
	}
	out["name"] = q.Name
	if q.Type != "" {
		out["type"] = q.Type
	}
	if q.Message.IsSet() && !q.Message.IsComputed() {
		out["message"] = q.Message.Value()
	}
	if q.Default.IsSet() && !q.Default.IsComputed() {
		out["default"] = q.Default.Value()
	}
	if q.Choices.IsSet() && !q.Choices.IsComputed() {
		out["choices"] = q.Choices.Value()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a question as sent on the wire. Every field becomes a
// literal; unknown properties land in Extra.
func (q *Question) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Question
	for key, val := range raw {
		switch key {
		case "name":
			if err := json.Unmarshal(val, &out.Name); err != nil {
				return fmt.Errorf("name: %w", err)
			}
		case "type":
			if err := json.Unmarshal(val, &out.Type); err != nil {
				return fmt.Errorf("type: %w", err)
			}
		case "message":
			var msg string
			if err := json.Unmarshal(val, &msg); err != nil {
				return fmt.Errorf("message: %w", err)
			}
			out.Message = Literal(msg)
		case "default":
			var def any
			if err := json.Unmarshal(val, &def); err != nil {
				return fmt.Errorf("default: %w", err)
			}
			out.Default = Literal(def)
		case "choices":
			var choices []Choice
			if err := json.Unmarshal(val, &choices); err != nil {
				return fmt.Errorf("choices: %w", err)
			}
			out.Choices = Literal(choices)
		default:
			var v any
			if err := json.Unmarshal(val, &v); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if out.Extra == nil {
				out.Extra = make(map[string]any)
			}
			out.Extra[key] = v
		}
	}
	*q = out
	return nil
}
