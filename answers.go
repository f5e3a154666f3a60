package inquire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// View is read-only access to answers collected so far. Computed fields and
// When predicates receive a View.
type View interface {
	Get(name string) (any, bool)
	Has(name string) bool
	Names() []string
	Len() int
}

// Answers maps question names to stored answers, keeping insertion order.
// The zero value is an empty map ready to use.
type Answers struct {
	names  []string
	values map[string]any
}

var _ View = (*Answers)(nil)

// NewAnswers returns an empty answer map.
func NewAnswers() *Answers {
	return &Answers{values: make(map[string]any)}
}

// Set stores v under name. A name keeps its original position when set again.
func (a *Answers) Set(name string, v any) {
	if a.values == nil {
		a.values = make(map[string]any)
	}
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = v
}

// Get returns the answer stored under name.
func (a *Answers) Get(name string) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a.values[name]
	return v, ok
}

// Has reports whether name has an answer.
func (a *Answers) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// String returns the answer under name formatted with %v, or "" when absent.
func (a *Answers) String(name string) string {
	v, ok := a.Get(name)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Names returns answer names in insertion order.
func (a *Answers) Names() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Len returns the number of answers.
func (a *Answers) Len() int {
	if a == nil {
		return 0
	}
	return len(a.names)
}

// Map returns a copy of the answers as a plain map.
func (a *Answers) Map() map[string]any {
	out := make(map[string]any, a.Len())
	if a == nil {
		return out
	}
	for _, name := range a.names {
		out[name] = a.values[name]
	}
	return out
}

// MarshalJSON encodes the answers as an object in insertion order.
func (a *Answers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range a.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a.values[name])
		if err != nil {
			return nil, fmt.Errorf("answer %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping keys in document order.
// Anything other than an object is an error.
func (a *Answers) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected an object keyed by question name")
	}
	out := NewAnswers()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*a = *out
	return nil
}
