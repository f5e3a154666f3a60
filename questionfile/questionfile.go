// Package questionfile loads questions declared in YAML or JSON files and
// answer maps for scripted peers.
package questionfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	inquire "github.com/Paranoid-AF/inquire"
)

// Error lists every problem found in a question file.
type Error struct {
	Path   string
	Issues []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid question file %s: %s", e.Path, strings.Join(e.Issues, "; "))
}

type file struct {
	Questions []questionSpec `yaml:"questions" json:"questions"`
}

type questionSpec struct {
	Name     string         `yaml:"name" json:"name"`
	Type     string         `yaml:"type" json:"type"`
	Message  string         `yaml:"message" json:"message"`
	Default  any            `yaml:"default" json:"default"`
	Choices  []choiceSpec   `yaml:"choices" json:"choices"`
	When     string         `yaml:"when" json:"when"`
	Validate *rules         `yaml:"validate" json:"validate"`
	Filter   string         `yaml:"filter" json:"filter"`
	Extra    map[string]any `yaml:"extra" json:"extra"`
}

// choiceSpec accepts a bare name or a {name, value, short} mapping.
type choiceSpec struct {
	inquire.Choice
}

func (c *choiceSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.Name = node.Value
		return nil
	}
	var raw struct {
		Name  string `yaml:"name"`
		Value any    `yaml:"value"`
		Short string `yaml:"short"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	c.Choice = inquire.Choice{Name: raw.Name, Value: raw.Value, Short: raw.Short}
	return nil
}

// Load reads questions from a .yaml, .yml or .json file.
func Load(path string) ([]*inquire.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question file %s: %w", path, err)
	}
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	questions, err := Parse(data, format)
	if err != nil {
		var ferr *Error
		if errors.As(err, &ferr) {
			ferr.Path = path
			return nil, ferr
		}
		return nil, fmt.Errorf("parse question file %s: %w", path, err)
	}
	return questions, nil
}

// Parse decodes questions in format "yaml" or "json". Unknown keys are errors.
func Parse(data []byte, format string) ([]*inquire.Question, error) {
	var f file
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported question file format %q", format)
	}
	return build(f)
}

func build(f file) ([]*inquire.Question, error) {
	var issues []string
	seen := make(map[string]bool, len(f.Questions))
	questions := make([]*inquire.Question, 0, len(f.Questions))
	tpl := templater{}
	for _, spec := range f.Questions {
		if name := strings.TrimSpace(spec.Name); name != "" {
			tpl.names = append(tpl.names, name)
		}
	}

	for i, spec := range f.Questions {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			issues = append(issues, fmt.Sprintf("question %d has no name", i+1))
			continue
		}
		if seen[name] {
			issues = append(issues, "duplicate question name "+name)
			continue
		}
		seen[name] = true

		q, err := spec.question(name, tpl)
		if err != nil {
			issues = append(issues, fmt.Sprintf("question %s: %v", name, err))
			continue
		}
		questions = append(questions, q)
	}
	if len(issues) > 0 {
		return nil, &Error{Issues: issues}
	}
	return questions, nil
}

func (s questionSpec) question(name string, tpl templater) (*inquire.Question, error) {
	q := &inquire.Question{Name: name, Type: s.Type, Extra: s.Extra}

	if s.Message != "" {
		msg, err := tpl.stringField(name, "message", s.Message)
		if err != nil {
			return nil, err
		}
		q.Message = msg
	}

	if text, ok := s.Default.(string); ok && isTemplate(text) {
		def, err := tpl.anyField(name, "default", text)
		if err != nil {
			return nil, err
		}
		q.Default = def
	} else if s.Default != nil {
		q.Default = inquire.Literal(s.Default)
	}

	if len(s.Choices) > 0 {
		choices := make([]inquire.Choice, len(s.Choices))
		for i, c := range s.Choices {
			choices[i] = c.Choice
		}
		q.Choices = inquire.Literal(choices)
	}

	if s.When != "" {
		when, err := tpl.predicate(name, s.When)
		if err != nil {
			return nil, err
		}
		q.When = when
	}

	filter, convert, err := filterFor(s.Filter)
	if err != nil {
		return nil, err
	}
	q.Filter = filter

	if s.Validate != nil || convert != nil {
		v, err := s.Validate.validator(name, convert)
		if err != nil {
			return nil, err
		}
		q.Validate = v
	}
	return q, nil
}

// LoadAnswers reads a question name to answer map from a .yaml, .yml, .json
// or .toml file.
func LoadAnswers(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers file %s: %w", path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	answers := make(map[string]any)
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &answers)
	case ".json":
		err = json.Unmarshal(data, &answers)
	case ".toml":
		_, err = toml.Decode(string(data), &answers)
	default:
		return nil, fmt.Errorf("answers file %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse answers file %s: %w", path, err)
	}
	return answers, nil
}

func formatOf(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".json":
		return "json", nil
	default:
		return "", fmt.Errorf("question file %s: unsupported extension %q", path, ext)
	}
}
