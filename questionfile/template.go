package questionfile

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	inquire "github.com/Paranoid-AF/inquire"
)

func isTemplate(s string) bool {
	return strings.Contains(s, "{{")
}

// templater renders message, default and when templates of one file. Every
// question the file declares is a key of the template data, so a question
// that has no answer yet renders as "".
type templater struct {
	names []string
}

func (t templater) parse(question, field, text string) (*template.Template, error) {
	tmpl, err := template.New(question + "." + field).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return tmpl, nil
}

// render executes tmpl with the answers so far, keyed by question name.
func (t templater) render(tmpl *template.Template, a inquire.View) (string, error) {
	data := make(map[string]any, len(t.names)+a.Len())
	for _, name := range t.names {
		data[name] = ""
	}
	for _, name := range a.Names() {
		v, _ := a.Get(name)
		data[name] = v
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (t templater) stringField(question, field, text string) (inquire.Field[string], error) {
	if !isTemplate(text) {
		return inquire.Literal(text), nil
	}
	tmpl, err := t.parse(question, field, text)
	if err != nil {
		return inquire.Field[string]{}, err
	}
	return inquire.Computed(func(a inquire.View) (string, error) {
		return t.render(tmpl, a)
	}), nil
}

func (t templater) anyField(question, field, text string) (inquire.Field[any], error) {
	tmpl, err := t.parse(question, field, text)
	if err != nil {
		return inquire.Field[any]{}, err
	}
	return inquire.Computed(func(a inquire.View) (any, error) {
		return t.render(tmpl, a)
	}), nil
}

// predicate asks the question when text renders to a true boolean.
func (t templater) predicate(question, text string) (inquire.Predicate, error) {
	tmpl, err := t.parse(question, "when", text)
	if err != nil {
		return nil, err
	}
	return func(a inquire.View) (bool, error) {
		out, err := t.render(tmpl, a)
		if err != nil {
			return false, err
		}
		out = strings.TrimSpace(out)
		if out == "" || out == "<no value>" {
			return false, nil
		}
		ok, err := strconv.ParseBool(out)
		if err != nil {
			return false, fmt.Errorf("when rendered %q, want true or false", out)
		}
		return ok, nil
	}, nil
}
