package questionfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	inquire "github.com/Paranoid-AF/inquire"
)

const sampleYAML = `
questions:
  - name: project
    message: Project name?
    default: demo
    filter: trim
    validate:
      required: true
      pattern: "^[a-z-]+$"
  - name: license
    type: list
    message: "License for {{ .project }}?"
    choices:
      - MIT
      - name: Apache 2.0
        value: apache-2.0
        short: Apache
  - name: port
    type: input
    default: "{{ if eq .license \"MIT\" }}8080{{ else }}9090{{ end }}"
    filter: int
  - name: confirm
    type: confirm
    when: '{{ eq .license "apache-2.0" }}'
    extra:
      pageSize: 5
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	questions, err := Load(writeFile(t, "q.yaml", sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if len(questions) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(questions))
	}

	project := questions[0]
	if project.Message.Value() != "Project name?" || project.Default.Value() != "demo" || project.Dynamic() {
		t.Errorf("unexpected project question %+v", project)
	}

	license := questions[1]
	if !license.Message.IsComputed() {
		t.Error("expected templated message to be computed")
	}
	choices := license.Choices.Value()
	if len(choices) != 2 || choices[0].Answer() != "MIT" || choices[1].Answer() != "apache-2.0" || choices[1].Short != "Apache" {
		t.Errorf("unexpected choices %+v", choices)
	}

	answers := inquire.NewAnswers()
	answers.Set("project", "demo")
	if err := license.Resolve(answers); err != nil {
		t.Fatal(err)
	}
	if license.Message.Value() != "License for demo?" {
		t.Errorf("expected rendered message, got %q", license.Message.Value())
	}

	if questions[3].Extra["pageSize"] != 5 {
		t.Errorf("expected extra pageSize, got %v", questions[3].Extra)
	}
}

func TestTemplatesSeePriorAnswers(t *testing.T) {
	questions, err := Load(writeFile(t, "q.yml", sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	port, confirm := questions[2], questions[3]

	answers := inquire.NewAnswers()
	answers.Set("license", "MIT")
	if err := port.Resolve(answers); err != nil {
		t.Fatal(err)
	}
	if port.Default.Value() != "8080" {
		t.Errorf("expected 8080, got %v", port.Default.Value())
	}
	asked, err := confirm.Asked(answers)
	if err != nil {
		t.Fatal(err)
	}
	if asked {
		t.Error("expected confirm hidden for MIT")
	}

	answers.Set("license", "apache-2.0")
	if asked, _ := confirm.Asked(answers); !asked {
		t.Error("expected confirm asked for apache-2.0")
	}
	if asked, _ := confirm.Asked(inquire.NewAnswers()); asked {
		t.Error("expected confirm hidden when license is missing")
	}
}

func TestTemplateUnansweredRendersEmpty(t *testing.T) {
	questions, err := Parse([]byte(`
questions:
  - name: name
    when: "false"
  - name: greet
    message: "hello {{ .name }}"
    default: "{{ .name }}"
`), "yaml")
	if err != nil {
		t.Fatal(err)
	}
	greet := questions[1]
	if err := greet.Resolve(inquire.NewAnswers()); err != nil {
		t.Fatal(err)
	}
	if got := greet.Message.Value(); got != "hello " {
		t.Errorf("expected %q, got %q", "hello ", got)
	}
	if got := greet.Default.Value(); got != "" {
		t.Errorf("expected empty default, got %q", got)
	}
}

func TestValidateAndFilter(t *testing.T) {
	questions, err := Load(writeFile(t, "q.yaml", sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	project, port := questions[0], questions[2]

	var verr *inquire.ValidationError
	if err := project.Check("   "); !errors.As(err, &verr) || verr.Reason != "project is required" {
		t.Errorf("expected required rejection, got %v", err)
	}
	if err := project.Check("Bad Name"); !errors.As(err, &verr) || !strings.Contains(verr.Reason, "must match") {
		t.Errorf("expected pattern rejection, got %v", err)
	}
	if err := project.Check("good-name"); err != nil {
		t.Errorf("expected accept, got %v", err)
	}
	if v, err := project.Apply("  demo  "); err != nil || v != "demo" {
		t.Errorf("expected trimmed demo, got %v %v", v, err)
	}

	if err := port.Check("eighty"); !errors.As(err, &verr) || verr.Reason != "please enter a whole number" {
		t.Errorf("expected int rejection, got %v", err)
	}
	if v, err := port.Apply("8080"); err != nil || v != 8080 {
		t.Errorf("expected 8080, got %v %v", v, err)
	}
	if v, err := port.Apply(float64(42)); err != nil || v != 42 {
		t.Errorf("expected 42, got %v %v", v, err)
	}
}

func TestCustomRejectionMessage(t *testing.T) {
	questions, err := Parse([]byte(`{"questions":[{"name":"code","validate":{"min_length":3,"max_length":4,"message":"three or four characters"}}]}`), "json")
	if err != nil {
		t.Fatal(err)
	}
	var verr *inquire.ValidationError
	for _, v := range []string{"ab", "abcde"} {
		if err := questions[0].Check(v); !errors.As(err, &verr) || verr.Reason != "three or four characters" {
			t.Errorf("%q: expected custom message, got %v", v, err)
		}
	}
	if err := questions[0].Check("abc"); err != nil {
		t.Errorf("expected accept, got %v", err)
	}
}

func TestLoadJSONChoices(t *testing.T) {
	path := writeFile(t, "q.json", `{"questions":[{"name":"pick","type":"list","choices":["a",{"name":"B","value":"b"}]}]}`)
	questions, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	choices := questions[0].Choices.Value()
	if len(choices) != 2 || choices[0].Answer() != "a" || choices[1].Answer() != "b" {
		t.Errorf("unexpected choices %+v", choices)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	if _, err := Load(writeFile(t, "q.yaml", "questions:\n  - name: a\n    colour: blue\n")); err == nil {
		t.Error("expected unknown yaml field error")
	}
	if _, err := Load(writeFile(t, "q.json", `{"questions":[{"name":"a","colour":"blue"}]}`)); err == nil {
		t.Error("expected unknown json field error")
	}
}

func TestLoadAggregatesIssues(t *testing.T) {
	path := writeFile(t, "q.yaml", `
questions:
  - name: a
  - name: a
  - message: nameless
  - name: b
    filter: reverse
`)
	_, err := Load(path)
	var ferr *Error
	if !errors.As(err, &ferr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if ferr.Path != path || len(ferr.Issues) != 3 {
		t.Errorf("expected three issues for %s, got %+v", path, ferr)
	}
}

func TestLoadBadExtension(t *testing.T) {
	if _, err := Load(writeFile(t, "q.txt", "questions: []")); err == nil {
		t.Error("expected unsupported extension error")
	}
}

func TestLoadAnswers(t *testing.T) {
	cases := map[string]string{
		"a.yaml": "name: ann\nage: 30\n",
		"a.json": `{"name":"ann","age":30}`,
		"a.toml": "name = \"ann\"\nage = 30\n",
	}
	for file, content := range cases {
		answers, err := LoadAnswers(writeFile(t, file, content))
		if err != nil {
			t.Fatalf("%s: %v", file, err)
		}
		if answers["name"] != "ann" || answers["age"] == nil {
			t.Errorf("%s: unexpected answers %v", file, answers)
		}
	}
}
