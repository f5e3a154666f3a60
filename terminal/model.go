package terminal

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	inquire "github.com/Paranoid-AF/inquire"
)

type kind int

const (
	kindInput kind = iota
	kindPassword
	kindNumber
	kindConfirm
	kindList
	kindCheckbox
)

func kindOf(q *inquire.Question) kind {
	switch strings.ToLower(q.Type) {
	case "password":
		return kindPassword
	case "number":
		return kindNumber
	case "confirm":
		return kindConfirm
	case "list", "rawlist", "expand":
		return kindList
	case "checkbox":
		return kindCheckbox
	}
	if len(q.Choices.Value()) > 0 {
		return kindList
	}
	return kindInput
}

// model renders one question until it is answered or aborted.
type model struct {
	q       *inquire.Question
	kind    kind
	styles  styles
	notice  string
	problem string

	input    textinput.Model
	choices  []inquire.Choice
	cursor   int
	selected map[int]bool

	done    bool
	aborted bool
	value   any
}

func newModel(q *inquire.Question, notice string, st styles) model {
	m := model{
		q:        q,
		kind:     kindOf(q),
		styles:   st,
		notice:   notice,
		choices:  q.Choices.Value(),
		selected: make(map[int]bool),
	}
	def := q.Default.Value()
	switch m.kind {
	case kindInput, kindPassword, kindNumber:
		m.input = textinput.New()
		m.input.Prompt = ""
		if def != nil {
			m.input.Placeholder = fmt.Sprint(def)
		}
		if m.kind == kindPassword {
			m.input.EchoMode = textinput.EchoPassword
			m.input.EchoCharacter = '*'
			if mask, ok := q.Extra["mask"].(string); ok && mask != "" {
				m.input.EchoCharacter = []rune(mask)[0]
			}
		}
		m.input.Focus()
	case kindList:
		m.cursor = defaultIndex(m.choices, def)
	case kindCheckbox:
		for _, d := range asSlice(def) {
			for i, c := range m.choices {
				if reflect.DeepEqual(c.Answer(), d) {
					m.selected[i] = true
				}
			}
		}
	}
	return m
}

// defaultIndex finds the choice a default points at, either by value or by index.
func defaultIndex(choices []inquire.Choice, def any) int {
	switch d := def.(type) {
	case nil:
		return 0
	case int:
		if d >= 0 && d < len(choices) {
			return d
		}
	case float64:
		if i := int(d); float64(i) == d && i >= 0 && i < len(choices) {
			return i
		}
	}
	for i, c := range choices {
		if reflect.DeepEqual(c.Answer(), def) || reflect.DeepEqual(c.Name, def) {
			return i
		}
	}
	return 0
}

func asSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	case nil:
		return nil
	}
	return []any{v}
}

func (m model) Init() tea.Cmd {
	switch m.kind {
	case kindInput, kindPassword, kindNumber:
		return textinput.Blink
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.kind == kindInput || m.kind == kindPassword || m.kind == kindNumber {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	if key.Type == tea.KeyCtrlC {
		m.aborted = true
		return m, tea.Quit
	}

	switch m.kind {
	case kindInput, kindPassword, kindNumber:
		return m.updateText(key)
	case kindConfirm:
		return m.updateConfirm(key)
	case kindList:
		return m.updateList(key)
	case kindCheckbox:
		return m.updateCheckbox(key)
	}
	return m, nil
}

func (m model) updateText(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(key)
		m.problem = ""
		return m, cmd
	}
	text := m.input.Value()
	if text == "" && m.q.Default.Value() != nil {
		return m.finish(m.q.Default.Value())
	}
	if m.kind != kindNumber {
		return m.finish(text)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		m.problem = "please enter a number"
		return m, nil
	}
	return m.finish(n)
}

func (m model) updateConfirm(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(key.String()) {
	case "y":
		return m.finish(true)
	case "n":
		return m.finish(false)
	case "enter":
		def, _ := m.q.Default.Value().(bool)
		return m.finish(def)
	}
	return m, nil
}

func (m model) updateList(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.choices) == 0 {
			return m.finish(nil)
		}
		return m.finish(m.choices[m.cursor].Answer())
	}
	return m, nil
}

func (m model) updateCheckbox(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case " ":
		m.selected[m.cursor] = !m.selected[m.cursor]
	case "enter":
		picked := []any{}
		for i, c := range m.choices {
			if m.selected[i] {
				picked = append(picked, c.Answer())
			}
		}
		return m.finish(picked)
	}
	return m, nil
}

func (m model) finish(v any) (tea.Model, tea.Cmd) {
	m.value = v
	m.done = true
	return m, tea.Quit
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.mark.Render("?"))
	b.WriteString(" ")
	b.WriteString(m.styles.message.Render(m.q.Message.Value()))
	b.WriteString(" ")

	if m.done {
		b.WriteString(m.styles.answer.Render(m.summary()))
		b.WriteString("\n")
		return b.String()
	}

	switch m.kind {
	case kindInput, kindPassword, kindNumber:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	case kindConfirm:
		def, _ := m.q.Default.Value().(bool)
		if def {
			b.WriteString(m.styles.hint.Render("(Y/n)"))
		} else {
			b.WriteString(m.styles.hint.Render("(y/N)"))
		}
		b.WriteString("\n")
	case kindList, kindCheckbox:
		if m.kind == kindCheckbox {
			b.WriteString(m.styles.hint.Render("(space to select, enter to confirm)"))
		}
		b.WriteString("\n")
		for i, c := range m.choices {
			pointer := "  "
			if i == m.cursor {
				pointer = m.styles.pointer.Render(">") + " "
			}
			b.WriteString(pointer)
			if m.kind == kindCheckbox {
				if m.selected[i] {
					b.WriteString("[x] ")
				} else {
					b.WriteString("[ ] ")
				}
			}
			if i == m.cursor {
				b.WriteString(m.styles.answer.Render(c.Name))
			} else {
				b.WriteString(c.Name)
			}
			b.WriteString("\n")
		}
	}

	if m.problem != "" {
		b.WriteString(m.styles.notice.Render(">> " + m.problem))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(m.styles.notice.Render(">> " + m.notice))
		b.WriteString("\n")
	}
	return b.String()
}

// summary is the answer echoed after the question closes.
func (m model) summary() string {
	switch m.kind {
	case kindPassword:
		return strings.Repeat(string(m.input.EchoCharacter), len([]rune(m.input.Value())))
	case kindList:
		if len(m.choices) > 0 {
			c := m.choices[m.cursor]
			if c.Short != "" {
				return c.Short
			}
			return c.Name
		}
	case kindCheckbox:
		var names []string
		for i, c := range m.choices {
			if m.selected[i] {
				names = append(names, c.Name)
			}
		}
		return strings.Join(names, ", ")
	}
	return fmt.Sprint(m.value)
}
