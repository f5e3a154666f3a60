package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"mvdan.cc/sh/v3/syntax"

	inquire "github.com/Paranoid-AF/inquire"
)

const (
	formatJSON = "json"
	formatTOML = "toml"
	formatEnv  = "env"
)

func isFormat(f string) bool {
	return f == formatJSON || f == formatTOML || f == formatEnv
}

func writeAnswers(w io.Writer, answers *inquire.Answers, format string) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(answers, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case formatTOML:
		values := make(map[string]any, answers.Len())
		for name, v := range answers.Map() {
			if v != nil {
				values[name] = v
			}
		}
		return toml.NewEncoder(w).Encode(values)
	case formatEnv:
		return writeEnv(w, answers)
	}
	return fmt.Errorf("invalid format %q", format)
}

// writeEnv prints NAME='value' lines that a POSIX shell can eval, in question order.
func writeEnv(w io.Writer, answers *inquire.Answers) error {
	for _, name := range answers.Names() {
		v, _ := answers.Get(name)
		s, err := envValue(v)
		if err != nil {
			return fmt.Errorf("answer %q: %w", name, err)
		}
		quoted, err := syntax.Quote(s, syntax.LangBash)
		if err != nil {
			return fmt.Errorf("answer %q: %w", name, err)
		}
		if _, err := fmt.Fprintf(w, "%s=%s\n", envName(name), quoted); err != nil {
			return err
		}
	}
	return nil
}

func envValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// envName upper-cases name and replaces anything a shell variable cannot hold.
func envName(name string) string {
	var b strings.Builder
	for i, r := range strings.ToUpper(name) {
		switch {
		case r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
