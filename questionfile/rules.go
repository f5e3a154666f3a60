package questionfile

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	inquire "github.com/Paranoid-AF/inquire"
)

type rules struct {
	Required  bool   `yaml:"required" json:"required"`
	Pattern   string `yaml:"pattern" json:"pattern"`
	MinLength *int   `yaml:"min_length" json:"min_length"`
	MaxLength *int   `yaml:"max_length" json:"max_length"`
	// Message replaces the reason of every rejection.
	Message string `yaml:"message" json:"message"`
}

// conversion turns a raw answer into the type a filter promises.
type conversion struct {
	apply  func(any) (any, error)
	reason string
}

// validator builds one Validator from r. r may be nil when only conv applies.
func (r *rules) validator(question string, conv *conversion) (inquire.Validator, error) {
	var re *regexp.Regexp
	if r != nil && r.Pattern != "" {
		var err error
		re, err = regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("validate.pattern: %w", err)
		}
	}

	reject := func(reason string) error {
		if r != nil && r.Message != "" {
			reason = r.Message
		}
		return inquire.Reject(reason)
	}

	return func(v any) error {
		if r != nil {
			if r.Required && empty(v) {
				return reject(question + " is required")
			}
			n := length(v)
			if r.MinLength != nil && n < *r.MinLength {
				return reject(fmt.Sprintf("%s must be at least %d long", question, *r.MinLength))
			}
			if r.MaxLength != nil && n > *r.MaxLength {
				return reject(fmt.Sprintf("%s must be at most %d long", question, *r.MaxLength))
			}
			if re != nil && !re.MatchString(text(v)) {
				return reject(fmt.Sprintf("%s must match %s", question, re))
			}
		}
		if conv != nil {
			if _, err := conv.apply(v); err != nil {
				return reject(conv.reason)
			}
		}
		return nil
	}, nil
}

func empty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// length counts runes of strings and members of lists.
func length(v any) int {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len()
	}
	return utf8.RuneCountInString(text(v))
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// filterFor maps a filter name to a Filter. Converting filters also return
// the conversion so the validator can reject values they cannot convert.
func filterFor(name string) (inquire.Filter, *conversion, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return nil, nil, nil
	case "trim":
		return mapString(strings.TrimSpace), nil, nil
	case "lower":
		return mapString(strings.ToLower), nil, nil
	case "upper":
		return mapString(strings.ToUpper), nil, nil
	case "int":
		c := &conversion{apply: toInt, reason: "please enter a whole number"}
		return c.apply, c, nil
	case "number":
		c := &conversion{apply: toNumber, reason: "please enter a number"}
		return c.apply, c, nil
	default:
		return nil, nil, fmt.Errorf("unknown filter %q (expected trim|lower|upper|int|number)", name)
	}
}

func mapString(fn func(string) string) inquire.Filter {
	return func(v any) (any, error) {
		if s, ok := v.(string); ok {
			return fn(s), nil
		}
		return v, nil
	}
}

func toInt(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("%v is not a whole number", x)
		}
		return int(x), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(x))
	}
	return nil, fmt.Errorf("cannot convert %T to int", v)
}

func toNumber(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return nil, fmt.Errorf("cannot convert %T to number", v)
}
