// Package validation checks product requests before they reach a handler.
//
// A Chain is an ordered list of Rules. Every rule runs against the whole
// request and failures accumulate in rule order.
package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Location names the part of the request a rule reads.
type Location string

const (
	Body   Location = "body"
	Params Location = "params"
)

// FieldError is one failed rule as reported to the client.
type FieldError struct {
	Type     string   `json:"type"`
	Value    any      `json:"value,omitempty"`
	Msg      string   `json:"msg"`
	Path     string   `json:"path"`
	Location Location `json:"location"`
}

// Input is the raw data a Chain is evaluated against.
type Input struct {
	Body   map[string]any
	Params map[string]string
}

func (in Input) lookup(loc Location, field string) (any, bool) {
	switch loc {
	case Body:
		v, ok := in.Body[field]
		return v, ok
	case Params:
		v, ok := in.Params[field]
		return v, ok
	}
	return nil, false
}

// Rule is a single predicate over one field, reported with Message when it
// does not hold.
type Rule struct {
	Location Location
	Field    string
	Message  string
	Check    func(value any, present bool) bool
}

// Chain is an ordered set of rules evaluated independently.
type Chain []Rule

// Validate runs every rule in order and returns the failures. A nil result
// means the input is valid.
func (ch Chain) Validate(in Input) []FieldError {
	var errs []FieldError
	for _, rule := range ch {
		value, present := in.lookup(rule.Location, rule.Field)
		if rule.Check(value, present) {
			continue
		}
		errs = append(errs, FieldError{
			Type:     "field",
			Value:    value,
			Msg:      rule.Message,
			Path:     rule.Field,
			Location: rule.Location,
		})
	}
	return errs
}

var (
	validate = newValidator()

	integerRegex = regexp.MustCompile(`^[-+]?(?:0|[1-9][0-9]*)$`)
	decimalRegex = regexp.MustCompile(`^[-+]?(?:[0-9]*\.)?[0-9]+$`)
)

// booleanStrings are the only spellings the boolean rule accepts.
var booleanStrings = map[string]bool{
	"true":  true,
	"false": true,
	"1":     true,
	"0":     true,
}

func newValidator() *validator.Validate {
	v := validator.New()
	tags := map[string]validator.Func{
		"integer": func(fl validator.FieldLevel) bool {
			return integerRegex.MatchString(fl.Field().String())
		},
		"decimal": func(fl validator.FieldLevel) bool {
			return decimalRegex.MatchString(fl.Field().String())
		},
		"strictbool": func(fl validator.FieldLevel) bool {
			return booleanStrings[fl.Field().String()]
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("validation: register %s tag: %v", tag, err))
		}
	}
	return v
}

// tagRule builds a rule that checks the string form of a value against a
// validator tag.
func tagRule(loc Location, field, tag, message string) Rule {
	return Rule{
		Location: loc,
		Field:    field,
		Message:  message,
		Check: func(value any, _ bool) bool {
			return validate.Var(Stringify(value), tag) == nil
		},
	}
}

// NotEmpty fails when the field is absent, null or an empty string.
func NotEmpty(loc Location, field, message string) Rule {
	return tagRule(loc, field, "required", message)
}

// Numeric fails unless the field is a decimal number or numeric string.
// The integer part may be omitted, as in ".5".
func Numeric(loc Location, field, message string) Rule {
	return tagRule(loc, field, "decimal", message)
}

// Boolean fails unless the field is true, false, 1 or 0, either as JSON or
// as a string.
func Boolean(loc Location, field, message string) Rule {
	return tagRule(loc, field, "strictbool", message)
}

// Integer fails unless the field is a base-10 integer without leading zeros.
func Integer(loc Location, field, message string) Rule {
	return tagRule(loc, field, "integer", message)
}

// Positive fails unless the field compares greater than zero. Numeric
// strings are parsed, true counts as one, and absent or unparsable values
// fail.
func Positive(loc Location, field, message string) Rule {
	return Rule{
		Location: loc,
		Field:    field,
		Message:  message,
		Check: func(value any, present bool) bool {
			if !present {
				return false
			}
			n, ok := toNumber(value)
			return ok && n > 0
		},
	}
}

// Stringify renders a decoded JSON value the way the string-based rules
// see it.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// Float returns the numeric value of a validated body field.
func Float(value any) float64 {
	f, _ := toNumber(value)
	return f
}

// Bool returns the boolean value of a validated body field.
func Bool(value any) bool {
	if b, ok := value.(bool); ok {
		return b
	}
	s := Stringify(value)
	return s == "true" || s == "1"
}
