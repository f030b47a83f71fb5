// Package inputval validates submitted forms with waffle's pantry/validate
// and turns rule failures into messages a person can act on.
//
// Tag a struct with `validate` rules and an optional `label`:
//
//	type input struct {
//	    Start string `validate:"required,isodate" label:"Start date"`
//	    Mood  string `validate:"mood" label:"Mood"`
//	}
//
//	if res := inputval.Validate(input{...}); res.HasErrors() {
//	    vm.Error = res.First()
//	}
package inputval

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/bloomcycle/bloom/internal/app/calendar"
	"github.com/dalemusser/waffle/pantry/validate"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

// Result collects the failures of one Validate call.
type Result struct {
	Errors []FieldError
}

func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

var (
	validator     *validate.Validator
	validatorOnce sync.Once
)

// stringRule adapts a string predicate. Empty values pass so optional fields
// work; combine with required when the field is mandatory.
func stringRule(ok func(string) bool) func(any) bool {
	return func(value any) bool {
		s, isString := value.(string)
		return isString && (s == "" || ok(s))
	}
}

func rules() *validate.Validator {
	validatorOnce.Do(func() {
		validator = validate.New(validate.WithStopOnFirstError())
		validator.RegisterRuleFunc("isodate", stringRule(IsISODate), "isodate")
		validator.RegisterRuleFunc("mood", stringRule(calendar.IsMood), "mood")
	})
	return validator
}

// Validate checks s against its `validate` tags. Beyond pantry/validate's
// built-in rules (required, email, oneof, min, max, timezone) it knows
// isodate (a real YYYY-MM-DD day) and mood (a check-in mood key).
func Validate(s any) *Result {
	res := &Result{}
	var errs validate.Errors
	if err := rules().Struct(s); !errors.As(err, &errs) {
		return res
	}

	labels := fieldLabels(s)
	for _, e := range errs {
		label := labels[e.Field]
		if label == "" {
			label = e.Field
		}
		res.Errors = append(res.Errors, FieldError{
			Field:   e.Field,
			Label:   label,
			Message: message(label, e.Rule, e.Param),
		})
	}
	return res
}

// fieldLabels maps each field's reported name (its json name when tagged)
// to its label tag.
func fieldLabels(s any) map[string]string {
	labels := map[string]string{}
	t := reflect.TypeOf(s)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return labels
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		label := f.Tag.Get("label")
		if label == "" {
			continue
		}
		name := f.Name
		if j, _, _ := strings.Cut(f.Tag.Get("json"), ","); j != "" && j != "-" {
			name = j
		}
		labels[name] = label
	}
	return labels
}

func message(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "oneof", "enum":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "timezone":
		return label + " must be a valid time zone."
	case "min":
		return label + " must be at least " + param + " characters."
	case "max":
		return label + " must be at most " + param + " characters."
	case "isodate":
		return label + " must be a date (YYYY-MM-DD)."
	case "mood":
		return label + " must be one of: " + strings.Join(calendar.Moods(), ", ") + "."
	}
	return label + " is invalid."
}

// IsISODate reports whether s is a real YYYY-MM-DD date.
func IsISODate(s string) bool {
	_, ok := calendar.ParseDate(strings.TrimSpace(s))
	return ok
}

// IsNotFuture reports whether s is a valid date on or before today's
// calendar day. today is read in its own location.
func IsNotFuture(s string, today time.Time) bool {
	d, ok := calendar.ParseDate(strings.TrimSpace(s))
	if !ok {
		return false
	}
	return !d.After(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC))
}
