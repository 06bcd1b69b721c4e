package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldError describes a single rejected form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors collects every field error found while checking a submission so
// the client can highlight all of them at once.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a failure for field.
func (e *Errors) Add(field, format string, args ...any) {
	*e = append(*e, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Merge appends other's errors with every field prefixed.
func (e *Errors) Merge(prefix string, other error) {
	if other == nil {
		return
	}
	errs, ok := other.(Errors)
	if !ok {
		e.Add(prefix, "%v", other)
		return
	}
	for _, fe := range errs {
		field := fe.Field
		if prefix != "" {
			field = prefix + "." + fe.Field
		}
		*e = append(*e, FieldError{Field: field, Message: fe.Message})
	}
}

// Err returns nil when nothing was recorded.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Has reports whether field (exact match) failed.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func (e *Errors) Length(field, value string, min, max int) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case n < min && min == 1:
		e.Add(field, "is required")
	case n < min:
		e.Add(field, "must be at least %d characters", min)
	case max > 0 && n > max:
		e.Add(field, "must be at most %d characters", max)
	}
}

func (e *Errors) Range(field string, value, min, max int) {
	if value < min || value > max {
		e.Add(field, "must be between %d and %d", min, max)
	}
}

func (e *Errors) NonNegative(field string, value int) {
	if value < 0 {
		e.Add(field, "must be a non-negative integer")
	}
}

func (e *Errors) OneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	e.Add(field, "must be one of %s", strings.Join(allowed, ", "))
}

func (e *Errors) HTTPURL(field, value string) {
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		e.Add(field, "must be an http(s) URL")
	}
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

func (e *Errors) Phone(field, value string) {
	if !phonePattern.MatchString(value) {
		e.Add(field, "must contain 10 to 15 digits")
	}
}
