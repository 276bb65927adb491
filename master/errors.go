package master

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when no live record exists for the identifier.
	ErrNotFound = errors.New("master: not found")
	// ErrConflict signals a uniqueness violation (slug within group and type).
	ErrConflict = errors.New("master: conflict")
	// ErrValidation wraps every ValidationError.
	ErrValidation = errors.New("master: validation failed")
)

// Kind classifies an error for the response envelope.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindUnknown    Kind = "unknown"
)

// Classify maps err onto the fixed error taxonomy.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindUnknown
	}
}

// ValidationError lists the failed rules per field.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Add records a failed rule for field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no failure was recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}
