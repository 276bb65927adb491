// Package validate checks master attributes against per-field CEL rules.
// Each rule sees the field value as "self", e.g. "self.size() <= 255".
package validate

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"masterdata/master"
)

// Validator implements master.Validator.
type Validator struct {
	env      *cel.Env
	rules    map[string][]string
	required []string

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// New compiles every rule up front so a bad expression fails at startup.
func New(rules map[string][]string, required []string) (*Validator, error) {
	env, err := cel.NewEnv(
		cel.Variable("self", cel.DynType),
		cel.HomogeneousAggregateLiterals(),
		cel.EagerlyValidateDeclarations(true),
		cel.DefaultUTCTimeZone(true),
	)
	if err != nil {
		return nil, fmt.Errorf("validate: cel env: %w", err)
	}

	v := &Validator{
		env:      env,
		rules:    make(map[string][]string, len(rules)),
		required: append([]string(nil), required...),
		cache:    make(map[string]cel.Program),
	}
	for field, exprs := range rules {
		for _, expr := range exprs {
			if _, err := v.compile(expr); err != nil {
				return nil, fmt.Errorf("validate: rule for %s: %w", field, err)
			}
		}
		v.rules[field] = append([]string(nil), exprs...)
	}
	return v, nil
}

// ValidateCreate requires every configured field and checks the rules of
// the supplied ones.
func (v *Validator) ValidateCreate(attrs master.Attributes) error {
	fields := attrs.Fields()
	verr := &master.ValidationError{}
	for _, name := range v.required {
		value, ok := fields[name]
		if !ok || isBlank(value) {
			verr.Add(name, "is required")
		}
	}
	v.check(fields, verr)
	if verr.Empty() {
		return nil
	}
	return verr
}

// ValidateUpdate checks only the supplied fields. A required field may be
// omitted but not blanked.
func (v *Validator) ValidateUpdate(attrs master.Attributes) error {
	fields := attrs.Fields()
	verr := &master.ValidationError{}
	for _, name := range v.required {
		if value, ok := fields[name]; ok && isBlank(value) {
			verr.Add(name, "is required")
		}
	}
	v.check(fields, verr)
	if verr.Empty() {
		return nil
	}
	return verr
}

func (v *Validator) check(fields map[string]any, verr *master.ValidationError) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, expr := range v.rules[name] {
			ok, err := v.eval(expr, fields[name])
			switch {
			case err != nil:
				verr.Add(name, fmt.Sprintf("cannot evaluate %q: %v", expr, err))
			case !ok:
				verr.Add(name, fmt.Sprintf("failed rule %q", expr))
			}
		}
	}
}

func (v *Validator) eval(expr string, value any) (bool, error) {
	prg, err := v.compile(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{"self": value})
	if err != nil {
		return false, err
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("rule returned %s, want bool", out.Type().TypeName())
	}
	return bool(b), nil
}

func (v *Validator) compile(expr string) (cel.Program, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("empty expression")
	}

	v.mu.RLock()
	prg, ok := v.cache[expr]
	v.mu.RUnlock()
	if ok {
		return prg, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if prg, ok := v.cache[expr]; ok {
		return prg, nil
	}

	ast, issues := v.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	prg, err := v.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	v.cache[expr] = prg
	return prg, nil
}

func isBlank(value any) bool {
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}
