/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// DefaultGroup is the constraint group used when no groups are configured.
const DefaultGroup = "default"

// DefaultTagName is the struct tag key of DefaultGroup.
const DefaultTagName = "validate"

// Validatable is implemented by argument types that declare constraints.
// Arguments of other types are never validated.
type Validatable interface {
	DeclaresConstraints()
}

// Validator validates arguments against constraint groups.
// It's safe for concurrent use. Struct metadata is cached per group, so a Validator
// should be created once and reused (see Default).
type Validator struct {
	mu      sync.RWMutex
	groups  map[string]string
	byTag   map[string]*validator.Validate
	setupFn func(v *validator.Validate)
}

// Opts contains optional parameters for constructing Validator.
type Opts struct {
	// Setup is called for every underlying validator instance right after its creation.
	// It may be used for registering custom validation functions.
	Setup func(v *validator.Validate)
}

// New creates a new Validator with the default group registered.
func New() *Validator {
	return NewWithOpts(Opts{})
}

// NewWithOpts creates a new Validator with the default group registered
// and with an ability to specify different optional parameters.
func NewWithOpts(opts Opts) *Validator {
	return &Validator{
		groups:  map[string]string{DefaultGroup: DefaultTagName},
		byTag:   make(map[string]*validator.Validate),
		setupFn: opts.Setup,
	}
}

var (
	defaultValidator     *Validator
	defaultValidatorOnce sync.Once
)

// Default returns the process-wide Validator. It's created on the first call and reused afterwards.
func Default() *Validator {
	defaultValidatorOnce.Do(func() {
		defaultValidator = New()
	})
	return defaultValidator
}

// RegisterGroup binds a constraint group to a struct tag key.
// Re-registering a group with the same tag is a no-op.
func (v *Validator) RegisterGroup(group, tagName string) error {
	group, tagName = strings.TrimSpace(group), strings.TrimSpace(tagName)
	if group == "" || tagName == "" {
		return fmt.Errorf("group name and tag name cannot be empty")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if existing, ok := v.groups[group]; ok && existing != tagName {
		return fmt.Errorf("group %q is already bound to tag %q", group, existing)
	}
	v.groups[group] = tagName
	return nil
}

// ParseGroups parses a semicolon-separated list of group identifiers.
// Whitespace around identifiers is trimmed and empty identifiers are dropped.
func ParseGroups(raw string) []string {
	var groups []string
	for _, g := range strings.Split(raw, ";") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

// Validate checks arg against the constraints of the effective groups.
// The effective groups are the ones carried by ctx (see NewContextWithGroups) if present,
// otherwise configuredGroups; an empty set means DefaultGroup.
// All violations are collected and returned as *Error.
// An unregistered group leads to *UnknownGroupError before anything is validated.
func (v *Validator) Validate(ctx context.Context, arg interface{}, configuredGroups []string) error {
	if _, ok := arg.(Validatable); !ok {
		return nil
	}

	groups := configuredGroups
	if ctxGroups, ok := GetGroupsFromContext(ctx); ok {
		groups = ctxGroups
	}
	if len(groups) == 0 {
		groups = []string{DefaultGroup}
	}

	validators := make([]*validator.Validate, 0, len(groups))
	for _, group := range groups {
		gv, err := v.validatorForGroup(group)
		if err != nil {
			return err
		}
		validators = append(validators, gv)
	}

	var violations []Violation
	seen := make(map[Violation]struct{})
	for _, gv := range validators {
		err := gv.StructCtx(ctx, arg)
		if err == nil {
			continue
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate %T: %w", arg, err)
		}
		for _, fe := range fieldErrs {
			violation := Violation{FieldPath: fieldPath(fe), Message: violationMessage(fe)}
			if _, dup := seen[violation]; dup {
				continue
			}
			seen[violation] = struct{}{}
			violations = append(violations, violation)
		}
	}
	if len(violations) != 0 {
		return &Error{Violations: violations}
	}
	return nil
}

func (v *Validator) validatorForGroup(group string) (*validator.Validate, error) {
	v.mu.RLock()
	tagName, known := v.groups[group]
	gv := v.byTag[tagName]
	v.mu.RUnlock()
	if !known {
		return nil, &UnknownGroupError{Group: group}
	}
	if gv != nil {
		return gv, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if gv = v.byTag[tagName]; gv != nil {
		return gv, nil
	}
	gv = validator.New()
	gv.SetTagName(tagName)
	gv.RegisterTagNameFunc(jsonFieldName)
	if v.setupFn != nil {
		v.setupFn(gv)
	}
	v.byTag[tagName] = gv
	return gv, nil
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// fieldPath returns the namespace of the failed field without the root struct name.
func fieldPath(fe validator.FieldError) string {
	if _, rest, found := strings.Cut(fe.Namespace(), "."); found {
		return rest
	}
	return fe.Field()
}

func violationMessage(fe validator.FieldError) string {
	sized := false
	switch fe.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		sized = true
	}
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "email":
		return "must be a well-formed email address"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "len":
		if sized {
			return fmt.Sprintf("size must be %s", fe.Param())
		}
		return fmt.Sprintf("must be equal to %s", fe.Param())
	case "min", "gte":
		if sized {
			return fmt.Sprintf("size must be at least %s", fe.Param())
		}
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "max", "lte":
		if sized {
			return fmt.Sprintf("size must be at most %s", fe.Param())
		}
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	}
	if fe.Param() != "" {
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("must satisfy %s", fe.Tag())
}
