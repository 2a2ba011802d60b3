// Package variable defines the variable domain model: scoped named values,
// the resolution context they are looked up in, and the request metadata
// exposed to built-in template functions.
package variable

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/navbytes/requestkit/pkg/domain/types"
)

// validNameRegex matches valid variable names: a letter or underscore
// followed by letters, digits, or underscores. Names outside this pattern can
// never be referenced through ${name} syntax and are rejected at save time.
var validNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Variable is a named, scoped template value. Its Value is itself a template
// and may reference other variables or functions via ${...} expressions.
type Variable struct {
	ID        types.VariableID `json:"id" yaml:"id"`
	Name      string           `json:"name" yaml:"name"`
	Value     string           `json:"value" yaml:"value"`
	Scope     Scope            `json:"scope" yaml:"scope"`
	ProfileID types.ProfileID  `json:"profile_id,omitempty" yaml:"profile_id,omitempty"`
	RuleID    types.RuleID     `json:"rule_id,omitempty" yaml:"rule_id,omitempty"`

	// IsSecret is a display/redaction hint only. Resolution treats secret and
	// non-secret variables identically.
	IsSecret bool `json:"is_secret,omitempty" yaml:"is_secret,omitempty"`

	// Enabled=false makes the variable invisible to lookup.
	Enabled bool `json:"enabled" yaml:"enabled"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Informational metadata, never consulted by the resolution algorithm.
	CreatedAt  time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	UsageCount int64     `json:"usage_count,omitempty" yaml:"usage_count,omitempty"`
}

// New creates an enabled variable with a fresh ID and creation timestamps.
func New(name, value string, scope Scope) *Variable {
	now := time.Now()
	return &Variable{
		ID:        types.NewVariableID(),
		Name:      name,
		Value:     value,
		Scope:     scope,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsValidName reports whether name can be referenced via ${name} syntax.
func IsValidName(name string) bool {
	return validNameRegex.MatchString(name)
}

// Validate checks structural validity of the variable definition. It does not
// resolve the value; use the validation package for template diagnostics.
func (v *Variable) Validate() error {
	if v.Name == "" {
		return errors.New("variable: empty variable name")
	}

	if !IsValidName(v.Name) {
		return fmt.Errorf("variable: invalid variable name %q (must start with a letter or underscore, contain only letters, digits, and underscores)", v.Name)
	}

	if !v.Scope.IsValid() {
		return fmt.Errorf("variable: invalid scope %d", int(v.Scope))
	}

	// Owner IDs are required exactly when the scope demands them.
	switch v.Scope {
	case ScopeProfile:
		if v.ProfileID.IsZero() {
			return fmt.Errorf("variable: profile-scoped variable %q has no profile ID", v.Name)
		}
	case ScopeRule:
		if v.RuleID.IsZero() {
			return fmt.Errorf("variable: rule-scoped variable %q has no rule ID", v.Name)
		}
	default:
		if !v.ProfileID.IsZero() || !v.RuleID.IsZero() {
			return fmt.Errorf("variable: %s-scoped variable %q must not carry an owner ID", v.Scope, v.Name)
		}
	}

	return nil
}

// Touch updates the modification timestamp.
func (v *Variable) Touch() {
	v.UpdatedAt = time.Now()
}

// RecordUsage increments the informational usage counter.
func (v *Variable) RecordUsage() {
	v.UsageCount++
}
