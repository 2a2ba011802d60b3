// Package profile models environment profiles: named bundles of header rules
// and profile-scoped variables (e.g. dev, staging, production), with YAML
// and JSON import/export for sharing.
package profile

import (
	"errors"
	"fmt"
	"time"

	"github.com/navbytes/requestkit/pkg/domain/types"
	"github.com/navbytes/requestkit/pkg/rule"
	"github.com/navbytes/requestkit/pkg/variable"
)

// Profile groups rules and variables for one environment.
type Profile struct {
	ID          types.ProfileID
	Name        string
	Description string
	Enabled     bool

	Rules     []*rule.Rule
	Variables []*variable.Variable

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an enabled profile with a fresh ID.
func New(name string) *Profile {
	now := time.Now()
	return &Profile{
		ID:        types.NewProfileID(),
		Name:      name,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the profile and everything it owns.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return errors.New("profile: empty profile name")
	}

	seen := make(map[string]bool, len(p.Variables))
	for _, v := range p.Variables {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
		if v.Scope != variable.ScopeProfile {
			return fmt.Errorf("profile %q: variable %q has scope %s, expected profile", p.Name, v.Name, v.Scope)
		}
		if seen[v.Name] {
			return fmt.Errorf("profile %q: duplicate variable %q", p.Name, v.Name)
		}
		seen[v.Name] = true
	}

	for _, r := range p.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}

	return nil
}

// Variable returns the profile-scoped variable with the given name.
func (p *Profile) Variable(name string) (*variable.Variable, bool) {
	for _, v := range p.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// AddVariable attaches a variable to the profile, forcing profile scope and
// ownership.
func (p *Profile) AddVariable(v *variable.Variable) error {
	if _, exists := p.Variable(v.Name); exists {
		return fmt.Errorf("profile %q: variable %q already exists", p.Name, v.Name)
	}
	v.Scope = variable.ScopeProfile
	v.ProfileID = p.ID
	p.Variables = append(p.Variables, v)
	p.UpdatedAt = time.Now()
	return nil
}

// AddRule attaches a rule to the profile.
func (p *Profile) AddRule(r *rule.Rule) {
	p.Rules = append(p.Rules, r)
	p.UpdatedAt = time.Now()
}
