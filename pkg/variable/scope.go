package variable

import "fmt"

// Scope identifies the namespace tier a variable belongs to. Narrower scopes
// shadow wider ones during lookup (see PrecedenceOrder).
type Scope int

const (
	// ScopeSystem holds built-in variables shipped with the application.
	ScopeSystem Scope = iota
	// ScopeGlobal holds user-defined variables visible everywhere.
	ScopeGlobal
	// ScopeProfile holds variables owned by a single environment profile.
	ScopeProfile
	// ScopeRule holds variables owned by a single header rule.
	ScopeRule
)

// PrecedenceOrder lists scopes from narrowest to widest. Lookup walks this
// order and returns the first enabled match, so a rule-scoped variable always
// shadows a profile/global/system variable of the same name.
var PrecedenceOrder = [4]Scope{ScopeRule, ScopeProfile, ScopeGlobal, ScopeSystem}

// String returns the scope's wire name.
func (s Scope) String() string {
	switch s {
	case ScopeSystem:
		return "system"
	case ScopeGlobal:
		return "global"
	case ScopeProfile:
		return "profile"
	case ScopeRule:
		return "rule"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// IsValid reports whether s is one of the four defined scopes.
func (s Scope) IsValid() bool {
	switch s {
	case ScopeSystem, ScopeGlobal, ScopeProfile, ScopeRule:
		return true
	}
	return false
}

// ParseScope converts a wire name into a Scope.
func ParseScope(name string) (Scope, error) {
	switch name {
	case "system":
		return ScopeSystem, nil
	case "global":
		return ScopeGlobal, nil
	case "profile":
		return ScopeProfile, nil
	case "rule":
		return ScopeRule, nil
	default:
		return 0, fmt.Errorf("variable: invalid scope %q (must be one of: system, global, profile, rule)", name)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (s Scope) MarshalYAML() (interface{}, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("variable: cannot marshal invalid scope %d", int(s))
	}
	return s.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Scope) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseScope(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Scope) MarshalJSON() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("variable: cannot marshal invalid scope %d", int(s))
	}
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scope) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("variable: scope must be a JSON string, got %s", string(data))
	}
	parsed, err := ParseScope(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
