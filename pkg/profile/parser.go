package profile

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/navbytes/requestkit/pkg/rule"
	"github.com/navbytes/requestkit/pkg/variable"
)

// yamlProfile represents the YAML structure before conversion to domain objects
type yamlProfile struct {
	Version     string         `yaml:"version"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Enabled     *bool          `yaml:"enabled,omitempty"`
	Variables   []yamlVariable `yaml:"variables,omitempty"`
	Rules       []yamlRule     `yaml:"rules,omitempty"`
}

// yamlVariable represents a variable in YAML before conversion
type yamlVariable struct {
	Name        string `yaml:"name"`
	Value       string `yaml:"value"`
	Secret      bool   `yaml:"secret,omitempty"`
	Enabled     *bool  `yaml:"enabled,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// yamlRule represents a rule in YAML with flattened pattern fields
type yamlRule struct {
	Name      string       `yaml:"name"`
	Enabled   *bool        `yaml:"enabled,omitempty"`
	Protocol  string       `yaml:"protocol,omitempty"`
	Domain    string       `yaml:"domain,omitempty"`
	Path      string       `yaml:"path,omitempty"`
	Condition string       `yaml:"condition,omitempty"`
	Headers   []yamlHeader `yaml:"headers"`
}

// yamlHeader represents one header modification in YAML
type yamlHeader struct {
	Target    string `yaml:"target,omitempty"`    // request (default) or response
	Operation string `yaml:"operation,omitempty"` // set (default), append, or remove
	Name      string `yaml:"name"`
	Value     string `yaml:"value,omitempty"`
}

// currentVersion is the profile file format version this build writes.
const currentVersion = "1"

// Parse converts profile YAML bytes into a domain Profile. Parsed profiles
// get fresh IDs; identity is not part of the exchange format.
func Parse(data []byte) (*Profile, error) {
	if len(data) == 0 {
		return nil, errors.New("profile: empty YAML input")
	}

	var yp yamlProfile
	if err := yaml.Unmarshal(data, &yp); err != nil {
		return nil, fmt.Errorf("profile: failed to parse YAML: %w", err)
	}

	if yp.Version != "" && yp.Version != currentVersion {
		return nil, fmt.Errorf("profile: unsupported format version %q", yp.Version)
	}

	p := New(yp.Name)
	p.Description = yp.Description
	if yp.Enabled != nil {
		p.Enabled = *yp.Enabled
	}

	for _, yv := range yp.Variables {
		v := variable.New(yv.Name, yv.Value, variable.ScopeProfile)
		v.ProfileID = p.ID
		v.IsSecret = yv.Secret
		v.Description = yv.Description
		if yv.Enabled != nil {
			v.Enabled = *yv.Enabled
		}
		p.Variables = append(p.Variables, v)
	}

	for _, yr := range yp.Rules {
		r, err := convertRule(yr)
		if err != nil {
			return nil, err
		}
		p.Rules = append(p.Rules, r)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func convertRule(yr yamlRule) (*rule.Rule, error) {
	r := rule.New(yr.Name, rule.Pattern{
		Protocol: yr.Protocol,
		Domain:   yr.Domain,
		Path:     yr.Path,
	})
	r.Condition = yr.Condition
	if yr.Enabled != nil {
		r.Enabled = *yr.Enabled
	}

	for _, yh := range yr.Headers {
		target := rule.TargetRequest
		if yh.Target != "" {
			var err error
			if target, err = rule.ParseHeaderTarget(yh.Target); err != nil {
				return nil, fmt.Errorf("profile: rule %q: %w", yr.Name, err)
			}
		}

		op := rule.OpSet
		if yh.Operation != "" {
			var err error
			if op, err = rule.ParseHeaderOperation(yh.Operation); err != nil {
				return nil, fmt.Errorf("profile: rule %q: %w", yr.Name, err)
			}
		}

		r.Headers = append(r.Headers, rule.HeaderModification{
			Target:    target,
			Operation: op,
			Name:      yh.Name,
			Value:     yh.Value,
		})
	}

	return r, nil
}

// Export serializes a profile to YAML in the exchange format. Secret
// variable values are exported verbatim; redaction is the caller's choice.
func Export(p *Profile) ([]byte, error) {
	if p == nil {
		return nil, errors.New("profile: cannot export nil profile")
	}

	yp := yamlProfile{
		Version:     currentVersion,
		Name:        p.Name,
		Description: p.Description,
	}
	if !p.Enabled {
		enabled := false
		yp.Enabled = &enabled
	}

	for _, v := range p.Variables {
		yv := yamlVariable{
			Name:        v.Name,
			Value:       v.Value,
			Secret:      v.IsSecret,
			Description: v.Description,
		}
		if !v.Enabled {
			enabled := false
			yv.Enabled = &enabled
		}
		yp.Variables = append(yp.Variables, yv)
	}

	for _, r := range p.Rules {
		yr := yamlRule{
			Name:      r.Name,
			Protocol:  r.Pattern.Protocol,
			Domain:    r.Pattern.Domain,
			Path:      r.Pattern.Path,
			Condition: r.Condition,
		}
		if !r.Enabled {
			enabled := false
			yr.Enabled = &enabled
		}
		for _, h := range r.Headers {
			yr.Headers = append(yr.Headers, yamlHeader{
				Target:    h.Target.String(),
				Operation: h.Operation.String(),
				Name:      h.Name,
				Value:     h.Value,
			})
		}
		yp.Rules = append(yp.Rules, yr)
	}

	return yaml.Marshal(&yp)
}

// LoadFromFile reads and parses a profile YAML file.
func LoadFromFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: failed to read %s: %w", path, err)
	}
	return Parse(data)
}
