package profile

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/navbytes/requestkit/pkg/rule"
	"github.com/navbytes/requestkit/pkg/variable"
)

// ImportJSON converts a browser-extension JSON export into a domain Profile.
// The document is schema-validated first (see ValidateImportJSON), then read
// field-by-field with gjson so unknown extra fields are tolerated.
func ImportJSON(data []byte) (*Profile, error) {
	if len(data) == 0 {
		return nil, errors.New("profile: empty JSON input")
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("profile: input is not valid JSON")
	}
	if err := ValidateImportJSON(data); err != nil {
		return nil, err
	}

	doc := gjson.ParseBytes(data)

	p := New(doc.Get("name").String())
	p.Description = doc.Get("description").String()
	if enabled := doc.Get("enabled"); enabled.Exists() {
		p.Enabled = enabled.Bool()
	}

	var convErr error
	doc.Get("variables").ForEach(func(_, item gjson.Result) bool {
		v := variable.New(item.Get("name").String(), item.Get("value").String(), variable.ScopeProfile)
		v.ProfileID = p.ID
		v.IsSecret = item.Get("is_secret").Bool()
		v.Description = item.Get("description").String()
		if enabled := item.Get("enabled"); enabled.Exists() {
			v.Enabled = enabled.Bool()
		}
		p.Variables = append(p.Variables, v)
		return true
	})

	doc.Get("rules").ForEach(func(_, item gjson.Result) bool {
		r, err := importRule(item)
		if err != nil {
			convErr = err
			return false
		}
		p.Rules = append(p.Rules, r)
		return true
	})
	if convErr != nil {
		return nil, convErr
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func importRule(item gjson.Result) (*rule.Rule, error) {
	name := item.Get("name").String()
	r := rule.New(name, rule.Pattern{
		Protocol: item.Get("pattern.protocol").String(),
		Domain:   item.Get("pattern.domain").String(),
		Path:     item.Get("pattern.path").String(),
	})
	r.Condition = item.Get("condition").String()
	if enabled := item.Get("enabled"); enabled.Exists() {
		r.Enabled = enabled.Bool()
	}

	var convErr error
	item.Get("headers").ForEach(func(_, h gjson.Result) bool {
		target := rule.TargetRequest
		if t := h.Get("target"); t.Exists() {
			var err error
			if target, err = rule.ParseHeaderTarget(t.String()); err != nil {
				convErr = fmt.Errorf("profile: rule %q: %w", name, err)
				return false
			}
		}

		op := rule.OpSet
		if o := h.Get("operation"); o.Exists() {
			var err error
			if op, err = rule.ParseHeaderOperation(o.String()); err != nil {
				convErr = fmt.Errorf("profile: rule %q: %w", name, err)
				return false
			}
		}

		r.Headers = append(r.Headers, rule.HeaderModification{
			Target:    target,
			Operation: op,
			Name:      h.Get("name").String(),
			Value:     h.Get("value").String(),
		})
		return true
	})
	if convErr != nil {
		return nil, convErr
	}

	return r, nil
}
