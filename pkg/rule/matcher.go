package rule

import (
	"errors"
	"strings"

	"github.com/navbytes/requestkit/pkg/variable"
)

// Pattern selects requests by URL components. Empty fields match anything.
type Pattern struct {
	// Protocol matches the URL scheme exactly, or "*" / "" for any.
	Protocol string
	// Domain matches the hostname. A leading "*." matches the bare domain
	// and any subdomain; a bare "*" matches every host.
	Domain string
	// Path matches the URL path. A trailing "*" makes it a prefix match;
	// otherwise the match is exact. Empty matches every path.
	Path string
}

// Validate checks that the pattern constrains at least one component.
func (p *Pattern) Validate() error {
	if isAny(p.Protocol) && isAny(p.Domain) && isAny(p.Path) {
		return errors.New("pattern matches every request; constrain at least one of protocol, domain, path")
	}
	return nil
}

func isAny(component string) bool {
	return component == "" || component == "*"
}

// Matches reports whether the request's URL satisfies every component of the
// pattern.
func (p *Pattern) Matches(req *variable.RequestContext) bool {
	if req == nil {
		return false
	}
	return p.matchProtocol(req.Protocol) && p.matchDomain(req.Domain) && p.matchPath(req.Path)
}

func (p *Pattern) matchProtocol(protocol string) bool {
	if isAny(p.Protocol) {
		return true
	}
	return strings.EqualFold(p.Protocol, protocol)
}

func (p *Pattern) matchDomain(domain string) bool {
	if isAny(p.Domain) {
		return true
	}

	want := strings.ToLower(p.Domain)
	got := strings.ToLower(domain)

	if base, ok := strings.CutPrefix(want, "*."); ok {
		return got == base || strings.HasSuffix(got, "."+base)
	}
	return got == want
}

func (p *Pattern) matchPath(path string) bool {
	if isAny(p.Path) {
		return true
	}

	if prefix, ok := strings.CutSuffix(p.Path, "*"); ok {
		return strings.HasPrefix(path, prefix)
	}
	return path == p.Path
}

// Match returns the enabled rules whose pattern and condition both accept
// the request, in input order. Condition evaluation errors count as
// non-matches; the evaluator records them for diagnostics.
func Match(rules []*Rule, req *variable.RequestContext, conditions *ConditionEvaluator) []*Rule {
	var matched []*Rule
	for _, r := range rules {
		if !r.Enabled || !r.Pattern.Matches(req) {
			continue
		}
		if r.Condition != "" {
			ok, err := conditions.EvaluateBool(r.Condition, req)
			if err != nil || !ok {
				continue
			}
		}
		matched = append(matched, r)
	}
	return matched
}
