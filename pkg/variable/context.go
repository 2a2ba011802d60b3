package variable

import (
	"net/url"
	"strings"
	"time"
)

// RequestContext carries metadata about the intercepted network request.
// Built-in functions such as domain() and path() read from it; it is optional
// and may be nil when resolving outside a request (e.g. live preview).
type RequestContext struct {
	URL       string
	Method    string
	Domain    string
	Path      string
	Protocol  string
	Query     map[string]string
	Headers   map[string]string
	Timestamp time.Time
}

// NewRequestContext derives a RequestContext from a raw URL and method.
// Domain, path, protocol, and query parameters are split out so built-in
// accessor functions do not re-parse the URL on every invocation.
func NewRequestContext(rawURL, method string) (*RequestContext, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	query := make(map[string]string)
	for key, values := range u.Query() {
		if len(values) > 0 {
			query[key] = values[0]
		}
	}

	return &RequestContext{
		URL:       rawURL,
		Method:    strings.ToUpper(method),
		Domain:    u.Hostname(),
		Path:      u.Path,
		Protocol:  u.Scheme,
		Query:     query,
		Headers:   make(map[string]string),
		Timestamp: time.Now(),
	}, nil
}

// ResolutionContext is the immutable bundle a template is resolved against:
// one collection of variables per scope plus optional request metadata.
// Construct one per resolution call; the engine never mutates it.
type ResolutionContext struct {
	SystemVariables  []*Variable
	GlobalVariables  []*Variable
	ProfileVariables []*Variable
	RuleVariables    []*Variable
	Request          *RequestContext
}

// NewResolutionContext creates an empty context.
func NewResolutionContext() *ResolutionContext {
	return &ResolutionContext{}
}

// VariablesForScope returns the context's collection for the given scope.
func (c *ResolutionContext) VariablesForScope(scope Scope) []*Variable {
	switch scope {
	case ScopeSystem:
		return c.SystemVariables
	case ScopeGlobal:
		return c.GlobalVariables
	case ScopeProfile:
		return c.ProfileVariables
	case ScopeRule:
		return c.RuleVariables
	default:
		return nil
	}
}

// AddVariable appends v to the collection matching its scope.
func (c *ResolutionContext) AddVariable(v *Variable) {
	switch v.Scope {
	case ScopeSystem:
		c.SystemVariables = append(c.SystemVariables, v)
	case ScopeGlobal:
		c.GlobalVariables = append(c.GlobalVariables, v)
	case ScopeProfile:
		c.ProfileVariables = append(c.ProfileVariables, v)
	case ScopeRule:
		c.RuleVariables = append(c.RuleVariables, v)
	}
}

// TotalVariables returns the number of variables across all scopes.
func (c *ResolutionContext) TotalVariables() int {
	return len(c.SystemVariables) + len(c.GlobalVariables) + len(c.ProfileVariables) + len(c.RuleVariables)
}
