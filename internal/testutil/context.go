// Package testutil provides builders for resolution contexts used across the
// package tests.
package testutil

import (
	"testing"

	"github.com/navbytes/requestkit/pkg/variable"
)

// Var creates an enabled variable in the given scope.
func Var(name, value string, scope variable.Scope) *variable.Variable {
	return variable.New(name, value, scope)
}

// DisabledVar creates a disabled variable in the given scope.
func DisabledVar(name, value string, scope variable.Scope) *variable.Variable {
	v := variable.New(name, value, scope)
	v.Enabled = false
	return v
}

// Context builds a resolution context from the given variables, routed to
// their scopes.
func Context(vars ...*variable.Variable) *variable.ResolutionContext {
	ctx := variable.NewResolutionContext()
	for _, v := range vars {
		ctx.AddVariable(v)
	}
	return ctx
}

// GlobalContext builds a context of global variables from name/value pairs.
func GlobalContext(t *testing.T, pairs ...string) *variable.ResolutionContext {
	t.Helper()
	if len(pairs)%2 != 0 {
		t.Fatalf("GlobalContext needs name/value pairs, got %d items", len(pairs))
	}
	ctx := variable.NewResolutionContext()
	for i := 0; i < len(pairs); i += 2 {
		ctx.AddVariable(variable.New(pairs[i], pairs[i+1], variable.ScopeGlobal))
	}
	return ctx
}

// Request builds a request context for a URL, failing the test on a bad URL.
func Request(t *testing.T, rawURL, method string) *variable.RequestContext {
	t.Helper()
	req, err := variable.NewRequestContext(rawURL, method)
	if err != nil {
		t.Fatalf("bad test URL %q: %v", rawURL, err)
	}
	return req
}
