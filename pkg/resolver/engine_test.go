package resolver_test

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/navbytes/requestkit/internal/testutil"
	"github.com/navbytes/requestkit/pkg/functions"
	"github.com/navbytes/requestkit/pkg/resolver"
	"github.com/navbytes/requestkit/pkg/template"
	"github.com/navbytes/requestkit/pkg/variable"
)

// TestResolveLiteral tests that literal-only templates pass through unchanged
func TestResolveLiteral(t *testing.T) {
	engine := resolver.NewEngine()
	ctx := testutil.Context()

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{name: "plain", template: "application/json", want: "application/json"},
		{name: "empty", template: "", want: ""},
		{name: "escaped reference", template: `\${not_a_var}`, want: "${not_a_var}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Resolve(tt.template, ctx)
			if !result.Success {
				t.Fatalf("Resolve(%q) failed: %v", tt.template, result.Errors)
			}
			if result.Value != tt.want {
				t.Errorf("got %q, want %q", result.Value, tt.want)
			}
		})
	}
}

// TestResolveSimpleReference tests a single global variable substitution
func TestResolveSimpleReference(t *testing.T) {
	engine := resolver.NewEngine()
	ctx := testutil.Context(testutil.Var("API_TOKEN", "abc123", variable.ScopeGlobal))

	result := engine.Resolve("Bearer ${API_TOKEN}", ctx)
	if !result.Success {
		t.Fatalf("resolve failed: %v", result.Errors)
	}
	if result.Value != "Bearer abc123" {
		t.Errorf("got %q, want %q", result.Value, "Bearer abc123")
	}
	if len(result.ResolvedVariables) != 1 || result.ResolvedVariables[0] != "API_TOKEN" {
		t.Errorf("resolved variables: got %v", result.ResolvedVariables)
	}
	if len(result.UnresolvedVariables) != 0 {
		t.Errorf("unresolved variables: got %v", result.UnresolvedVariables)
	}
	if result.ResolutionTime < 0 {
		t.Errorf("negative resolution time: %v", result.ResolutionTime)
	}
}

// TestResolveIdempotent tests that resolving an already-resolved value is a no-op
func TestResolveIdempotent(t *testing.T) {
	engine := resolver.NewEngine()
	ctx := testutil.GlobalContext(t, "HOST", "api.example.com")

	first := engine.Resolve("https://${HOST}/v1", ctx)
	if !first.Success {
		t.Fatalf("first resolve failed: %v", first.Errors)
	}
	second := engine.Resolve(first.Value, ctx)
	if !second.Success {
		t.Fatalf("second resolve failed: %v", second.Errors)
	}
	if second.Value != first.Value {
		t.Errorf("second pass changed value: %q -> %q", first.Value, second.Value)
	}
}

// TestResolveScopePrecedence tests rule > profile > global > system shadowing
func TestResolveScopePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		scopes []variable.Scope
		want   string
	}{
		{
			name:   "rule shadows all",
			scopes: []variable.Scope{variable.ScopeSystem, variable.ScopeGlobal, variable.ScopeProfile, variable.ScopeRule},
			want:   "rule",
		},
		{
			name:   "profile shadows global and system",
			scopes: []variable.Scope{variable.ScopeSystem, variable.ScopeGlobal, variable.ScopeProfile},
			want:   "profile",
		},
		{
			name:   "global shadows system",
			scopes: []variable.Scope{variable.ScopeSystem, variable.ScopeGlobal},
			want:   "global",
		},
		{
			name:   "system alone",
			scopes: []variable.Scope{variable.ScopeSystem},
			want:   "system",
		},
	}

	engine := resolver.NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var vars []*variable.Variable
			for _, scope := range tt.scopes {
				vars = append(vars, testutil.Var("ENV", scope.String(), scope))
			}
			ctx := testutil.Context(vars...)

			result := engine.Resolve("${ENV}", ctx)
			if !result.Success {
				t.Fatalf("resolve failed: %v", result.Errors)
			}
			if result.Value != tt.want {
				t.Errorf("got %q, want %q", result.Value, tt.want)
			}
		})
	}
}

// TestResolveDisabledVariable tests that disabled variables are invisible
func TestResolveDisabledVariable(t *testing.T) {
	engine := resolver.NewEngine()
	ctx := testutil.Context(
		testutil.DisabledVar("ENV", "rule-value", variable.ScopeRule),
		testutil.Var("ENV", "global-value", variable.ScopeGlobal),
	)

	result := engine.Resolve("${ENV}", ctx)
	if !result.Success {
		t.Fatalf("resolve failed: %v", result.Errors)
	}
	if result.Value != "global-value" {
		t.Errorf("disabled rule variable should be skipped: got %q", result.Value)
	}
}

// TestResolveUnresolved tests tracking of variables with no definition
func TestResolveUnresolved(t *testing.T) {
	engine := resolver.NewEngine()
	ctx := testutil.Context(testutil.Var("KNOWN", "yes", variable.ScopeGlobal))

	result := engine.Resolve("${KNOWN} ${MISSING}", ctx)
	if result.Success {
		t.Fatal("resolve should fail with an unresolved variable")
	}
	if result.Value != "" {
		t.Errorf("failed result should have empty value, got %q", result.Value)
	}
	if len(result.ResolvedVariables) != 1 || result.ResolvedVariables[0] != "KNOWN" {
		t.Errorf("resolved: got %v", result.ResolvedVariables)
	}
	if len(result.UnresolvedVariables) != 1 || result.UnresolvedVariables[0] != "MISSING" {
		t.Errorf("unresolved: got %v", result.UnresolvedVariables)
	}
	if !strings.Contains(result.Error(), template.ErrUnresolvedVariable.Error()) {
		t.Errorf("expected unresolved-variable error, got %q", result.Error())
	}
}

// TestResolveNestedVariables tests variables whose values reference other variables
func TestResolveNestedVariables(t *testing.T) {
	engine := resolver.NewEngine()
	ctx := testutil.Context(
		testutil.Var("BASE_URL", "https://${HOST}/api", variable.ScopeGlobal),
		testutil.Var("HOST", "example.com", variable.ScopeGlobal),
	)

	result := engine.Resolve("${BASE_URL}/users", ctx)
	if !result.Success {
		t.Fatalf("resolve failed: %v", result.Errors)
	}
	if result.Value != "https://example.com/api/users" {
		t.Errorf("got %q", result.Value)
	}
	if len(result.ResolvedVariables) != 2 {
		t.Errorf("resolved: got %v, want both BASE_URL and HOST", result.ResolvedVariables)
	}
}

// TestResolveCircularReference tests direct and indirect cycle detection
func TestResolveCircularReference(t *testing.T) {
	tests := []struct {
		name string
		vars []*variable.Variable
	}{
		{
			name: "self reference",
			vars: []*variable.Variable{
				testutil.Var("A", "${A}", variable.ScopeGlobal),
			},
		},
		{
			name: "two-variable cycle",
			vars: []*variable.Variable{
				testutil.Var("A", "${B}", variable.ScopeGlobal),
				testutil.Var("B", "${A}", variable.ScopeGlobal),
			},
		},
		{
			name: "three-variable cycle",
			vars: []*variable.Variable{
				testutil.Var("A", "${B}", variable.ScopeGlobal),
				testutil.Var("B", "${C}", variable.ScopeGlobal),
				testutil.Var("C", "${A}", variable.ScopeGlobal),
			},
		},
	}

	engine := resolver.NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testutil.Context(tt.vars...)
			result := engine.Resolve("${A}", ctx)
			if result.Success {
				t.Fatal("cyclic template should fail")
			}
			if !strings.Contains(result.Error(), template.ErrCircularReference.Error()) {
				t.Fatalf("expected circular-reference error, got %q", result.Error())
			}
			if !strings.Contains(result.Error(), "A ->") {
				t.Errorf("cycle message should name the chain: %q", result.Error())
			}
		})
	}
}

// TestResolveCycleDoesNotPoisonSiblings tests that a cycle in one branch
// does not block resolution of the same variable elsewhere in the template
func TestResolveCycleDoesNotPoisonSiblings(t *testing.T) {
	engine := resolver.NewEngine()
	ctx := testutil.Context(
		testutil.Var("A", "${B}", variable.ScopeGlobal),
		testutil.Var("B", "${A}", variable.ScopeGlobal),
		testutil.Var("OK", "fine", variable.ScopeGlobal),
	)

	result := engine.Resolve("${A} ${OK}", ctx)
	if result.Success {
		t.Fatal("resolve should fail")
	}
	found := false
	for _, name := range result.ResolvedVariables {
		if name == "OK" {
			found = true
		}
	}
	if !found {
		t.Errorf("OK should resolve despite the unrelated cycle: %v", result.ResolvedVariables)
	}
}

// TestResolveCycleSetsDisjoint tests that a circular name is reported as
// unresolved only, even though its lookup succeeded before the cycle closed
func TestResolveCycleSetsDisjoint(t *testing.T) {
	engine := resolver.NewEngine()
	ctx := testutil.Context(
		testutil.Var("A", "${A}", variable.ScopeGlobal),
		testutil.Var("OK", "fine", variable.ScopeGlobal),
	)

	result := engine.Resolve("${A} ${OK}", ctx)
	if result.Success {
		t.Fatal("resolve should fail")
	}
	if len(result.UnresolvedVariables) != 1 || result.UnresolvedVariables[0] != "A" {
		t.Errorf("unresolved: got %v, want [A]", result.UnresolvedVariables)
	}
	if len(result.ResolvedVariables) != 1 || result.ResolvedVariables[0] != "OK" {
		t.Errorf("resolved: got %v, want [OK]", result.ResolvedVariables)
	}
}

// TestResolveDepthLimit tests the recursion backstop on deep chains
func TestResolveDepthLimit(t *testing.T) {
	var vars []*variable.Variable
	for i := 0; i < 15; i++ {
		vars = append(vars, testutil.Var(
			fmt.Sprintf("V%d", i),
			"${V"+strconv.Itoa(i+1)+"}",
			variable.ScopeGlobal,
		))
	}
	vars = append(vars, testutil.Var("V15", "end", variable.ScopeGlobal))
	ctx := testutil.Context(vars...)

	engine := resolver.NewEngine()
	result := engine.Resolve("${V0}", ctx)
	if result.Success {
		t.Fatal("15-deep chain should exceed the depth limit")
	}
	if !strings.Contains(result.Error(), template.ErrDepthExceeded.Error()) {
		t.Fatalf("expected depth-exceeded error, got %q", result.Error())
	}

	// A larger limit resolves the same chain.
	deep := resolver.NewEngineWithConfig(functions.NewRegistry(), 20)
	result = deep.Resolve("${V0}", ctx)
	if !result.Success {
		t.Fatalf("resolve with raised limit failed: %v", result.Errors)
	}
	if result.Value != "end" {
		t.Errorf("got %q, want %q", result.Value, "end")
	}
}

// TestResolveFunctionCalls tests built-in function invocation through templates
func TestResolveFunctionCalls(t *testing.T) {
	engine := resolver.NewEngine()
	ctx := testutil.Context()
	ctx.Request = testutil.Request(t, "https://api.example.com/v1/users?id=7", "POST")

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{name: "upper", template: `${upper("hello")}`, want: "HELLO"},
		{name: "lower", template: `${lower("HELLO")}`, want: "hello"},
		{name: "trim", template: `${trim("  x  ")}`, want: "x"},
		{name: "substring", template: `${substring("abcdef", 1, 4)}`, want: "bcd"},
		{name: "replace", template: `${replace("a-b-c", "-", ".")}`, want: "a.b.c"},
		{name: "base64", template: `${base64("user:pass")}`, want: "dXNlcjpwYXNz"},
		{name: "url encode", template: `${url_encode("a b&c")}`, want: "a+b%26c"},
		{name: "domain", template: "${domain()}", want: "api.example.com"},
		{name: "path", template: "${path()}", want: "/v1/users"},
		{name: "method", template: "${method()}", want: "POST"},
		{name: "protocol", template: "${protocol()}", want: "https"},
		{name: "query", template: `${query("id")}`, want: "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Resolve(tt.template, ctx)
			if !result.Success {
				t.Fatalf("resolve failed: %v", result.Errors)
			}
			if result.Value != tt.want {
				t.Errorf("got %q, want %q", result.Value, tt.want)
			}
		})
	}
}

// TestResolveFunctionArgFromVariable tests variable references inside call arguments
func TestResolveFunctionArgFromVariable(t *testing.T) {
	engine := resolver.NewEngine()
	ctx := testutil.Context(testutil.Var("max_val", "5", variable.ScopeGlobal))

	result := engine.Resolve("${random(1, ${max_val})}", ctx)
	if !result.Success {
		t.Fatalf("resolve failed: %v", result.Errors)
	}
	n, err := strconv.Atoi(result.Value)
	if err != nil {
		t.Fatalf("random produced non-integer %q", result.Value)
	}
	if n < 1 || n > 5 {
		t.Errorf("random out of range: %d", n)
	}
}

// TestResolveFunctionErrors tests error handling for bad function calls
func TestResolveFunctionErrors(t *testing.T) {
	engine := resolver.NewEngine()
	ctx := testutil.Context()

	tests := []struct {
		name     string
		template string
	}{
		{name: "unknown function", template: "${no_such_fn()}"},
		{name: "missing arguments", template: "${random()}"},
		{name: "too many arguments", template: "${uuid(1)}"},
		{name: "invalid argument type", template: `${random("a", "b")}`},
		{name: "inverted range", template: "${random(9, 1)}"},
		{name: "request function without request", template: "${domain()}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Resolve(tt.template, ctx)
			if result.Success {
				t.Fatalf("Resolve(%q) should fail", tt.template)
			}
			if len(result.Errors) == 0 {
				t.Error("failed resolve should carry errors")
			}
		})
	}
}

// TestResolveCallReportsAllArgumentFailures tests that every failing argument
// of one call is diagnosed, not just the first
func TestResolveCallReportsAllArgumentFailures(t *testing.T) {
	engine := resolver.NewEngine()
	ctx := testutil.Context()

	result := engine.Resolve(`${replace(${X}, ${Y}, "z")}`, ctx)
	if result.Success {
		t.Fatal("resolve should fail")
	}
	if len(result.Errors) != 2 {
		t.Errorf("expected one error per bad argument, got %d: %v", len(result.Errors), result.Errors)
	}
	if len(result.UnresolvedVariables) != 2 {
		t.Errorf("unresolved: got %v, want both argument names", result.UnresolvedVariables)
	}
}

// TestResolveMixedFailure tests best-effort behavior with both good and bad segments
func TestResolveMixedFailure(t *testing.T) {
	engine := resolver.NewEngine()
	ctx := testutil.Context(testutil.Var("GOOD", "ok", variable.ScopeGlobal))

	result := engine.Resolve("${GOOD} then ${BAD} then ${ALSO_BAD}", ctx)
	if result.Success {
		t.Fatal("resolve should fail")
	}
	if len(result.Errors) != 2 {
		t.Errorf("expected one error per failed segment, got %d: %v", len(result.Errors), result.Errors)
	}
	if len(result.UnresolvedVariables) != 2 {
		t.Errorf("unresolved: got %v", result.UnresolvedVariables)
	}
}

// TestResolveNilContext tests the nil-context guard
func TestResolveNilContext(t *testing.T) {
	engine := resolver.NewEngine()
	result := engine.Resolve("${A}", nil)
	if result.Success {
		t.Fatal("nil context should fail")
	}
	if !strings.Contains(result.Error(), template.ErrNilContext.Error()) {
		t.Errorf("expected nil-context error, got %q", result.Error())
	}
}

// TestResolveMalformedReference tests that malformed references fail resolution
func TestResolveMalformedReference(t *testing.T) {
	engine := resolver.NewEngine()
	ctx := testutil.Context()

	result := engine.Resolve("${bad-name}", ctx)
	if result.Success {
		t.Fatal("malformed reference should fail")
	}
	if !strings.Contains(result.Error(), template.ErrMalformedRef.Error()) {
		t.Errorf("expected malformed-reference error, got %q", result.Error())
	}
}

// TestResolveResultCache tests deterministic result caching and invalidation
func TestResolveResultCache(t *testing.T) {
	engine := resolver.NewEngine()
	cache := resolver.NewResultCache()
	engine.SetResultCache(cache)

	ctx := testutil.Context(testutil.Var("HOST", "example.com", variable.ScopeGlobal))

	first := engine.Resolve("https://${HOST}", ctx)
	if !first.Success {
		t.Fatalf("first resolve failed: %v", first.Errors)
	}
	second := engine.Resolve("https://${HOST}", ctx)
	if !second.Success || second.Value != first.Value {
		t.Fatalf("cached resolve mismatch: %q vs %q", second.Value, first.Value)
	}

	stats := cache.Stats()
	if stats.Hits != 1 {
		t.Errorf("hits: got %d, want 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("misses: got %d, want 1", stats.Misses)
	}

	// Changing a variable changes the key, so the old entry is not reused.
	ctx2 := testutil.Context(testutil.Var("HOST", "other.com", variable.ScopeGlobal))
	third := engine.Resolve("https://${HOST}", ctx2)
	if !third.Success {
		t.Fatalf("resolve failed: %v", third.Errors)
	}
	if third.Value != "https://other.com" {
		t.Errorf("stale cache entry served: %q", third.Value)
	}

	cache.InvalidateAll()
	if cache.Len() != 0 {
		t.Errorf("cache should be empty after InvalidateAll, got %d entries", cache.Len())
	}
}

// TestResolveRequestAccessorsNotSharedAcrossRequests tests that a cached
// resolution touching request accessors is keyed by the request it saw
func TestResolveRequestAccessorsNotSharedAcrossRequests(t *testing.T) {
	engine := resolver.NewEngine()
	engine.SetResultCache(resolver.NewResultCache())

	ctxA := testutil.Context()
	ctxA.Request = testutil.Request(t, "https://a.example.com/x", "GET")
	first := engine.Resolve("${domain()}", ctxA)
	if !first.Success || first.Value != "a.example.com" {
		t.Fatalf("first resolve: got %q, errors %v", first.Value, first.Errors)
	}

	ctxB := testutil.Context()
	ctxB.Request = testutil.Request(t, "https://b.example.com/y", "GET")
	second := engine.Resolve("${domain()}", ctxB)
	if !second.Success {
		t.Fatalf("second resolve failed: %v", second.Errors)
	}
	if second.Value != "b.example.com" {
		t.Errorf("another request's cached value served: got %q, want %q",
			second.Value, "b.example.com")
	}
}

// TestResolveNonDeterministicNotCached tests that uuid() results are never reused
func TestResolveNonDeterministicNotCached(t *testing.T) {
	engine := resolver.NewEngine()
	engine.SetResultCache(resolver.NewResultCache())

	ctx := testutil.Context()
	first := engine.Resolve("${uuid()}", ctx)
	second := engine.Resolve("${uuid()}", ctx)
	if !first.Success || !second.Success {
		t.Fatalf("resolve failed: %v %v", first.Errors, second.Errors)
	}
	if first.Value == second.Value {
		t.Error("uuid() result was cached across invocations")
	}
}
