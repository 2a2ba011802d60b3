// Package resolver implements the recursive template resolution engine: it
// walks the parsed segment stream of a header-value template, expands bare
// names through the scope-precedence lookup, invokes registry functions, and
// re-enters itself on any ${...} found inside a resolved variable's own
// value. Cycles are caught by a call-local visiting set with a fixed depth
// backstop behind it.
package resolver

import (
	"fmt"
	"strings"
	"time"

	"github.com/navbytes/requestkit/pkg/functions"
	"github.com/navbytes/requestkit/pkg/template"
	"github.com/navbytes/requestkit/pkg/variable"
)

// DefaultMaxDepth bounds recursive expansion. A chain longer than this fails
// with a depth error even when no name repeats.
const DefaultMaxDepth = 10

// Engine resolves templates against resolution contexts. An Engine is
// immutable after construction and safe for concurrent use; all per-call
// state lives on the stack of each Resolve invocation.
type Engine struct {
	registry    *functions.Registry
	maxDepth    int
	parseCache  *ParseCache
	resultCache *ResultCache
}

// NewEngine creates an engine with the built-in function registry, the
// default depth limit, and a parse cache.
func NewEngine() *Engine {
	return NewEngineWithConfig(functions.NewRegistry(), DefaultMaxDepth)
}

// NewEngineWithConfig creates an engine with a custom registry and depth
// limit.
func NewEngineWithConfig(registry *functions.Registry, maxDepth int) *Engine {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Engine{
		registry:   registry,
		maxDepth:   maxDepth,
		parseCache: NewParseCache(),
	}
}

// SetResultCache attaches a result cache. Only fully deterministic,
// successful resolutions are cached; anything that touched uuid(),
// timestamp(), or another non-deterministic function is recomputed every
// call. Call before sharing the engine across goroutines.
func (e *Engine) SetResultCache(cache *ResultCache) {
	e.resultCache = cache
}

// Registry returns the engine's function registry, for listing functions in
// the authoring UI.
func (e *Engine) Registry() *functions.Registry {
	return e.registry
}

// Resolve expands every ${...} expression in template against ctx. It never
// panics on input data: all failures are reported through the Result. An
// empty template resolves to an empty value.
func (e *Engine) Resolve(tmpl string, ctx *variable.ResolutionContext) *Result {
	start := time.Now()

	if ctx == nil {
		return &Result{
			Success:        false,
			Errors:         []string{template.ErrNilContext.Error()},
			ResolutionTime: time.Since(start),
		}
	}

	if e.resultCache != nil {
		if cached, ok := e.resultCache.Get(tmpl, ctx); ok {
			cached.ResolutionTime = time.Since(start)
			return cached
		}
	}

	lookup := NewLookup(ctx)
	state := newResolutionState()
	value := e.resolveTemplate(tmpl, ctx, lookup, state, 0)
	result := state.result(value, time.Since(start))

	if e.resultCache != nil && result.Success && !state.nonDeterministic {
		e.resultCache.Put(tmpl, ctx, result)
	}
	return result
}

// resolveTemplate expands one template string at the given depth, appending
// failures to state and returning the best-effort expansion. The returned
// string is only meaningful when no new errors were recorded.
func (e *Engine) resolveTemplate(tmpl string, ctx *variable.ResolutionContext, lookup *Lookup, state *resolutionState, depth int) string {
	if depth > e.maxDepth {
		state.fail(fmt.Sprintf("%s: depth %d exceeded while expanding %q",
			template.ErrDepthExceeded, e.maxDepth, tmpl))
		return ""
	}

	parsed := e.parseCache.Parse(tmpl)
	if !parsed.Success {
		for _, msg := range parsed.Errors {
			state.fail(fmt.Sprintf("%s: %s", template.ErrInvalidTemplate, msg))
		}
		return ""
	}

	var out strings.Builder
	for _, seg := range parsed.Segments {
		switch seg.Kind {
		case template.SegmentLiteral:
			out.WriteString(seg.Text)
		case template.SegmentReference:
			out.WriteString(e.resolveReference(seg.Ref, ctx, lookup, state, depth))
		}
	}
	return out.String()
}

func (e *Engine) resolveReference(ref *template.Reference, ctx *variable.ResolutionContext, lookup *Lookup, state *resolutionState, depth int) string {
	switch ref.Kind {
	case template.RefName:
		return e.resolveName(ref.Name, ctx, lookup, state, depth)
	case template.RefCall:
		return e.resolveCall(ref, ctx, lookup, state, depth)
	default:
		state.fail(fmt.Sprintf("%s: %s", template.ErrMalformedRef, ref.Reason))
		return ""
	}
}

// resolveName looks up a bare variable name and recursively expands the
// found variable's own value, carrying the visiting set forward so cycles on
// the active chain are caught.
func (e *Engine) resolveName(name string, ctx *variable.ResolutionContext, lookup *Lookup, state *resolutionState, depth int) string {
	if _, active := state.visiting[name]; active {
		// The outer frame recorded the name as resolved before recursing;
		// a circular name belongs in exactly one of the two sets.
		delete(state.resolved, name)
		state.unresolved[name] = struct{}{}
		state.fail(fmt.Sprintf("%s: %s", template.ErrCircularReference, state.describeCycle(name)))
		return ""
	}

	v, found := lookup.Find(name)
	if !found {
		state.unresolved[name] = struct{}{}
		state.fail(fmt.Sprintf("%s: %s", template.ErrUnresolvedVariable, name))
		return ""
	}

	state.resolved[name] = struct{}{}

	state.visiting[name] = struct{}{}
	state.chain = append(state.chain, name)
	expanded := e.resolveTemplate(v.Value, ctx, lookup, state, depth+1)
	state.chain = state.chain[:len(state.chain)-1]
	delete(state.visiting, name)

	return expanded
}

// resolveCall resolves each argument as a template in its own right, then
// invokes the registry function. Quoted arguments are passed through as
// literals without resolution.
func (e *Engine) resolveCall(ref *template.Reference, ctx *variable.ResolutionContext, lookup *Lookup, state *resolutionState, depth int) string {
	args := make([]string, len(ref.Args))
	failed := false
	for i, raw := range ref.Args {
		if lit, ok := unquote(raw); ok {
			args[i] = lit
			continue
		}
		before := len(state.errors)
		args[i] = e.resolveTemplate(raw, ctx, lookup, state, depth+1)
		if len(state.errors) > before {
			failed = true
		}
	}
	if failed {
		// Every bad argument has recorded its own failure; skip the call.
		return ""
	}

	if e.registry.IsNonDeterministic(ref.Name) {
		state.nonDeterministic = true
	}

	value, err := e.registry.Invoke(ref.Name, args, ctx.Request)
	if err != nil {
		state.fail(fmt.Sprintf("%s: %v", ref.Raw, err))
		return ""
	}
	return value
}

// unquote strips matching single or double quotes from a function argument
// literal.
func unquote(s string) (string, bool) {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1], true
		}
	}
	return s, false
}
