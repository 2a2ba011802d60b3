package rule

import (
	"log"
	"strings"

	operrors "github.com/navbytes/requestkit/pkg/errors"
	"github.com/navbytes/requestkit/pkg/resolver"
	"github.com/navbytes/requestkit/pkg/template"
	"github.com/navbytes/requestkit/pkg/variable"
)

// Rewriter applies matched rules' header modifications, resolving template
// values through the engine. A header whose value fails to resolve is left
// unmodified; partial or error text never reaches the wire.
type Rewriter struct {
	engine     *resolver.Engine
	conditions *ConditionEvaluator
}

// NewRewriter creates a rewriter around a resolution engine.
func NewRewriter(engine *resolver.Engine) *Rewriter {
	return &Rewriter{
		engine:     engine,
		conditions: NewConditionEvaluator(),
	}
}

// Apply runs every matching rule's modifications for the given target
// against headers, in rule order, and returns the rewritten map. The input
// map is not mutated. ctx.Request supplies both the URL to match against and
// the request metadata visible to built-in functions.
func (w *Rewriter) Apply(headers map[string]string, target HeaderTarget, rules []*Rule, ctx *variable.ResolutionContext) map[string]string {
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		out[name] = value
	}

	for _, r := range Match(rules, ctx.Request, w.conditions) {
		for i := range r.Headers {
			mod := &r.Headers[i]
			if mod.Target != target {
				continue
			}
			w.applyModification(out, mod, r, ctx)
		}
	}
	return out
}

func (w *Rewriter) applyModification(headers map[string]string, mod *HeaderModification, r *Rule, ctx *variable.ResolutionContext) {
	if mod.Operation == OpRemove {
		deleteHeader(headers, mod.Name)
		return
	}

	value := mod.Value
	// Values without ${ need no resolution pass at all.
	if strings.Contains(value, "${") || strings.Contains(value, `\$`) {
		result := w.engine.Resolve(value, ctx)
		if !result.Success {
			log.Printf("Warning: %v", operrors.NewOperationalErrorWithAttrs(
				"resolving header value", "", r.ID.String(), template.ErrInvalidTemplate,
				map[string]interface{}{
					"header": mod.Name,
					"errors": result.Errors,
				}))
			return
		}
		value = result.Value
	}

	switch mod.Operation {
	case OpSet:
		setHeader(headers, mod.Name, value)
	case OpAppend:
		appendHeader(headers, mod.Name, value)
	}
}

// Header names are case-insensitive; modifications replace in place when a
// differently-cased key already exists.

func findHeader(headers map[string]string, name string) (string, bool) {
	for key := range headers {
		if strings.EqualFold(key, name) {
			return key, true
		}
	}
	return "", false
}

func setHeader(headers map[string]string, name, value string) {
	if key, ok := findHeader(headers, name); ok {
		headers[key] = value
		return
	}
	headers[name] = value
}

func appendHeader(headers map[string]string, name, value string) {
	if key, ok := findHeader(headers, name); ok {
		headers[key] = headers[key] + ", " + value
		return
	}
	headers[name] = value
}

func deleteHeader(headers map[string]string, name string) {
	if key, ok := findHeader(headers, name); ok {
		delete(headers, key)
	}
}
