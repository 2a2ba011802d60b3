// Package functions implements the built-in function catalog available inside
// ${...} template expressions: generators (uuid, timestamp, random), string
// and date helpers, and accessors reflecting the current network request.
// The registry is extensible; callers may register additional functions.
package functions

import (
	"fmt"
	"sort"

	"github.com/navbytes/requestkit/pkg/variable"
)

// ParameterSpec documents one declared function parameter.
type ParameterSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Handler is the implementation of a registered function. Arguments arrive as
// already-resolved strings in declared order. The request context may be nil.
type Handler func(args []string, req *variable.RequestContext) (string, error)

// FunctionSpec describes a registered function for UI display and arity
// checking.
type FunctionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterSpec `json:"parameters,omitempty"`

	// NonDeterministic marks functions that produce a fresh value on every
	// invocation (uuid, timestamp, random). Resolutions that touch one are
	// never served from a result cache.
	NonDeterministic bool `json:"non_deterministic,omitempty"`
}

// requiredParams counts parameters that must be supplied.
func (s *FunctionSpec) requiredParams() int {
	count := 0
	for _, p := range s.Parameters {
		if p.Required {
			count++
		}
	}
	return count
}

type registration struct {
	spec    FunctionSpec
	handler Handler
}

// Registry holds the function catalog. A Registry is immutable after setup
// and safe for concurrent Invoke calls.
type Registry struct {
	funcs map[string]registration
}

// NewRegistry creates a registry pre-populated with the built-in functions.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]registration)}
	registerBuiltins(r)
	return r
}

// Register adds or replaces a function. Registration is not goroutine-safe;
// complete setup before sharing the registry.
func (r *Registry) Register(spec FunctionSpec, handler Handler) error {
	if spec.Name == "" {
		return fmt.Errorf("functions: cannot register function with empty name")
	}
	if handler == nil {
		return fmt.Errorf("functions: nil handler for %q", spec.Name)
	}
	r.funcs[spec.Name] = registration{spec: spec, handler: handler}
	return nil
}

// Has reports whether a function with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

// Spec returns the registered spec for name.
func (r *Registry) Spec(name string) (FunctionSpec, bool) {
	reg, ok := r.funcs[name]
	return reg.spec, ok
}

// IsNonDeterministic reports whether name is registered and produces fresh
// values per call. Unknown names report false; Invoke handles the error.
func (r *Registry) IsNonDeterministic(name string) bool {
	reg, ok := r.funcs[name]
	return ok && reg.spec.NonDeterministic
}

// ListFunctions returns all function specs sorted by name, for display in the
// authoring UI.
func (r *Registry) ListFunctions() []FunctionSpec {
	specs := make([]FunctionSpec, 0, len(r.funcs))
	for _, reg := range r.funcs {
		specs = append(specs, reg.spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Invoke runs a registered function. Unknown names, argument-count
// mismatches, and bad argument values are all reported as wrapped sentinel
// errors, never as panics.
func (r *Registry) Invoke(name string, args []string, req *variable.RequestContext) (string, error) {
	reg, ok := r.funcs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	required := reg.spec.requiredParams()
	if len(args) < required || len(args) > len(reg.spec.Parameters) {
		if required == len(reg.spec.Parameters) {
			return "", fmt.Errorf("%w: %s expects %d argument(s), got %d",
				ErrArity, name, required, len(args))
		}
		return "", fmt.Errorf("%w: %s expects %d to %d argument(s), got %d",
			ErrArity, name, required, len(reg.spec.Parameters), len(args))
	}

	return reg.handler(args, req)
}
