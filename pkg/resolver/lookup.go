package resolver

import "github.com/navbytes/requestkit/pkg/variable"

// Lookup answers name queries against one resolution context, applying the
// rule > profile > global > system shadowing order. It indexes each scope
// once at construction since a single context typically serves many
// expressions in one template.
type Lookup struct {
	byScope [4]map[string]*variable.Variable
}

// NewLookup builds the per-scope name indexes for a context. Disabled
// variables are skipped entirely so they are invisible to Find. When a scope
// holds duplicate names the first occurrence wins, keeping lookup
// deterministic.
func NewLookup(ctx *variable.ResolutionContext) *Lookup {
	l := &Lookup{}
	for i, scope := range variable.PrecedenceOrder {
		vars := ctx.VariablesForScope(scope)
		index := make(map[string]*variable.Variable, len(vars))
		for _, v := range vars {
			if !v.Enabled {
				continue
			}
			if _, exists := index[v.Name]; !exists {
				index[v.Name] = v
			}
		}
		l.byScope[i] = index
	}
	return l
}

// Find returns the narrowest-scoped enabled variable with the given name.
func (l *Lookup) Find(name string) (*variable.Variable, bool) {
	for _, index := range l.byScope {
		if v, ok := index[name]; ok {
			return v, true
		}
	}
	return nil, false
}
