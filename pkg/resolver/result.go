package resolver

import (
	"sort"
	"strings"
	"time"
)

// Result reports the outcome of one top-level resolution call.
type Result struct {
	// Success is true only when every segment across the whole recursive
	// expansion resolved.
	Success bool

	// Value is the fully resolved string. Populated only on success; a
	// failed result's value must not be treated as complete output.
	Value string

	// Errors lists every segment-level failure encountered, in encounter
	// order.
	Errors []string

	// ResolvedVariables holds each distinct name found in the store during
	// the full expansion, sorted.
	ResolvedVariables []string

	// UnresolvedVariables holds each distinct name that was looked up and
	// not found, or flagged as circular, sorted.
	UnresolvedVariables []string

	// ResolutionTime is the wall-clock duration of the top-level call.
	ResolutionTime time.Duration
}

// Error returns the first error message, or "" on success.
func (r *Result) Error() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0]
}

// resolutionState carries the bookkeeping shared across one recursive
// expansion: the visiting set for cycle detection and the distinct-name
// accumulators. It is call-local, so concurrent resolutions share nothing.
type resolutionState struct {
	visiting   map[string]struct{}
	chain      []string
	resolved   map[string]struct{}
	unresolved map[string]struct{}
	errors     []string

	// nonDeterministic is set when any invoked function produces fresh
	// values per call, which makes the result uncacheable.
	nonDeterministic bool
}

func newResolutionState() *resolutionState {
	return &resolutionState{
		visiting:   make(map[string]struct{}),
		resolved:   make(map[string]struct{}),
		unresolved: make(map[string]struct{}),
	}
}

// describeCycle renders the active expansion chain from the first occurrence
// of name back around to it, e.g. "A -> B -> A".
func (s *resolutionState) describeCycle(name string) string {
	start := 0
	for i, n := range s.chain {
		if n == name {
			start = i
			break
		}
	}
	parts := append(append([]string{}, s.chain[start:]...), name)
	return strings.Join(parts, " -> ")
}

func (s *resolutionState) fail(msg string) {
	s.errors = append(s.errors, msg)
}

func (s *resolutionState) result(value string, elapsed time.Duration) *Result {
	res := &Result{
		Success:             len(s.errors) == 0,
		Errors:              s.errors,
		ResolvedVariables:   sortedKeys(s.resolved),
		UnresolvedVariables: sortedKeys(s.unresolved),
		ResolutionTime:      elapsed,
	}
	if res.Success {
		res.Value = value
	}
	return res
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
