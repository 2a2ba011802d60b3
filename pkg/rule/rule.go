// Package rule models header rules: URL patterns, optional condition
// expressions, and the header modifications applied when a rule matches.
package rule

import (
	"errors"
	"fmt"
	"time"

	"github.com/navbytes/requestkit/pkg/domain/types"
)

// HeaderTarget selects which side of the exchange a modification applies to.
type HeaderTarget int

const (
	// TargetRequest modifies outgoing request headers.
	TargetRequest HeaderTarget = iota
	// TargetResponse modifies incoming response headers.
	TargetResponse
)

// String returns the target's wire name.
func (t HeaderTarget) String() string {
	switch t {
	case TargetRequest:
		return "request"
	case TargetResponse:
		return "response"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ParseHeaderTarget converts a wire name into a HeaderTarget.
func ParseHeaderTarget(name string) (HeaderTarget, error) {
	switch name {
	case "request":
		return TargetRequest, nil
	case "response":
		return TargetResponse, nil
	default:
		return 0, fmt.Errorf("rule: invalid header target %q (must be request or response)", name)
	}
}

// HeaderOperation is the kind of change applied to a header.
type HeaderOperation int

const (
	// OpSet replaces the header value, creating the header if absent.
	OpSet HeaderOperation = iota
	// OpAppend appends to an existing value, comma-separated.
	OpAppend
	// OpRemove deletes the header; Value is ignored.
	OpRemove
)

// String returns the operation's wire name.
func (o HeaderOperation) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpAppend:
		return "append"
	case OpRemove:
		return "remove"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// ParseHeaderOperation converts a wire name into a HeaderOperation.
func ParseHeaderOperation(name string) (HeaderOperation, error) {
	switch name {
	case "set":
		return OpSet, nil
	case "append":
		return OpAppend, nil
	case "remove":
		return OpRemove, nil
	default:
		return 0, fmt.Errorf("rule: invalid header operation %q (must be set, append, or remove)", name)
	}
}

// HeaderModification is one header change carried by a rule. Value is a
// template and may contain ${...} expressions resolved per request.
type HeaderModification struct {
	Target    HeaderTarget
	Operation HeaderOperation
	Name      string
	Value     string
}

// Validate checks structural validity of the modification.
func (m *HeaderModification) Validate() error {
	if m.Name == "" {
		return errors.New("rule: header modification has no header name")
	}
	if m.Operation != OpRemove && m.Value == "" {
		return fmt.Errorf("rule: %s of header %q has no value", m.Operation, m.Name)
	}
	return nil
}

// Rule binds a URL pattern to a set of header modifications, optionally
// guarded by a condition expression over the request.
type Rule struct {
	ID      types.RuleID
	Name    string
	Enabled bool

	// Pattern selects requests by URL; see Pattern for matching semantics.
	Pattern Pattern

	// Condition is an optional boolean expression over the request
	// (e.g. `method == "POST" && domain endsWith "example.com"`). An empty
	// condition always passes.
	Condition string

	Headers []HeaderModification

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an enabled rule with a fresh ID.
func New(name string, pattern Pattern) *Rule {
	now := time.Now()
	return &Rule{
		ID:        types.NewRuleID(),
		Name:      name,
		Enabled:   true,
		Pattern:   pattern,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks structural validity of the rule.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return errors.New("rule: empty rule name")
	}
	if err := r.Pattern.Validate(); err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}
	if len(r.Headers) == 0 {
		return fmt.Errorf("rule %q: no header modifications", r.Name)
	}
	for i := range r.Headers {
		if err := r.Headers[i].Validate(); err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
	}
	return nil
}
