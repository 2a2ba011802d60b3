// Package types defines core domain type aliases and identifiers for RequestKit.
package types

import "github.com/google/uuid"

// VariableID is a unique identifier for a variable.
type VariableID string

// ProfileID is a unique identifier for an environment profile.
type ProfileID string

// RuleID is a unique identifier for a header rule.
type RuleID string

// NewVariableID generates a new unique variable ID.
func NewVariableID() VariableID {
	return VariableID(uuid.NewString())
}

// String returns the string representation of a VariableID.
func (id VariableID) String() string {
	return string(id)
}

// IsZero returns true if the VariableID is the zero value.
func (id VariableID) IsZero() bool {
	return id == ""
}

// NewProfileID generates a new unique profile ID.
func NewProfileID() ProfileID {
	return ProfileID(uuid.NewString())
}

// String returns the string representation of a ProfileID.
func (id ProfileID) String() string {
	return string(id)
}

// IsZero returns true if the ProfileID is the zero value.
func (id ProfileID) IsZero() bool {
	return id == ""
}

// NewRuleID generates a new unique rule ID.
func NewRuleID() RuleID {
	return RuleID(uuid.NewString())
}

// String returns the string representation of a RuleID.
func (id RuleID) String() string {
	return string(id)
}

// IsZero returns true if the RuleID is the zero value.
func (id RuleID) IsZero() bool {
	return id == ""
}
