package validation

import (
	"fmt"

	"github.com/navbytes/requestkit/pkg/variable"
)

// IsValidNameChar checks if a character may appear in a variable name
// (letters, digits, or underscore). The first character must additionally
// not be a digit; use ValidateName for the full check.
func IsValidNameChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '_'
}

// ValidateName checks that name is referenceable through ${name} syntax.
// Names that fail here can never be resolved, so the authoring UI must
// reject them before save.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("variable name cannot be empty")
	}
	if name[0] >= '0' && name[0] <= '9' {
		return fmt.Errorf("variable name %q cannot start with a digit", name)
	}
	if !variable.IsValidName(name) {
		for _, ch := range name {
			if !IsValidNameChar(ch) {
				return fmt.Errorf("variable name %q contains invalid character %q (letters, digits, and underscores only)", name, ch)
			}
		}
		return fmt.Errorf("invalid variable name %q", name)
	}
	return nil
}

// IsValidFileName checks a user-supplied base name used for profile files:
// non-empty, no path separators, no traversal, bounded length.
func IsValidFileName(name string) bool {
	if name == "" || len(name) > 255 {
		return false
	}
	if name == "." || name == ".." {
		return false
	}
	for _, ch := range name {
		if ch == '/' || ch == '\\' || ch == 0 {
			return false
		}
	}
	return true
}
