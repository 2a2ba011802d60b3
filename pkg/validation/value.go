package validation

import (
	"fmt"

	"github.com/navbytes/requestkit/pkg/template"
	"github.com/navbytes/requestkit/pkg/variable"
)

// Report is the outcome of statically checking a variable's raw value.
type Report struct {
	Valid bool
	// Errors is a human-readable list of everything wrong with the value.
	Errors []string
	// Spans lists every ${...} expression found, as raw strings, for UI
	// display regardless of whether it would resolve.
	Spans []string
}

// ValidateValue statically checks a template value without resolving it:
// unterminated ${, empty ${}, malformed inner expressions, and literal
// nested ${...} (which is rejected by policy, not given a nesting
// precedence). Whether referenced names actually exist is a resolution
// concern, not a validation one.
func ValidateValue(value string) *Report {
	report := &Report{Valid: true}

	parsed := template.Parse(value)
	if !parsed.Success {
		report.Valid = false
		report.Errors = append(report.Errors, parsed.Errors...)
	}

	for _, ref := range parsed.References() {
		report.Spans = append(report.Spans, ref.Raw)
		if ref.Kind == template.RefMalformed {
			report.Valid = false
			report.Errors = append(report.Errors, ref.Reason)
		}
	}

	return report
}

// ValidateVariable runs every authoring-time check on a variable definition:
// structural validity, name syntax, and value template syntax.
func ValidateVariable(v *variable.Variable) *Report {
	report := ValidateValue(v.Value)

	if err := v.Validate(); err != nil {
		report.Valid = false
		report.Errors = append([]string{err.Error()}, report.Errors...)
	} else if err := ValidateName(v.Name); err != nil {
		report.Valid = false
		report.Errors = append([]string{err.Error()}, report.Errors...)
	}

	// A variable whose value references itself can never resolve; catch the
	// self-cycle at authoring time instead of at request time.
	for _, ref := range template.Parse(v.Value).References() {
		if ref.Kind == template.RefName && ref.Name == v.Name {
			report.Valid = false
			report.Errors = append(report.Errors,
				fmt.Sprintf("variable %q references itself", v.Name))
		}
	}

	return report
}
