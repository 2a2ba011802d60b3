// Package validation provides static diagnostics for variable definitions:
// name checks and template-syntax checks that run at authoring time, before
// a value is saved, without resolving anything.
package validation
