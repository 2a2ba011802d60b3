// Package template tokenizes header-value templates into literal spans and
// ${...} reference spans. Parsing is purely lexical: it never looks up
// variables or invokes functions, so the same parse output can be reused for
// validation, preview, and resolution.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

// SegmentKind discriminates parsed template segments.
type SegmentKind int

const (
	// SegmentLiteral is verbatim text outside any ${...} span.
	SegmentLiteral SegmentKind = iota
	// SegmentReference is a ${...} expression span.
	SegmentReference
)

// RefKind classifies the inner text of a reference span.
type RefKind int

const (
	// RefName is a bare variable name: ${API_TOKEN}
	RefName RefKind = iota
	// RefCall is a function call, with or without arguments: ${uuid()}, ${random(1, 10)}
	RefCall
	// RefMalformed is anything else, including an inner ${ before the closing brace.
	RefMalformed
)

// Reference is the parsed form of one ${...} span.
type Reference struct {
	// Raw is the full span as written, including the ${ and } delimiters.
	Raw string
	// Inner is the text between the delimiters.
	Inner string
	Kind  RefKind
	// Name is the variable name (RefName) or function name (RefCall).
	Name string
	// Args holds the raw argument strings of a RefCall, comma-split and
	// trimmed. Arguments may themselves contain ${...} spans; they are
	// resolved later, at resolution time.
	Args []string
	// Reason describes why a RefMalformed span was rejected.
	Reason string
}

// Segment is one parsed unit of a template: literal text or a reference.
type Segment struct {
	Kind SegmentKind
	// Text is the literal content (SegmentLiteral only).
	Text string
	// Ref is the parsed reference (SegmentReference only).
	Ref *Reference
}

// ParseResult aggregates the segment stream and any parse errors.
// Success is false when the template contains an unterminated or empty
// reference; malformed-but-delimited references still parse successfully and
// are reported at resolution time instead.
type ParseResult struct {
	Success  bool
	Segments []Segment
	Errors   []string
}

// nameRegex matches referenceable identifiers, the same grammar enforced at
// variable save time.
var nameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// callRegex matches a function call shape: name followed by a parenthesized
// argument list. The argument list is split separately.
var callRegex = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\((.*)\)$`)

// Parse tokenizes a template into literal and reference segments.
// A backslash-escaped dollar (\$) produces a literal dollar sign.
func Parse(template string) *ParseResult {
	result := &ParseResult{Success: true}

	var literal strings.Builder
	i := 0
	n := len(template)

	flushLiteral := func() {
		if literal.Len() > 0 {
			result.Segments = append(result.Segments, Segment{Kind: SegmentLiteral, Text: literal.String()})
			literal.Reset()
		}
	}

	for i < n {
		if i < n-1 && template[i] == '\\' && template[i+1] == '$' {
			literal.WriteByte('$')
			i += 2
			continue
		}

		if i < n-1 && template[i] == '$' && template[i+1] == '{' {
			end := findClosingBrace(template, i+2)
			if end == -1 {
				result.Success = false
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s at position %d: no matching }", ErrUnterminatedRef, i))
				// The rest of the template cannot be segmented meaningfully.
				flushLiteral()
				return result
			}

			inner := template[i+2 : end]
			if strings.TrimSpace(inner) == "" {
				result.Success = false
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s at position %d", ErrEmptyRef, i))
				i = end + 1
				continue
			}

			flushLiteral()
			result.Segments = append(result.Segments, Segment{
				Kind: SegmentReference,
				Ref:  classify(template[i:end+1], inner),
			})
			i = end + 1
			continue
		}

		literal.WriteByte(template[i])
		i++
	}

	flushLiteral()
	return result
}

// findClosingBrace returns the index of the } closing a reference whose inner
// text starts at `start`, skipping over balanced inner ${...} pairs so that
// function arguments may themselves contain references. Returns -1 when the
// reference never closes.
func findClosingBrace(template string, start int) int {
	depth := 0
	for j := start; j < len(template); j++ {
		if j < len(template)-1 && template[j] == '$' && template[j+1] == '{' {
			depth++
			j++
			continue
		}
		if template[j] == '}' {
			if depth == 0 {
				return j
			}
			depth--
		}
	}
	return -1
}

// classify splits a reference's inner text into a bare name, a function
// call, or a malformed span.
func classify(raw, inner string) *Reference {
	ref := &Reference{Raw: raw, Inner: inner}
	trimmed := strings.TrimSpace(inner)

	if nameRegex.MatchString(trimmed) {
		ref.Kind = RefName
		ref.Name = trimmed
		return ref
	}

	if m := callRegex.FindStringSubmatch(trimmed); m != nil {
		ref.Kind = RefCall
		ref.Name = m[1]
		ref.Args = SplitArgs(m[2])
		return ref
	}

	// An inner ${ outside a function argument list means literal nesting,
	// e.g. ${NESTED_${VAR}}. Rejected by policy rather than given an implicit
	// precedence; nesting through a variable's resolved value is the
	// supported path.
	if strings.Contains(trimmed, "${") {
		ref.Kind = RefMalformed
		ref.Reason = fmt.Sprintf("nested ${ inside %s: nest references through a variable's value instead", raw)
		return ref
	}

	ref.Kind = RefMalformed
	ref.Reason = fmt.Sprintf("%s is neither a variable name nor a function call", raw)
	return ref
}

// SplitArgs splits a function argument list on commas, respecting quoted
// strings and ${...} spans so that ${fn(a, ${b})} keeps ${b} intact. An empty
// or all-whitespace list yields no arguments. Each argument is trimmed.
func SplitArgs(argsStr string) []string {
	if strings.TrimSpace(argsStr) == "" {
		return nil
	}

	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)
	braceDepth := 0

	for i := 0; i < len(argsStr); i++ {
		ch := argsStr[i]

		if (ch == '\'' || ch == '"') && (i == 0 || argsStr[i-1] != '\\') {
			if !inQuote {
				inQuote = true
				quoteChar = ch
			} else if ch == quoteChar {
				inQuote = false
				quoteChar = 0
			}
			current.WriteByte(ch)
			continue
		}

		if !inQuote {
			if ch == '$' && i+1 < len(argsStr) && argsStr[i+1] == '{' {
				braceDepth++
				current.WriteString("${")
				i++
				continue
			}
			if ch == '}' && braceDepth > 0 {
				braceDepth--
				current.WriteByte(ch)
				continue
			}
			if ch == ',' && braceDepth == 0 {
				args = append(args, strings.TrimSpace(current.String()))
				current.Reset()
				continue
			}
		}

		current.WriteByte(ch)
	}

	args = append(args, strings.TrimSpace(current.String()))
	return args
}

// References returns all reference segments in parse order.
func (r *ParseResult) References() []*Reference {
	var refs []*Reference
	for _, seg := range r.Segments {
		if seg.Kind == SegmentReference {
			refs = append(refs, seg.Ref)
		}
	}
	return refs
}

// HasReferences reports whether the parsed template contains any ${...} span.
func (r *ParseResult) HasReferences() bool {
	for _, seg := range r.Segments {
		if seg.Kind == SegmentReference {
			return true
		}
	}
	return false
}
