package template_test

import (
	"testing"

	"github.com/navbytes/requestkit/pkg/template"
)

// TestParseLiterals tests templates without any references
func TestParseLiterals(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{name: "plain text", template: "no variables here", want: "no variables here"},
		{name: "lone dollar", template: "price: $5", want: "price: $5"},
		{name: "escaped dollar brace", template: `cost \${total}`, want: "cost ${total}"},
		{name: "closing brace alone", template: "a } b", want: "a } b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := template.Parse(tt.template)
			if !result.Success {
				t.Fatalf("Parse(%q) failed: %v", tt.template, result.Errors)
			}
			if len(result.Segments) != 1 {
				t.Fatalf("expected 1 segment, got %d", len(result.Segments))
			}
			seg := result.Segments[0]
			if seg.Kind != template.SegmentLiteral {
				t.Fatalf("expected literal segment, got %v", seg.Kind)
			}
			if seg.Text != tt.want {
				t.Errorf("got %q, want %q", seg.Text, tt.want)
			}
		})
	}
}

// TestParseEmptyTemplate tests that an empty string parses to zero segments
func TestParseEmptyTemplate(t *testing.T) {
	result := template.Parse("")
	if !result.Success {
		t.Fatalf("empty template should parse: %v", result.Errors)
	}
	if len(result.Segments) != 0 {
		t.Errorf("expected no segments, got %d", len(result.Segments))
	}
}

// TestParseReferences tests classification of reference spans
func TestParseReferences(t *testing.T) {
	tests := []struct {
		name     string
		template string
		wantKind template.RefKind
		wantName string
		wantArgs []string
	}{
		{
			name:     "bare name",
			template: "${API_TOKEN}",
			wantKind: template.RefName,
			wantName: "API_TOKEN",
		},
		{
			name:     "underscore name",
			template: "${_private}",
			wantKind: template.RefName,
			wantName: "_private",
		},
		{
			name:     "whitespace around name",
			template: "${ token }",
			wantKind: template.RefName,
			wantName: "token",
		},
		{
			name:     "zero-arg call",
			template: "${uuid()}",
			wantKind: template.RefCall,
			wantName: "uuid",
		},
		{
			name:     "two-arg call",
			template: "${random(1, 10)}",
			wantKind: template.RefCall,
			wantName: "random",
			wantArgs: []string{"1", "10"},
		},
		{
			name:     "call with nested reference argument",
			template: "${random(1, ${max_val})}",
			wantKind: template.RefCall,
			wantName: "random",
			wantArgs: []string{"1", "${max_val}"},
		},
		{
			name:     "quoted argument containing comma",
			template: `${replace(${s}, "a,b", "c")}`,
			wantKind: template.RefCall,
			wantName: "replace",
			wantArgs: []string{"${s}", `"a,b"`, `"c"`},
		},
		{
			name:     "name with dash is malformed",
			template: "${api-token}",
			wantKind: template.RefMalformed,
		},
		{
			name:     "leading digit is malformed",
			template: "${1st}",
			wantKind: template.RefMalformed,
		},
		{
			name:     "literal nesting is malformed",
			template: "${NESTED_${VAR}}",
			wantKind: template.RefMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := template.Parse(tt.template)
			if !result.Success {
				t.Fatalf("Parse(%q) failed: %v", tt.template, result.Errors)
			}
			refs := result.References()
			if len(refs) != 1 {
				t.Fatalf("expected 1 reference, got %d", len(refs))
			}
			ref := refs[0]
			if ref.Kind != tt.wantKind {
				t.Fatalf("kind: got %v, want %v (reason: %s)", ref.Kind, tt.wantKind, ref.Reason)
			}
			if tt.wantKind == template.RefMalformed {
				if ref.Reason == "" {
					t.Error("malformed reference should carry a reason")
				}
				return
			}
			if ref.Name != tt.wantName {
				t.Errorf("name: got %q, want %q", ref.Name, tt.wantName)
			}
			if len(ref.Args) != len(tt.wantArgs) {
				t.Fatalf("args: got %v, want %v", ref.Args, tt.wantArgs)
			}
			for i := range tt.wantArgs {
				if ref.Args[i] != tt.wantArgs[i] {
					t.Errorf("arg %d: got %q, want %q", i, ref.Args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

// TestParseErrors tests unterminated and empty references
func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
	}{
		{name: "unterminated", template: "Bearer ${TOKEN"},
		{name: "unterminated nested", template: "${outer(${inner})"},
		{name: "empty reference", template: "a ${} b"},
		{name: "whitespace-only reference", template: "${  }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := template.Parse(tt.template)
			if result.Success {
				t.Fatalf("Parse(%q) should fail", tt.template)
			}
			if len(result.Errors) == 0 {
				t.Error("failed parse should carry errors")
			}
		})
	}
}

// TestParseMixedSegments tests interleaved literals and references
func TestParseMixedSegments(t *testing.T) {
	result := template.Parse("Bearer ${API_TOKEN} for ${domain()}")
	if !result.Success {
		t.Fatalf("parse failed: %v", result.Errors)
	}
	kinds := []template.SegmentKind{
		template.SegmentLiteral,
		template.SegmentReference,
		template.SegmentLiteral,
		template.SegmentReference,
	}
	if len(result.Segments) != len(kinds) {
		t.Fatalf("expected %d segments, got %d", len(kinds), len(result.Segments))
	}
	for i, want := range kinds {
		if result.Segments[i].Kind != want {
			t.Errorf("segment %d: got kind %v, want %v", i, result.Segments[i].Kind, want)
		}
	}
	if result.Segments[0].Text != "Bearer " {
		t.Errorf("first literal: got %q", result.Segments[0].Text)
	}
}

// TestSplitArgs tests argument splitting corner cases
func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name string
		args string
		want []string
	}{
		{name: "empty", args: "", want: nil},
		{name: "whitespace only", args: "   ", want: nil},
		{name: "single", args: "42", want: []string{"42"}},
		{name: "two trimmed", args: " a , b ", want: []string{"a", "b"}},
		{name: "comma inside reference", args: "${fn(a, b)}, c", want: []string{"${fn(a, b)}", "c"}},
		{name: "comma inside quotes", args: `"a,b", c`, want: []string{`"a,b"`, "c"}},
		{name: "trailing empty arg", args: "a,", want: []string{"a", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := template.SplitArgs(tt.args)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("arg %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
