package parser

import (
	"strings"
	"testing"

	"github.com/conorfennell/knoldeck/internal/domain"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected domain.Fields
	}{
		{
			name:     "Front and Back",
			input:    "# Front\nWhat is the capital of France?\n# Back\nParis\n",
			expected: domain.Fields{"Front": "What is the capital of France?", "Back": "Paris"},
		},
		{
			name: "Multiline field",
			input: `
# Front
What are the primary colors?
# Back
Red
Blue
Yellow
`,
			expected: domain.Fields{"Front": "What are the primary colors?", "Back": "Red\nBlue\nYellow"},
		},
		{
			name:     "Surrounding blank lines are trimmed",
			input:    "# Front\n\n  Question  \n\n# Back\n\nAnswer\n\n",
			expected: domain.Fields{"Front": "Question", "Back": "Answer"},
		},
		{
			name:     "Text before the first heading is ignored",
			input:    "preamble\n# Front\nQ",
			expected: domain.Fields{"Front": "Q"},
		},
		{
			name:     "Subheadings stay in the body",
			input:    "# Back\nAnswer\n## Details\nmore",
			expected: domain.Fields{"Back": "Answer\n## Details\nmore"},
		},
		{
			name:     "CRLF line endings",
			input:    "# Front\r\nQ\r\n# Back\r\nA\r\n",
			expected: domain.Fields{"Front": "Q", "Back": "A"},
		},
		{
			name:     "Empty field",
			input:    "# Front\n# Back\nA",
			expected: domain.Fields{"Front": "", "Back": "A"},
		},
		{
			name:     "No fields, just text",
			input:    "This is a file with no headings.",
			expected: domain.Fields{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fields, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(fields) != len(tc.expected) {
				t.Fatalf("Expected %d fields, but got %d: %v", len(tc.expected), len(fields), fields)
			}
			for name, want := range tc.expected {
				if got, ok := fields[name]; !ok || got != want {
					t.Errorf("Expected field %s to be '%s', but got '%s'", name, want, got)
				}
			}
		})
	}
}

func TestFormat(t *testing.T) {
	fields := domain.Fields{
		"Source": "Atlas",
		"Back":   "Paris\n",
		"Front":  "Capital of France?",
		"Extra":  "Seine",
	}
	expected := "# Front\nCapital of France?\n# Back\nParis\n# Extra\nSeine\n# Source\nAtlas\n"

	if got := Format(fields); got != expected {
		t.Errorf("Expected formatted note to be %q, but got %q", expected, got)
	}

	parsed, err := Parse(strings.NewReader(Format(fields)))
	if err != nil {
		t.Fatalf("Parse() returned an unexpected error: %v", err)
	}
	if parsed["Back"] != "Paris" || parsed["Extra"] != "Seine" {
		t.Errorf("Formatted note did not parse back: %v", parsed)
	}
}
