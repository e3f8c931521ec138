package parser

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{
			name:     "empty input",
			query:    "",
			expected: []string{},
		},
		{
			name:     "whitespace only",
			query:    "  \n\t ",
			expected: []string{},
		},
		{
			name:     "only semicolons",
			query:    ";;  ;",
			expected: []string{},
		},
		{
			name:     "single statement without semicolon",
			query:    "SELECT 1",
			expected: []string{"SELECT 1"},
		},
		{
			name:     "trailing semicolon",
			query:    "SELECT 1;",
			expected: []string{"SELECT 1"},
		},
		{
			name:     "multiple statements",
			query:    "SELECT 1; SELECT 2;\nSHOW CATALOGS",
			expected: []string{"SELECT 1", "SELECT 2", "SHOW CATALOGS"},
		},
		{
			name:     "semicolon inside string literal",
			query:    "SELECT ';' AS x",
			expected: []string{"SELECT ';' AS x"},
		},
		{
			name:     "escaped quote inside string literal",
			query:    "SELECT 'it''s; fine' AS x; SELECT 2",
			expected: []string{"SELECT 'it''s; fine' AS x", "SELECT 2"},
		},
		{
			name:     "semicolon inside double quoted identifier",
			query:    `SELECT "a;b" FROM t; SELECT 2`,
			expected: []string{`SELECT "a;b" FROM t`, "SELECT 2"},
		},
		{
			name:     "escaped double quote inside identifier",
			query:    `SELECT "a"";b" FROM t`,
			expected: []string{`SELECT "a"";b" FROM t`},
		},
		{
			name:     "semicolon inside backtick identifier",
			query:    "SELECT `a;b` FROM t",
			expected: []string{"SELECT `a;b` FROM t"},
		},
		{
			name:     "semicolon inside line comment",
			query:    "SELECT 1 -- no; split here\n, 2; SELECT 3",
			expected: []string{"SELECT 1 -- no; split here\n, 2", "SELECT 3"},
		},
		{
			name:     "semicolon inside block comment",
			query:    "SELECT /* a; b */ 1; SELECT 2",
			expected: []string{"SELECT /* a; b */ 1", "SELECT 2"},
		},
		{
			name:     "comment only segment is dropped",
			query:    "SELECT 1; -- trailing note",
			expected: []string{"SELECT 1"},
		},
		{
			name:     "block comment only segment is dropped",
			query:    "/* header */; SELECT 1",
			expected: []string{"SELECT 1"},
		},
		{
			name:     "leading comment kept with its statement",
			query:    "-- count rows\nSELECT count(*) FROM t",
			expected: []string{"-- count rows\nSELECT count(*) FROM t"},
		},
		{
			name:     "unterminated string swallows the rest",
			query:    "SELECT 'abc; SELECT 2",
			expected: []string{"SELECT 'abc; SELECT 2"},
		},
		{
			name:     "dash inside string is not a comment",
			query:    "SELECT '--;' AS x; SELECT 2",
			expected: []string{"SELECT '--;' AS x", "SELECT 2"},
		},
		{
			name:     "statements are trimmed",
			query:    "\n  SELECT 1  ;\n\n  SELECT 2  \n",
			expected: []string{"SELECT 1", "SELECT 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.query)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Split(%q) = %q, expected %q", tt.query, got, tt.expected)
			}
		})
	}
}

func TestSplit_NeverReturnsEmptyStatements(t *testing.T) {
	inputs := []string{
		"SELECT 1;;;SELECT 2;",
		"; ; ;",
		"SELECT 1;\n;\n",
		"/* a */;/* b */;SELECT 1",
	}

	for _, input := range inputs {
		for _, stmt := range Split(input) {
			if stmt == "" {
				t.Errorf("Split(%q) returned an empty statement", input)
			}
		}
	}
}
