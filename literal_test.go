package tablesql

import "testing"

func TestSQLLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{name: "empty becomes NULL", value: "", expected: "NULL"},
		{name: "integer unquoted", value: "123", expected: "123"},
		{name: "negative integer unquoted", value: "-42", expected: "-42"},
		{name: "float unquoted", value: "3.14", expected: "3.14"},
		{name: "scientific notation unquoted", value: "1e10", expected: "1e10"},
		{name: "true lowercase unquoted", value: "TRUE", expected: "true"},
		{name: "false lowercase unquoted", value: "False", expected: "false"},
		{name: "plain text quoted", value: "hello", expected: "'hello'"},
		{name: "single quote doubled", value: "o'brien", expected: "'o''brien'"},
		{name: "backslash kept literal", value: `a\b`, expected: `'a\b'`},
		{name: "windows path kept literal", value: `C:\data`, expected: `'C:\data'`},
		{name: "tab preserved", value: "a\tb", expected: "'a\tb'"},
		{name: "newline preserved", value: "a\nb", expected: "'a\nb'"},
		{name: "control chars stripped", value: "a\x00b\x1fc", expected: "'abc'"},
		{name: "whitespace-only is text", value: " ", expected: "' '"},
		{name: "numeric-looking text quoted", value: "1.2.3", expected: "'1.2.3'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := sqlLiteral(tt.value); got != tt.expected {
				t.Errorf("sqlLiteral(%q) = %s, want %s", tt.value, got, tt.expected)
			}
		})
	}
}
