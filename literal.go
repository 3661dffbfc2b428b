package tablesql

import (
	"strconv"
	"strings"
)

// sqlLiteral formats one dataset cell as a SQL literal for a generated
// INSERT statement:
//
//   - empty string: unquoted NULL
//   - parseable as integer or float: emitted unquoted as-is
//   - true/false in any case: emitted unquoted lowercase
//   - anything else: text, single-quoted with escaping
//
// Text values have control characters other than tab, newline, and carriage
// return stripped, and single quotes doubled, so raw cell content can never
// break out of the quoted literal. Backslashes pass through unchanged; the
// engine treats them literally inside standard single-quoted strings.
func sqlLiteral(value string) string {
	if value == "" {
		return "NULL"
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return value
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return value
	}
	switch strings.ToLower(value) {
	case "true":
		return "true"
	case "false":
		return "false"
	}
	return "'" + escapeTextLiteral(value) + "'"
}

// escapeTextLiteral sanitizes and escapes a text value for single-quoting.
func escapeTextLiteral(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			// Strip remaining control characters
		case r == '\'':
			b.WriteString("''")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
