package tools

import (
	"errors"
	"regexp"
	"strings"
)

var (
	errEmptyQuery     = errors.New("query is empty")
	errMultiStatement = errors.New("only a single statement is allowed")
	errNotSelect      = errors.New("only SELECT or WITH queries are allowed")
	errWriteKeyword   = errors.New("query contains a write or schema keyword")
	leadingKeyword    = regexp.MustCompile(`^(?i)(SELECT|WITH)\b`)
	forbiddenKeywords = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|UPSERT|DROP|ALTER|CREATE|ATTACH|DETACH|PRAGMA|VACUUM|REINDEX|ANALYZE|TRUNCATE|BEGIN|COMMIT|ROLLBACK|SAVEPOINT|RELEASE)\b`)
)

// ValidateSelect accepts a single SELECT/WITH statement without write
// keywords. Quoted strings and identifiers are opaque to the checks. It is a
// first filter only; the statement still runs on a query_only connection.
func ValidateSelect(query string) error {
	q := strings.TrimSpace(skeleton(query))
	q = strings.TrimSpace(strings.TrimRight(q, "; \t\r\n"))

	if q == "" {
		return errEmptyQuery
	}
	if strings.Contains(q, ";") {
		return errMultiStatement
	}
	if !leadingKeyword.MatchString(q) {
		return errNotSelect
	}
	if forbiddenKeywords.MatchString(q) {
		return errWriteKeyword
	}
	return nil
}

// skeleton blanks out comments and collapses every quoted span ('str',
// "ident", `ident`, [ident]) to an empty pair of its quotes, leaving only
// the SQL structure. A doubled quote inside a span is an escaped quote. An
// unterminated span runs to the end of the input.
func skeleton(q string) string {
	var b strings.Builder
	b.Grow(len(q))

	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case c == '-' && i+1 < len(q) && q[i+1] == '-':
			for i < len(q) && q[i] != '\n' {
				i++
			}
			b.WriteByte(' ')
			if i < len(q) {
				b.WriteByte('\n')
			}

		case c == '/' && i+1 < len(q) && q[i+1] == '*':
			end := strings.Index(q[i+2:], "*/")
			if end < 0 {
				i = len(q)
			} else {
				i += 2 + end + 1
			}
			b.WriteByte(' ')

		case c == '\'' || c == '"' || c == '`' || c == '[':
			closer := c
			if c == '[' {
				closer = ']'
			}
			i = skipQuoted(q, i+1, closer)
			b.WriteByte(c)
			b.WriteByte(closer)

		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// skipQuoted returns the index of the closing quote of a span starting at
// from, or the last index of q if the span never closes
func skipQuoted(q string, from int, closer byte) int {
	for j := from; j < len(q); j++ {
		if q[j] != closer {
			continue
		}
		if closer != ']' && j+1 < len(q) && q[j+1] == closer {
			j++
			continue
		}
		return j
	}
	return len(q) - 1
}
