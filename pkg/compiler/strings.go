package compiler

import (
	"fmt"
	"strconv"
)

// parseInt parses an integer literal's source text (digits only, no sign —
// negation is a separate unary node) into an int64.
func parseInt(text []byte) (int64, error) {
	return strconv.ParseInt(string(text), 10, 64)
}

// parseFloat parses a number literal's source text into a float64.
func parseFloat(text []byte) (float64, error) {
	return strconv.ParseFloat(string(text), 64)
}

// unescapeStringLiteral implements §4.14: the token carries its surrounding
// quotes, which are stripped, and the supported escape sequences (\\, \n,
// \r, \t, \', \") are interpreted. Hex/unicode escapes are reserved and
// currently rejected.
func unescapeStringLiteral(raw []byte) ([]byte, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("malformed string literal")
	}
	inner := raw[1 : len(raw)-1]

	out := make([]byte, 0, len(inner))
	for i := 0; i < len(inner); i++ {
		b := inner[i]
		if b != '\\' {
			out = append(out, b)
			continue
		}
		i++
		if i >= len(inner) {
			return nil, fmt.Errorf("unterminated escape sequence")
		}
		switch inner[i] {
		case '\\':
			out = append(out, '\\')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case '\'':
			out = append(out, '\'')
		case '"':
			out = append(out, '"')
		case 'x', 'u':
			return nil, fmt.Errorf("unsupported escape sequence \\%c", inner[i])
		default:
			return nil, fmt.Errorf("unsupported escape sequence \\%c", inner[i])
		}
	}
	return out, nil
}
