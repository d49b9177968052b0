package repl

import (
	"errors"
	"strings"
)

var ErrUnbalancedQuotes = errors.New("invalid argument(s), unbalanced quotes")

// SplitArgs breaks an input line into command argument tokens. Tokens
// are whitespace separated, double quotes allow embedded whitespace
// with the usual backslash escapes, single quotes are literal except
// for an escaped quote.
func SplitArgs(input string) ([]string, error) {
	args := []string{}
	i := 0

	for {
		for i < len(input) && isSpace(input[i]) {
			i++
		}

		if i >= len(input) {
			return args, nil
		}

		switch c := input[i]; c {
		case '"', '\'':
			token, next, err := readQuoted(input, i)
			if err != nil {
				return nil, err
			}

			args = append(args, token)
			i = next

		default:
			start := i
			for i < len(input) && !isSpace(input[i]) {
				i++
			}

			args = append(args, input[start:i])
		}
	}
}

// readQuoted consumes one quoted token starting at the opening quote.
// The closing quote must be followed by whitespace or the end of the
// line, `"a"b` is not two tokens glued together.
func readQuoted(input string, i int) (string, int, error) {
	quote := input[i]
	i++

	var token strings.Builder

	for i < len(input) {
		ch := input[i]

		if ch == '\\' && quote == '"' && i+1 < len(input) {
			i++
			switch input[i] {
			case 'n':
				token.WriteByte('\n')
			case 'r':
				token.WriteByte('\r')
			case 't':
				token.WriteByte('\t')
			case '\\':
				token.WriteByte('\\')
			case '"':
				token.WriteByte('"')
			default:
				token.WriteByte('\\')
				token.WriteByte(input[i])
			}
			i++
			continue
		}

		if ch == '\\' && quote == '\'' && i+1 < len(input) && input[i+1] == '\'' {
			token.WriteByte('\'')
			i += 2
			continue
		}

		if ch == quote {
			i++
			if i < len(input) && !isSpace(input[i]) {
				return "", 0, ErrUnbalancedQuotes
			}

			return token.String(), i, nil
		}

		token.WriteByte(ch)
		i++
	}

	return "", 0, ErrUnbalancedQuotes
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
