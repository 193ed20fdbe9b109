package parser

import (
	"errors"
	"fmt"
	"gui-agent/internal/entity"
	"regexp"
	"strconv"
	"strings"
)

var (
	errUnterminatedCall  = errors.New("unterminated call")
	errUnterminatedQuote = errors.New("unterminated quoted value")
	errUnterminatedTag   = errors.New("unterminated tag value")
	errBadSeparator      = errors.New("expected ',' or ')'")

	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

type roughArg struct {
	// key is empty for positional arguments.
	key   string
	value string
}

type roughCall struct {
	name string
	args []roughArg
}

// scanCalls extracts name(arg=value, ...) expressions from text. Identifiers that
// resolve returns false for are treated as prose. Scanning stops after a terminal action.
func scanCalls(text string, resolve func(string) (entity.ActionType, bool)) ([]roughCall, error) {
	var calls []roughCall

	i := 0
	for i < len(text) {
		if !isIdentStart(text[i]) || (i > 0 && isIdentChar(text[i-1])) {
			i++

			continue
		}

		j := i
		for j < len(text) && isIdentChar(text[j]) {
			j++
		}

		name := strings.ToLower(text[i:j])

		typ, known := resolve(name)
		if j >= len(text) || text[j] != '(' || !known {
			i = j

			continue
		}

		args, end, err := parseArgs(text, j+1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		calls = append(calls, roughCall{name: name, args: args})
		i = end

		if typ.IsTerminal() {
			break
		}
	}

	return calls, nil
}

func parseArgs(text string, pos int) ([]roughArg, int, error) {
	var args []roughArg

	for {
		pos = skipSpaces(text, pos)
		if pos >= len(text) {
			return nil, pos, errUnterminatedCall
		}

		if text[pos] == ')' {
			return args, pos + 1, nil
		}

		var key string

		if isIdentStart(text[pos]) {
			k := pos
			for k < len(text) && isIdentChar(text[k]) {
				k++
			}

			eq := skipSpaces(text, k)
			if eq < len(text) && text[eq] == '=' {
				key = strings.ToLower(text[pos:k])
				pos = skipSpaces(text, eq+1)
			}
		}

		value, next, err := parseValue(text, pos)
		if err != nil {
			return nil, next, err
		}

		args = append(args, roughArg{key: key, value: value})

		pos = skipSpaces(text, next)
		if pos >= len(text) {
			return nil, pos, errUnterminatedCall
		}

		switch text[pos] {
		case ',':
			pos++
		case ')':
			return args, pos + 1, nil
		default:
			return nil, pos, fmt.Errorf("%w at offset %d", errBadSeparator, pos)
		}
	}
}

func parseValue(text string, pos int) (string, int, error) {
	if pos >= len(text) {
		return "", pos, errUnterminatedCall
	}

	switch text[pos] {
	case '\'', '"':
		return parseQuoted(text, pos)
	case '<':
		return parseTagged(text, pos)
	default:
		return parseBare(text, pos)
	}
}

func parseQuoted(text string, pos int) (string, int, error) {
	quote := text[pos]

	var b strings.Builder

	for i := pos + 1; i < len(text); i++ {
		c := text[i]

		if c == '\\' && i+1 < len(text) {
			i++

			switch text[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(text[i])
			default:
				b.WriteByte('\\')
				b.WriteByte(text[i])
			}

			continue
		}

		if c == quote {
			return b.String(), i + 1, nil
		}

		b.WriteByte(c)
	}

	return "", len(text), errUnterminatedQuote
}

// parseTagged reads an unquoted <tag>...</tag> value.
func parseTagged(text string, pos int) (string, int, error) {
	closeBracket := strings.IndexByte(text[pos:], '>')
	if closeBracket < 0 {
		return "", len(text), errUnterminatedTag
	}

	name := text[pos+1 : pos+closeBracket]
	closing := "</" + name + ">"

	end := strings.Index(text[pos:], closing)
	if end < 0 {
		return "", len(text), errUnterminatedTag
	}

	end += pos + len(closing)

	return text[pos:end], end, nil
}

func parseBare(text string, pos int) (string, int, error) {
	depth := 0

	for i := pos; i < len(text); i++ {
		switch text[i] {
		case '(', '[', '{':
			depth++
		case ']', '}':
			depth--
		case ')':
			if depth == 0 {
				return strings.TrimSpace(text[pos:i]), i, nil
			}

			depth--
		case ',':
			if depth == 0 {
				return strings.TrimSpace(text[pos:i]), i, nil
			}
		}
	}

	return "", len(text), errUnterminatedCall
}

// parsePoint accepts "<point>x y</point>", "(x,y)", "[x, y]", "x y" and
// four-number boxes, which resolve to their centre.
func parsePoint(value string) (entity.Coordinates, error) {
	nums := numberPattern.FindAllString(value, -1)

	vals := make([]float64, 0, len(nums))
	for _, n := range nums {
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return entity.Coordinates{}, err
		}

		vals = append(vals, f)
	}

	switch len(vals) {
	case 2:
		return entity.RawCoordinates(vals[0], vals[1]), nil
	case 4:
		return entity.RawCoordinates((vals[0]+vals[2])/2, (vals[1]+vals[3])/2), nil
	default:
		return entity.Coordinates{}, fmt.Errorf("cannot read point from %q", value)
	}
}

func skipSpaces(text string, pos int) int {
	for pos < len(text) && (text[pos] == ' ' || text[pos] == '\t' || text[pos] == '\n' || text[pos] == '\r') {
		pos++
	}

	return pos
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
