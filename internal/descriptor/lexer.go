package descriptor

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokPunct
)

type token struct {
	kind tokenKind
	text string // Identifier name, decoded string value, number or punctuation
	line int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of file"
	case tokString:
		return strconv.Quote(t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// lexer splits Python source into the tokens needed to read literal
// expressions. It does not track indentation.
type lexer struct {
	src  []rune
	pos  int
	line int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src), line: 1}
}

func (l *lexer) peekRune(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		switch {
		case r == '\n':
			l.line++
			l.pos++
		case r == '\\' && l.peekRune(1) == '\n':
			l.line++
			l.pos += 2
		case unicode.IsSpace(r):
			l.pos++
		case r == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: l.line}, nil
	}

	r := l.src[l.pos]
	line := l.line

	// String prefixes: r, u, b, f and their combinations
	if isIdentStart(r) {
		start := l.pos
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		word := string(l.src[start:l.pos])
		if l.pos < len(l.src) && (l.src[l.pos] == '\'' || l.src[l.pos] == '"') && isStringPrefix(word) {
			prefix := strings.ToLower(word)
			if strings.Contains(prefix, "f") {
				return token{}, fmt.Errorf("line %d: f-strings are not supported", line)
			}
			s, err := l.readString(strings.Contains(prefix, "r"))
			if err != nil {
				return token{}, err
			}
			return token{kind: tokString, text: s, line: line}, nil
		}
		return token{kind: tokIdent, text: word, line: line}, nil
	}

	if r == '\'' || r == '"' {
		s, err := l.readString(false)
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: s, line: line}, nil
	}

	if unicode.IsDigit(r) || (r == '.' && unicode.IsDigit(l.peekRune(1))) {
		start := l.pos
		for l.pos < len(l.src) && (unicode.IsDigit(l.src[l.pos]) || strings.ContainsRune("._xXoObBabcdefABCDEFjJ", l.src[l.pos])) {
			l.pos++
		}
		return token{kind: tokNumber, text: string(l.src[start:l.pos]), line: line}, nil
	}

	// Two character operators that may appear in ignored statements
	if l.pos+1 < len(l.src) {
		two := string(l.src[l.pos : l.pos+2])
		switch two {
		case "**", "==", "!=", "<=", ">=", "->", "//", ":=":
			l.pos += 2
			return token{kind: tokPunct, text: two, line: line}, nil
		}
	}

	l.pos++
	return token{kind: tokPunct, text: string(r), line: line}, nil
}

func (l *lexer) readString(raw bool) (string, error) {
	quote := l.src[l.pos]
	line := l.line
	triple := l.peekRune(1) == quote && l.peekRune(2) == quote
	if triple {
		l.pos += 3
	} else {
		l.pos++
	}

	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", fmt.Errorf("line %d: unterminated string", line)
		}
		r := l.src[l.pos]

		if r == quote {
			if !triple {
				l.pos++
				return sb.String(), nil
			}
			if l.peekRune(1) == quote && l.peekRune(2) == quote {
				l.pos += 3
				return sb.String(), nil
			}
		}

		if r == '\n' {
			if !triple {
				return "", fmt.Errorf("line %d: unterminated string", line)
			}
			l.line++
		}

		if r == '\\' && l.pos+1 < len(l.src) {
			esc := l.src[l.pos+1]
			if raw {
				sb.WriteRune(r)
				sb.WriteRune(esc)
				if esc == '\n' {
					l.line++
				}
				l.pos += 2
				continue
			}
			l.pos += 2
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case 'a':
				sb.WriteRune('\a')
			case 'b':
				sb.WriteRune('\b')
			case 'f':
				sb.WriteRune('\f')
			case 'v':
				sb.WriteRune('\v')
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := esc - '0'
				for i := 0; i < 2 && l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '7'; i++ {
					v = v*8 + l.src[l.pos] - '0'
					l.pos++
				}
				sb.WriteRune(v)
			case 'N':
				return "", fmt.Errorf("line %d: named unicode escapes are not supported", l.line)
			case '\\', '\'', '"':
				sb.WriteRune(esc)
			case '\n':
				// Line continuation inside a string
				l.line++
			case 'x':
				if l.pos+2 > len(l.src) {
					return "", fmt.Errorf("line %d: truncated \\x escape", l.line)
				}
				v, err := strconv.ParseUint(string(l.src[l.pos:l.pos+2]), 16, 8)
				if err != nil {
					return "", fmt.Errorf("line %d: invalid \\x escape", l.line)
				}
				sb.WriteRune(rune(v))
				l.pos += 2
			case 'u':
				if l.pos+4 > len(l.src) {
					return "", fmt.Errorf("line %d: truncated \\u escape", l.line)
				}
				v, err := strconv.ParseUint(string(l.src[l.pos:l.pos+4]), 16, 32)
				if err != nil {
					return "", fmt.Errorf("line %d: invalid \\u escape", l.line)
				}
				sb.WriteRune(rune(v))
				l.pos += 4
			case 'U':
				if l.pos+8 > len(l.src) {
					return "", fmt.Errorf("line %d: truncated \\U escape", l.line)
				}
				v, err := strconv.ParseUint(string(l.src[l.pos:l.pos+8]), 16, 32)
				if err != nil || v > unicode.MaxRune {
					return "", fmt.Errorf("line %d: invalid \\U escape", l.line)
				}
				sb.WriteRune(rune(v))
				l.pos += 8
			default:
				// Python keeps unrecognised escapes verbatim
				sb.WriteRune('\\')
				sb.WriteRune(esc)
			}
			continue
		}

		sb.WriteRune(r)
		l.pos++
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isStringPrefix(word string) bool {
	if len(word) > 2 {
		return false
	}
	for _, c := range strings.ToLower(word) {
		if c != 'r' && c != 'u' && c != 'b' && c != 'f' {
			return false
		}
	}
	return true
}
