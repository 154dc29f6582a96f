package value

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapflow/pkg/token"
)

// SyntaxError reports a malformed params/options block.
type SyntaxError struct {
	Pos     token.Position
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid params block at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Position returns the source position of the error.
func (e *SyntaxError) Position() token.Position { return e.Pos }

// Parse parses a balanced { ... } block (braces included) into an
// Object. The accepted syntax is the JSON subset: double-quoted
// strings, numbers, true/false/null, objects and arrays. Trailing
// commas and duplicate keys are rejected. Positions in errors are
// reported relative to base, which should be the position of the
// opening brace in the original source.
func Parse(block string, base token.Position) (*Object, error) {
	s := &scanner{src: block, base: base, line: base.Line, col: base.Column - 1}
	s.next()
	s.skipSpace()
	if s.ch != '{' {
		return nil, s.errf("expected '{', found %s", s.describe())
	}
	v, err := s.parseValue()
	if err != nil {
		return nil, err
	}
	s.skipSpace()
	if s.ch != 0 {
		return nil, s.errf("unexpected trailing content %s", s.describe())
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, &SyntaxError{Pos: base, Message: "block must be an object"}
	}
	return obj, nil
}

type scanner struct {
	src  string
	pos  int
	read int
	ch   byte
	line int
	col  int
	base token.Position
}

func (s *scanner) next() {
	if s.read >= len(s.src) {
		s.ch = 0
	} else {
		s.ch = s.src[s.read]
	}
	s.pos = s.read
	s.read++
	if s.ch == '\n' {
		s.line++
		s.col = 0
	} else {
		s.col++
	}
}

func (s *scanner) currentPos() token.Position {
	return token.Position{Line: s.line, Column: s.col, Offset: s.base.Offset + s.pos}
}

func (s *scanner) skipSpace() {
	for s.ch == ' ' || s.ch == '\t' || s.ch == '\n' || s.ch == '\r' {
		s.next()
	}
}

func (s *scanner) errf(format string, args ...any) error {
	return &SyntaxError{Pos: s.currentPos(), Message: fmt.Sprintf(format, args...)}
}

// describe renders the current character for error messages.
func (s *scanner) describe() string {
	if s.ch == 0 {
		return "end of block"
	}
	return fmt.Sprintf("%q", string(s.ch))
}

func (s *scanner) parseValue() (Value, error) {
	s.skipSpace()
	switch {
	case s.ch == '{':
		return s.parseObject()
	case s.ch == '[':
		return s.parseArray()
	case s.ch == '"':
		str, err := s.parseString()
		if err != nil {
			return nil, err
		}
		return String(str), nil
	case s.ch == '-' || isDigitByte(s.ch):
		return s.parseNumber()
	case isLetterByte(s.ch):
		return s.parseWord()
	case s.ch == 0:
		return nil, s.errf("unexpected end of block")
	default:
		return nil, s.errf("unexpected character %s", s.describe())
	}
}

func (s *scanner) parseObject() (Value, error) {
	obj := &Object{}
	s.next() // consume '{'
	s.skipSpace()
	if s.ch == '}' {
		s.next()
		return obj, nil
	}
	for {
		s.skipSpace()
		if s.ch != '"' {
			return nil, s.errf("expected object key, found %s", s.describe())
		}
		keyPos := s.currentPos()
		key, err := s.parseString()
		if err != nil {
			return nil, err
		}
		if _, exists := obj.Get(key); exists {
			return nil, &SyntaxError{Pos: keyPos, Message: fmt.Sprintf("duplicate key %q", key)}
		}
		s.skipSpace()
		if s.ch != ':' {
			return nil, s.errf("expected ':' after key %q, found %s", key, s.describe())
		}
		s.next()
		v, err := s.parseValue()
		if err != nil {
			return nil, err
		}
		obj.Fields = append(obj.Fields, Field{Key: key, Value: v})
		s.skipSpace()
		switch s.ch {
		case ',':
			s.next()
			s.skipSpace()
			if s.ch == '}' {
				return nil, s.errf("trailing comma before '}'")
			}
		case '}':
			s.next()
			return obj, nil
		default:
			return nil, s.errf("expected ',' or '}', found %s", s.describe())
		}
	}
}

func (s *scanner) parseArray() (Value, error) {
	var arr Array
	s.next() // consume '['
	s.skipSpace()
	if s.ch == ']' {
		s.next()
		if arr == nil {
			arr = Array{}
		}
		return arr, nil
	}
	for {
		v, err := s.parseValue()
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
		s.skipSpace()
		switch s.ch {
		case ',':
			s.next()
			s.skipSpace()
			if s.ch == ']' {
				return nil, s.errf("trailing comma before ']'")
			}
		case ']':
			s.next()
			return arr, nil
		default:
			return nil, s.errf("expected ',' or ']', found %s", s.describe())
		}
	}
}

func (s *scanner) parseString() (string, error) {
	start := s.currentPos()
	s.next() // consume opening quote
	var b strings.Builder
	for {
		switch {
		case s.ch == 0:
			return "", &SyntaxError{Pos: start, Message: "unterminated string"}
		case s.ch == '"':
			s.next()
			return b.String(), nil
		case s.ch == '\\':
			s.next()
			switch s.ch {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '/':
				b.WriteByte('/')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'u':
				r, err := s.parseUnicodeEscape()
				if err != nil {
					return "", err
				}
				b.WriteRune(r)
			default:
				return "", s.errf("invalid escape character %s", s.describe())
			}
			s.next()
		default:
			b.WriteByte(s.ch)
			s.next()
		}
	}
}

func (s *scanner) parseUnicodeEscape() (rune, error) {
	var r rune
	for i := 0; i < 4; i++ {
		s.next()
		var d byte
		switch {
		case s.ch >= '0' && s.ch <= '9':
			d = s.ch - '0'
		case s.ch >= 'a' && s.ch <= 'f':
			d = s.ch - 'a' + 10
		case s.ch >= 'A' && s.ch <= 'F':
			d = s.ch - 'A' + 10
		default:
			return 0, s.errf("invalid unicode escape")
		}
		r = r*16 + rune(d)
	}
	return r, nil
}

func (s *scanner) parseNumber() (Value, error) {
	start := s.pos
	if s.ch == '-' {
		s.next()
	}
	if !isDigitByte(s.ch) {
		return nil, s.errf("invalid number")
	}
	for isDigitByte(s.ch) {
		s.next()
	}
	if s.ch == '.' {
		s.next()
		if !isDigitByte(s.ch) {
			return nil, s.errf("invalid number: expected digit after '.'")
		}
		for isDigitByte(s.ch) {
			s.next()
		}
	}
	if s.ch == 'e' || s.ch == 'E' {
		s.next()
		if s.ch == '+' || s.ch == '-' {
			s.next()
		}
		if !isDigitByte(s.ch) {
			return nil, s.errf("invalid number: malformed exponent")
		}
		for isDigitByte(s.ch) {
			s.next()
		}
	}
	return Number(s.src[start:s.pos]), nil
}

func (s *scanner) parseWord() (Value, error) {
	start := s.pos
	wordPos := s.currentPos()
	for isLetterByte(s.ch) {
		s.next()
	}
	switch s.src[start:s.pos] {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	case "null":
		return Null{}, nil
	default:
		return nil, &SyntaxError{Pos: wordPos, Message: fmt.Sprintf("unexpected word %q", s.src[start:s.pos])}
	}
}

func isDigitByte(ch byte) bool { return ch >= '0' && ch <= '9' }

func isLetterByte(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
