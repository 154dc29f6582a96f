package parser

import (
	"strings"
	"unicode"

	"github.com/leapstack-labs/leapflow/pkg/token"
)

// fragTerm selects the terminator for an opaque SQL fragment scan.
type fragTerm int

const (
	fragNone fragTerm = iota
	fragSemi          // terminate at a top-level ';' (CREATE TABLE ... AS body)
	fragTo            // terminate at a top-level TO keyword (EXPORT body)
)

// Lexer tokenizes flow pipeline source text.
//
// The lexer runs in one of two modes. Statement mode (the default)
// recognizes keywords, params blocks and variable expressions and captures
// SQL statement bodies as opaque FRAGMENT tokens. Fragment mode, entered
// through TokenizeFragment, re-scans a captured body into generic tokens
// (every word is an IDENT, unknown punctuation becomes SYMBOL) for
// reference scanning and re-serialization.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	base     int      // offset added to positions when re-scanning a fragment
	fragMode bool     // fragment mode: no keywords, tolerant punctuation
	pending  fragTerm // a fragment capture is due before the next token

	err error // first error encountered; sticky
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// newFragmentLexer creates a lexer that re-scans a captured SQL fragment.
// Positions are reported relative to base so diagnostics point into the
// original source.
func newFragmentLexer(raw string, base token.Position) *Lexer {
	l := &Lexer{
		input:    raw,
		line:     base.Line,
		col:      base.Column - 1,
		base:     base.Offset,
		fragMode: true,
	}
	l.readChar()
	return l
}

// Err returns the first error encountered while scanning, if any.
func (l *Lexer) Err() error { return l.err }

// setErr records the first error; later errors never overwrite it.
func (l *Lexer) setErr(err error) {
	if l.err == nil {
		l.err = err
	}
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.base + l.pos,
	}
}

// NextToken returns the next token. After an error the lexer keeps
// returning EOF; callers should check Err.
func (l *Lexer) NextToken() token.Token {
	if l.err != nil {
		pos := l.currentPos()
		return token.Token{Type: token.EOF, Pos: pos, End: pos}
	}

	if l.pending != fragNone {
		term := l.pending
		l.pending = fragNone
		return l.readFragment(term)
	}

	l.skipWhitespaceAndComments()
	if l.err != nil {
		pos := l.currentPos()
		return token.Token{Type: token.EOF, Pos: pos, End: pos}
	}

	pos := l.currentPos()

	// Variable expression ${...}
	if l.ch == '$' && l.peekChar() == '{' {
		return l.readVariable(pos)
	}

	// Params/options block { ... } (statement mode only; fragment mode
	// treats braces as plain symbols)
	if l.ch == '{' && !l.fragMode {
		return l.readBlock(pos)
	}

	var tok token.Token
	tok.Pos = pos

	switch l.ch {
	case 0:
		tok.Type = token.EOF
		tok.Literal = ""
		tok.End = pos
		return tok
	case '=':
		tok = l.newToken(token.EQ, "=")
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = token.Token{Type: token.LE, Literal: "<=", Pos: pos}
		case '>':
			l.readChar()
			tok = token.Token{Type: token.NE, Literal: "<>", Pos: pos}
		default:
			tok = l.newToken(token.LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GE, Literal: ">=", Pos: pos}
		} else {
			tok = l.newToken(token.GT, ">")
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.NE, Literal: "!=", Pos: pos}
		} else {
			tok = l.illegal(pos)
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = token.Token{Type: token.DPIPE, Literal: "||", Pos: pos}
		} else {
			tok = l.illegal(pos)
		}
	case '.':
		tok = l.newToken(token.DOT, ".")
	case ',':
		tok = l.newToken(token.COMMA, ",")
	case '(':
		tok = l.newToken(token.LPAREN, "(")
	case ')':
		tok = l.newToken(token.RPAREN, ")")
	case ';':
		tok = l.newToken(token.SEMI, ";")
	case '+':
		tok = l.newToken(token.PLUS, "+")
	case '-':
		tok = l.newToken(token.MINUS, "-")
	case '*':
		tok = l.newToken(token.STAR, "*")
	case '/':
		tok = l.newToken(token.SLASH, "/")
	case '%':
		tok = l.newToken(token.PERCENT, "%")
	case '\'', '"':
		return l.readString(pos, l.ch)
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			tok.Literal = l.readIdentifier()
			if l.fragMode {
				tok.Type = token.IDENT
			} else {
				tok.Type = token.LookupIdent(strings.ToLower(tok.Literal))
				// An AS or EXPORT keyword opens an opaque SQL body.
				switch tok.Type {
				case token.AS:
					l.pending = fragSemi
				case token.EXPORT:
					l.pending = fragTo
				}
			}
			tok.End = l.currentPos()
			return tok
		case isDigit(l.ch):
			tok.Type = token.NUMBER
			tok.Literal = l.readNumber()
			tok.End = l.currentPos()
			return tok
		default:
			tok = l.illegal(pos)
		}
	}

	l.readChar()
	tok.End = l.currentPos()
	return tok
}

// illegal produces an ILLEGAL token for the current character. In
// statement mode this is a lex error; fragment mode passes unknown
// punctuation through as SYMBOL so arbitrary SQL survives re-scanning.
func (l *Lexer) illegal(pos token.Position) token.Token {
	if l.fragMode {
		// Longest-match for the cast operator so x::int round-trips.
		if l.ch == ':' && l.peekChar() == ':' {
			l.readChar()
			return token.Token{Type: token.SYMBOL, Literal: "::", Pos: pos}
		}
		return token.Token{Type: token.SYMBOL, Literal: string(l.ch), Pos: pos}
	}
	l.setErr(NewLexErrorf(pos, ErrInvalidCharacter, string(l.ch)))
	return token.Token{Type: token.ILLEGAL, Literal: string(l.ch), Pos: pos, End: pos}
}

// newToken creates a single-character token at the current position.
func (l *Lexer) newToken(tokenType token.TokenType, literal string) token.Token {
	return token.Token{Type: tokenType, Literal: literal, Pos: l.currentPos()}
}

// skipWhitespaceAndComments skips whitespace and comments, keeping
// line/column tracking accurate across them.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		// Line comment (-- ...)
		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		// Block comment (/* ... */)
		if l.ch == '/' && l.peekChar() == '*' {
			start := l.currentPos()
			l.readChar() // skip '/'
			l.readChar() // skip '*'
			closed := false
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // skip '*'
					l.readChar() // skip '/'
					closed = true
					break
				}
				l.readChar()
			}
			if !closed {
				l.setErr(NewLexError(start, ErrUnterminatedComment))
				return
			}
			continue
		}

		break
	}
}

// readString reads a quoted string literal. A doubled quote is the
// escape for the quote character itself: 'it''s' -> it's
//
// In statement mode the token literal is the unquoted content. In
// fragment mode the literal keeps the quotes verbatim so single-quoted
// strings and double-quoted identifiers re-serialize byte-exact.
func (l *Lexer) readString(pos token.Position, quote byte) token.Token {
	startOffset := l.pos
	l.readChar() // skip opening quote

	var result strings.Builder
	closed := false
	for l.ch != 0 {
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar() // skip first quote
				l.readChar() // skip second quote
				continue
			}
			l.readChar() // skip closing quote
			closed = true
			break
		}
		result.WriteByte(l.ch)
		l.readChar()
	}

	if !closed {
		l.setErr(NewLexError(pos, ErrUnterminatedString))
		return token.Token{Type: token.ILLEGAL, Pos: pos, End: l.currentPos()}
	}

	literal := result.String()
	if l.fragMode {
		literal = l.input[startOffset:l.pos]
	}
	return token.Token{Type: token.STRING, Literal: literal, Pos: pos, End: l.currentPos()}
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
// A '.' continues the number only when a digit follows immediately, so
// a qualification dot after digits stays a DOT token.
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// Exponent part (e.g., 1e10, 1E-5)
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar() // skip 'e' or 'E'
			if l.ch == '+' || l.ch == '-' {
				l.readChar() // skip sign
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	return l.input[start:l.pos]
}

// readVariable scans a ${name} or ${name|default} expression token.
// The literal keeps the delimiters. The scan is quote-aware so a '}'
// inside a quoted default does not close the expression.
func (l *Lexer) readVariable(startPos token.Position) token.Token {
	startOffset := l.pos
	l.readChar() // skip '$'
	l.readChar() // skip '{'

	for l.ch != 0 && l.ch != '}' {
		if l.ch == '\'' || l.ch == '"' {
			l.skipQuoted(l.ch)
			continue
		}
		l.readChar()
	}

	if l.ch != '}' {
		l.setErr(NewLexError(startPos, ErrUnterminatedVariable))
		return token.Token{Type: token.ILLEGAL, Pos: startPos, End: l.currentPos()}
	}
	l.readChar() // consume '}'

	return token.Token{
		Type:    token.VARIABLE,
		Literal: l.input[startOffset:l.pos],
		Pos:     startPos,
		End:     l.currentPos(),
	}
}

// readBlock scans a balanced { ... } params/options block. Nesting depth
// is counted and quoted strings are skipped so braces inside string
// values do not affect the balance. The literal keeps the outer braces.
func (l *Lexer) readBlock(startPos token.Position) token.Token {
	startOffset := l.pos
	l.readChar() // skip '{'

	depth := 1
	for l.ch != 0 && depth > 0 {
		switch l.ch {
		case '\'', '"':
			l.skipQuoted(l.ch)
		case '{':
			depth++
			l.readChar()
		case '}':
			depth--
			l.readChar()
		default:
			l.readChar()
		}
	}

	if depth > 0 {
		l.setErr(NewLexError(startPos, ErrUnterminatedBlock))
		return token.Token{Type: token.ILLEGAL, Pos: startPos, End: l.currentPos()}
	}

	return token.Token{
		Type:    token.BLOCK,
		Literal: l.input[startOffset:l.pos],
		Pos:     startPos,
		End:     l.currentPos(),
	}
}

// readFragment captures an opaque SQL statement body. The scan is
// nesting-aware: the terminator only counts outside quoted strings and
// at parenthesis depth zero, because embedded SQL may contain
// parenthesized subqueries and quoted literals holding arbitrary
// characters. The terminator itself is not consumed.
func (l *Lexer) readFragment(term fragTerm) token.Token {
	l.skipWhitespaceAndComments()
	if l.err != nil {
		pos := l.currentPos()
		return token.Token{Type: token.EOF, Pos: pos, End: pos}
	}

	pos := l.currentPos()
	startOffset := l.pos
	depth := 0

	for l.ch != 0 {
		switch l.ch {
		case '\'', '"':
			l.skipQuoted(l.ch)
			continue
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				return l.fragmentToken(pos, startOffset)
			}
		case '-':
			if l.peekChar() == '-' {
				for l.ch != '\n' && l.ch != 0 {
					l.readChar()
				}
				continue
			}
		case '/':
			if l.peekChar() == '*' {
				if !l.skipBlockComment() {
					p := l.currentPos()
					return token.Token{Type: token.EOF, Pos: p, End: p}
				}
				continue
			}
		case '$':
			if l.peekChar() == '{' {
				if !l.skipVariable() {
					p := l.currentPos()
					return token.Token{Type: token.EOF, Pos: p, End: p}
				}
				continue
			}
		case 't', 'T':
			if term == fragTo && depth == 0 && l.atExportTerminator() {
				return l.fragmentToken(pos, startOffset)
			}
		}
		l.readChar()
	}

	return l.fragmentToken(pos, startOffset)
}

// fragmentToken builds the FRAGMENT token for input[startOffset:pos],
// dropping trailing whitespace from the literal.
func (l *Lexer) fragmentToken(pos token.Position, startOffset int) token.Token {
	return token.Token{
		Type:    token.FRAGMENT,
		Literal: strings.TrimRight(l.input[startOffset:l.pos], " \t\r\n"),
		Pos:     pos,
		End:     l.currentPos(),
	}
}

// atExportTerminator reports whether the scan sits on a standalone TO
// keyword: preceded and followed by non-identifier characters.
func (l *Lexer) atExportTerminator() bool {
	if l.pos > 0 {
		prev := l.input[l.pos-1]
		if isLetter(prev) || isDigit(prev) || prev == '_' {
			return false
		}
	}
	if l.pos+2 > len(l.input) {
		return false
	}
	if !strings.EqualFold(l.input[l.pos:l.pos+2], "to") {
		return false
	}
	if l.pos+2 < len(l.input) {
		next := l.input[l.pos+2]
		if isLetter(next) || isDigit(next) || next == '_' {
			return false
		}
	}
	return true
}

// skipQuoted advances past a quoted string, honoring doubled-quote
// escapes. Reports an unterminated string as a lex error.
func (l *Lexer) skipQuoted(quote byte) {
	start := l.currentPos()
	l.readChar() // skip opening quote
	for l.ch != 0 {
		if l.ch == quote {
			if l.peekChar() == quote {
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			return
		}
		l.readChar()
	}
	l.setErr(NewLexError(start, ErrUnterminatedString))
}

// skipBlockComment advances past a /* ... */ comment. Returns false and
// records an error when the comment never closes.
func (l *Lexer) skipBlockComment() bool {
	start := l.currentPos()
	l.readChar() // skip '/'
	l.readChar() // skip '*'
	for l.ch != 0 {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return true
		}
		l.readChar()
	}
	l.setErr(NewLexError(start, ErrUnterminatedComment))
	return false
}

// skipVariable advances past a ${...} expression inside a fragment or
// block scan. Returns false and records an error when unterminated.
func (l *Lexer) skipVariable() bool {
	start := l.currentPos()
	l.readChar() // skip '$'
	l.readChar() // skip '{'
	for l.ch != 0 && l.ch != '}' {
		if l.ch == '\'' || l.ch == '"' {
			l.skipQuoted(l.ch)
			continue
		}
		l.readChar()
	}
	if l.ch != '}' {
		l.setErr(NewLexError(start, ErrUnterminatedVariable))
		return false
	}
	l.readChar() // consume '}'
	return true
}

// isLetter returns true if ch is a letter.
func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, or the first lexical
// error encountered. The returned slice always ends with an EOF token.
func Tokenize(input string) ([]token.Token, error) {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		if err := l.Err(); err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}

// TokenizeFragment re-scans a captured SQL fragment into generic tokens
// for reference scanning and re-serialization. Words are not matched
// against keywords and unknown punctuation becomes SYMBOL tokens, so any
// SQL dialect survives the round trip. Positions are reported relative
// to base.
func TokenizeFragment(raw string, base token.Position) ([]token.Token, error) {
	l := newFragmentLexer(raw, base)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		if err := l.Err(); err != nil {
			return nil, err
		}
		if tok.Type == token.EOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}
