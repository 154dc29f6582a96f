package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapflow/pkg/token"
)

// kinds strips tokens down to (type, literal) pairs for comparison.
type kind struct {
	Type    token.TokenType
	Literal string
}

func kinds(toks []token.Token) []kind {
	out := make([]kind, len(toks))
	for i, tok := range toks {
		out[i] = kind{tok.Type, tok.Literal}
	}
	return out
}

func TestLexer_SourceStatement(t *testing.T) {
	toks, err := Tokenize(`SOURCE events TYPE postgres PARAMS {"dsn": "${events_dsn}"};`)
	require.NoError(t, err, "unexpected error")

	expected := []kind{
		{token.SOURCE, "SOURCE"},
		{token.IDENT, "events"},
		{token.TYPE, "TYPE"},
		{token.IDENT, "postgres"},
		{token.PARAMS, "PARAMS"},
		{token.BLOCK, `{"dsn": "${events_dsn}"}`},
		{token.SEMI, ";"},
		{token.EOF, ""},
	}
	assert.Equal(t, expected, kinds(toks), "token stream mismatch")
}

func TestLexer_LoadStatement(t *testing.T) {
	toks, err := Tokenize(`LOAD raw_events FROM events MODE append;`)
	require.NoError(t, err, "unexpected error")

	expected := []kind{
		{token.LOAD, "LOAD"},
		{token.IDENT, "raw_events"},
		{token.FROM, "FROM"},
		{token.IDENT, "events"},
		{token.MODE, "MODE"},
		{token.IDENT, "append"},
		{token.SEMI, ";"},
		{token.EOF, ""},
	}
	assert.Equal(t, expected, kinds(toks), "token stream mismatch")
}

func TestLexer_KeywordsCaseInsensitive(t *testing.T) {
	toks, err := Tokenize("load t from s;")
	require.NoError(t, err, "unexpected error")

	require.Len(t, toks, 6)
	assert.Equal(t, token.LOAD, toks[0].Type, "lower-case keyword should be recognized")
	assert.Equal(t, "load", toks[0].Literal, "keyword literal should keep original case")
	assert.Equal(t, token.FROM, toks[2].Type)
}

func TestLexer_FragmentAfterAs(t *testing.T) {
	toks, err := Tokenize("CREATE TABLE daily AS SELECT id, count(*) FROM raw GROUP BY id;")
	require.NoError(t, err, "unexpected error")

	expected := []kind{
		{token.CREATE, "CREATE"},
		{token.TABLE, "TABLE"},
		{token.IDENT, "daily"},
		{token.AS, "AS"},
		{token.FRAGMENT, "SELECT id, count(*) FROM raw GROUP BY id"},
		{token.SEMI, ";"},
		{token.EOF, ""},
	}
	assert.Equal(t, expected, kinds(toks), "AS should open an opaque SQL body ending at ';'")
}

func TestLexer_FragmentSemicolonInString(t *testing.T) {
	toks, err := Tokenize(`CREATE TABLE t AS SELECT ';' AS c FROM raw;`)
	require.NoError(t, err, "unexpected error")

	require.Equal(t, token.FRAGMENT, toks[4].Type)
	assert.Equal(t, `SELECT ';' AS c FROM raw`, toks[4].Literal, "quoted ';' must not terminate the body")
	assert.Equal(t, token.SEMI, toks[5].Type)
}

func TestLexer_FragmentAfterExport(t *testing.T) {
	toks, err := Tokenize("EXPORT SELECT total FROM daily TO out TYPE csv;")
	require.NoError(t, err, "unexpected error")

	expected := []kind{
		{token.EXPORT, "EXPORT"},
		{token.FRAGMENT, "SELECT total FROM daily"},
		{token.TO, "TO"},
		{token.IDENT, "out"},
		{token.TYPE, "TYPE"},
		{token.IDENT, "csv"},
		{token.SEMI, ";"},
		{token.EOF, ""},
	}
	assert.Equal(t, expected, kinds(toks), "EXPORT body should end at the standalone TO")
}

func TestLexer_ExportTerminator(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fragment string
	}{
		{
			name:     "TO inside identifier",
			input:    "EXPORT SELECT total FROM t TO dest TYPE csv;",
			fragment: "SELECT total FROM t",
		},
		{
			name:     "INTO is not a terminator",
			input:    "EXPORT SELECT * INTO tmp FROM t TO dest TYPE csv;",
			fragment: "SELECT * INTO tmp FROM t",
		},
		{
			name:     "TO inside a string",
			input:    "EXPORT SELECT 'go TO jail' FROM t TO dest TYPE csv;",
			fragment: "SELECT 'go TO jail' FROM t",
		},
		{
			name:     "TO inside parentheses",
			input:    "EXPORT SELECT cast(x to_char) FROM t TO dest TYPE csv;",
			fragment: "SELECT cast(x to_char) FROM t",
		},
		{
			name:     "lower-case to",
			input:    "export select 1 to dest type csv;",
			fragment: "select 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize(tt.input)
			require.NoError(t, err, "unexpected error")
			require.Equal(t, token.FRAGMENT, toks[1].Type, "second token should be the SQL body")
			assert.Equal(t, tt.fragment, toks[1].Literal, "fragment capture mismatch")
			assert.Equal(t, token.TO, toks[2].Type, "TO keyword should follow the body")
		})
	}
}

func TestLexer_StringLiterals(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		literal string
	}{
		{"single quoted", `'hello'`, "hello"},
		{"double quoted", `"hello"`, "hello"},
		{"doubled quote escape", `'it''s'`, "it's"},
		{"doubled double quote", `"a ""b"""`, `a "b"`},
		{"empty", `''`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize(tt.input)
			require.NoError(t, err, "unexpected error")
			require.Equal(t, token.STRING, toks[0].Type)
			assert.Equal(t, tt.literal, toks[0].Literal, "statement-mode strings carry unquoted content")
		})
	}
}

func TestLexer_Numbers(t *testing.T) {
	toks, err := Tokenize("42 3.14 1e10 2.5E-3")
	require.NoError(t, err, "unexpected error")

	expected := []kind{
		{token.NUMBER, "42"},
		{token.NUMBER, "3.14"},
		{token.NUMBER, "1e10"},
		{token.NUMBER, "2.5E-3"},
		{token.EOF, ""},
	}
	assert.Equal(t, expected, kinds(toks), "number forms mismatch")
}

func TestLexer_Operators(t *testing.T) {
	toks, err := Tokenize("= != <> < <= > >= . , ( ) ; + - * / % ||")
	require.NoError(t, err, "unexpected error")

	expected := []kind{
		{token.EQ, "="},
		{token.NE, "!="},
		{token.NE, "<>"},
		{token.LT, "<"},
		{token.LE, "<="},
		{token.GT, ">"},
		{token.GE, ">="},
		{token.DOT, "."},
		{token.COMMA, ","},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.SEMI, ";"},
		{token.PLUS, "+"},
		{token.MINUS, "-"},
		{token.STAR, "*"},
		{token.SLASH, "/"},
		{token.PERCENT, "%"},
		{token.DPIPE, "||"},
		{token.EOF, ""},
	}
	assert.Equal(t, expected, kinds(toks), "operator stream mismatch")
}

func TestLexer_VariableToken(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		literal string
	}{
		{"bare name", "${env}", "${env}"},
		{"with default", "${limit|100}", "${limit|100}"},
		{"quoted default keeps closing brace", "${path|'a}b'}", "${path|'a}b'}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize(tt.input)
			require.NoError(t, err, "unexpected error")
			require.Equal(t, token.VARIABLE, toks[0].Type)
			assert.Equal(t, tt.literal, toks[0].Literal, "variable literal keeps its delimiters")
		})
	}
}

func TestLexer_BlockToken(t *testing.T) {
	toks, err := Tokenize(`{"a": {"b": [1, 2]}, "brace": "}"}`)
	require.NoError(t, err, "unexpected error")

	require.Equal(t, token.BLOCK, toks[0].Type)
	assert.Equal(t, `{"a": {"b": [1, 2]}, "brace": "}"}`, toks[0].Literal,
		"block capture must balance nesting and skip quoted braces")
}

func TestLexer_Comments(t *testing.T) {
	toks, err := Tokenize("LOAD t -- trailing note\nFROM /* inline */ s;")
	require.NoError(t, err, "unexpected error")

	expected := []kind{
		{token.LOAD, "LOAD"},
		{token.IDENT, "t"},
		{token.FROM, "FROM"},
		{token.IDENT, "s"},
		{token.SEMI, ";"},
		{token.EOF, ""},
	}
	assert.Equal(t, expected, kinds(toks), "comments should be skipped")
}

func TestLexer_Positions(t *testing.T) {
	toks, err := Tokenize("LOAD t\nFROM s;")
	require.NoError(t, err, "unexpected error")

	load := toks[0]
	assert.Equal(t, token.Position{Line: 1, Column: 1, Offset: 0}, load.Pos)
	assert.Equal(t, token.Position{Line: 1, Column: 5, Offset: 4}, load.End, "End is one past the last byte")

	from := toks[2]
	assert.Equal(t, token.Position{Line: 2, Column: 1, Offset: 7}, from.Pos, "line should advance after newline")
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
		line    int
		column  int
	}{
		{"unterminated string", "SOURCE s TYPE t; 'oops", ErrUnterminatedString, 1, 18},
		{"unterminated block", `{"a": 1`, ErrUnterminatedBlock, 1, 1},
		{"unterminated variable", "${env", ErrUnterminatedVariable, 1, 1},
		{"unterminated comment", "LOAD t /* oops", ErrUnterminatedComment, 1, 8},
		{"stray ampersand", "LOAD & t;", `invalid character "&"`, 1, 6},
		{"lone bang", "IF a ! b THEN ENDIF", `invalid character "!"`, 1, 6},
		{"lone pipe", "IF a | b THEN ENDIF", `invalid character "|"`, 1, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			require.Error(t, err, "expected a lex error")

			lexErr, ok := err.(*LexError)
			require.True(t, ok, "expected *LexError, got %T", err)
			assert.Equal(t, tt.message, lexErr.Message)
			assert.Equal(t, tt.line, lexErr.Pos.Line, "error line")
			assert.Equal(t, tt.column, lexErr.Pos.Column, "error column")
		})
	}
}

func TestLexer_FirstErrorSticks(t *testing.T) {
	l := NewLexer("LOAD & | t")
	for i := 0; i < 10; i++ {
		l.NextToken()
	}
	require.Error(t, l.Err())
	assert.Contains(t, l.Err().Error(), `invalid character "&"`, "first error should win")
}

func TestTokenizeFragment_NoKeywords(t *testing.T) {
	toks, err := TokenizeFragment("select count(*) from raw", token.Position{Line: 1, Column: 1})
	require.NoError(t, err, "unexpected error")

	expected := []kind{
		{token.IDENT, "select"},
		{token.IDENT, "count"},
		{token.LPAREN, "("},
		{token.STAR, "*"},
		{token.RPAREN, ")"},
		{token.IDENT, "from"},
		{token.IDENT, "raw"},
	}
	assert.Equal(t, expected, kinds(toks), "fragment mode never keywordizes and appends no EOF")
}

func TestTokenizeFragment_SymbolsAndStrings(t *testing.T) {
	toks, err := TokenizeFragment(`cast(x::int), 'it''s', "Col"`, token.Position{Line: 1, Column: 1})
	require.NoError(t, err, "unexpected error")

	expected := []kind{
		{token.IDENT, "cast"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.SYMBOL, "::"},
		{token.IDENT, "int"},
		{token.RPAREN, ")"},
		{token.COMMA, ","},
		{token.STRING, "'it''s'"},
		{token.COMMA, ","},
		{token.STRING, `"Col"`},
	}
	assert.Equal(t, expected, kinds(toks), "fragment strings keep their quotes")
}

func TestTokenizeFragment_BasePosition(t *testing.T) {
	base := token.Position{Line: 4, Column: 20, Offset: 77}
	toks, err := TokenizeFragment("a.b", base)
	require.NoError(t, err, "unexpected error")

	require.Len(t, toks, 3)
	assert.Equal(t, token.Position{Line: 4, Column: 20, Offset: 77}, toks[0].Pos)
	assert.Equal(t, token.Position{Line: 4, Column: 22, Offset: 79}, toks[2].Pos, "positions are relative to base")
}

func TestTokenizeFragment_DotVersusDecimal(t *testing.T) {
	toks, err := TokenizeFragment("t1.col + 1.5", token.Position{Line: 1, Column: 1})
	require.NoError(t, err, "unexpected error")

	expected := []kind{
		{token.IDENT, "t1"},
		{token.DOT, "."},
		{token.IDENT, "col"},
		{token.PLUS, "+"},
		{token.NUMBER, "1.5"},
	}
	assert.Equal(t, expected, kinds(toks), "a dot after an identifier qualifies, after digits it may continue a number")
}
