// Package parser turns pipeline source text into an AST.
//
// # Usage
//
//	file, err := parser.Parse(src)
//	if err != nil {
//	    // handle error
//	}
//
// # Grammar Overview
//
// The parser implements a recursive descent parser over the statement
// grammar:
//
//	file        → statement* EOF
//	statement   → source | load | create | export | conditional
//	source      → SOURCE name TYPE type [PARAMS {...}] ';'
//	load        → LOAD table FROM source-name [MODE mode] ';'
//	create      → CREATE TABLE name AS sql-fragment ';'
//	export      → EXPORT sql-fragment TO destination TYPE type [OPTIONS {...}] ';'
//	conditional → IF condition THEN statement*
//	              (ELSEIF condition THEN statement*)*
//	              [ELSE statement*] ENDIF [';']
//
// SQL fragments are captured verbatim by the lexer and re-scanned here
// (see Fragment); conditions are handed to the cond package. Errors are
// fatal: a grammar violation aborts the parse and no partial AST is
// ever returned.
package parser

import (
	"strings"

	"github.com/leapstack-labs/leapflow/pkg/cond"
	"github.com/leapstack-labs/leapflow/pkg/subst"
	"github.com/leapstack-labs/leapflow/pkg/token"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

// maxConditionalDepth bounds IF nesting so malicious input fails with a
// ParseError instead of exhausting the stack.
const maxConditionalDepth = 32

// Parser parses pipeline source into an AST.
type Parser struct {
	lexer *Lexer
	token token.Token // current token
	peek  token.Token // lookahead token
	depth int         // current conditional nesting depth
}

// NewParser creates a new parser for the given source text.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Read two tokens to initialize current and peek.
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses the source text and returns the file's statements.
func Parse(input string) (*File, error) {
	return NewParser(input).ParseFile()
}

// ParseFile parses the whole input.
func (p *Parser) ParseFile() (*File, error) {
	file := &File{}
	for p.token.Type != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		file.Statements = append(file.Statements, stmt)
	}
	if err := p.lexer.Err(); err != nil {
		return nil, err
	}
	return file, nil
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

// errExpected builds the error for an unexpected current token. A
// pending lexer error wins, so an unterminated string surfaces as a
// LexError rather than as a confusing end-of-input ParseError.
func (p *Parser) errExpected(expected string) error {
	if err := p.lexer.Err(); err != nil {
		return err
	}
	return NewParseError(p.token.Span(), expected, describeToken(p.token))
}

// expect consumes and returns the current token if it matches,
// otherwise fails.
func (p *Parser) expect(t token.TokenType, expected string) (token.Token, error) {
	if p.token.Type != t {
		return token.Token{}, p.errExpected(expected)
	}
	tok := p.token
	p.nextToken()
	return tok, nil
}

// expectIdent consumes an identifier and returns its text.
func (p *Parser) expectIdent(expected string) (token.Token, error) {
	return p.expect(token.IDENT, expected)
}

func describeToken(tok token.Token) string {
	switch {
	case tok.Type == token.EOF:
		return "end of input"
	case tok.Literal != "":
		return "\"" + tok.Literal + "\""
	default:
		return tok.Type.String()
	}
}

// ---------- Statements ----------

func (p *Parser) parseStatement() (Statement, error) {
	switch p.token.Type {
	case token.SOURCE:
		return p.parseSourceDecl()
	case token.LOAD:
		return p.parseLoadStmt()
	case token.CREATE:
		return p.parseCreateTable()
	case token.EXPORT:
		return p.parseExportStmt()
	case token.IF:
		return p.parseConditional()
	default:
		return nil, p.errExpected("SOURCE, LOAD, CREATE, EXPORT or IF")
	}
}

// parseSourceDecl parses: SOURCE name TYPE type [PARAMS {...}] ';'
func (p *Parser) parseSourceDecl() (Statement, error) {
	start := p.token.Pos
	p.nextToken() // SOURCE

	nameTok, err := p.expectIdent("source name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.TYPE, "TYPE"); err != nil {
		return nil, err
	}
	typeTok, err := p.expectIdent("connector type")
	if err != nil {
		return nil, err
	}

	decl := &SourceDecl{
		Name:          nameTok.Literal,
		ConnectorType: typeTok.Literal,
	}
	if p.token.Type == token.PARAMS {
		p.nextToken()
		params, span, err := p.parseBlock("params block")
		if err != nil {
			return nil, err
		}
		decl.Params = params
		decl.ParamsSpan = span
	}

	semi, err := p.expect(token.SEMI, "';'")
	if err != nil {
		return nil, err
	}
	decl.Span = token.Span{Start: start, End: semi.End}
	return decl, nil
}

// parseLoadStmt parses: LOAD table FROM source-name [MODE mode] ';'
func (p *Parser) parseLoadStmt() (Statement, error) {
	start := p.token.Pos
	p.nextToken() // LOAD

	tableTok, err := p.expectIdent("target table name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.FROM, "FROM"); err != nil {
		return nil, err
	}
	sourceTok, err := p.expectIdent("source name")
	if err != nil {
		return nil, err
	}

	stmt := &LoadStmt{
		TargetTable: tableTok.Literal,
		SourceName:  sourceTok.Literal,
	}
	if p.token.Type == token.MODE {
		p.nextToken()
		modeTok, err := p.expectIdent("load mode")
		if err != nil {
			return nil, err
		}
		stmt.Mode = modeTok.Literal
	}

	semi, err := p.expect(token.SEMI, "';'")
	if err != nil {
		return nil, err
	}
	stmt.Span = token.Span{Start: start, End: semi.End}
	return stmt, nil
}

// parseCreateTable parses: CREATE TABLE name AS sql-fragment ';'
func (p *Parser) parseCreateTable() (Statement, error) {
	start := p.token.Pos
	p.nextToken() // CREATE

	if _, err := p.expect(token.TABLE, "TABLE"); err != nil {
		return nil, err
	}
	nameTok, err := p.expectIdent("table name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.AS, "AS"); err != nil {
		return nil, err
	}

	fragTok, err := p.expect(token.FRAGMENT, "SQL body")
	if err != nil {
		return nil, err
	}
	body, err := newFragment(fragTok)
	if err != nil {
		return nil, err
	}

	semi, err := p.expect(token.SEMI, "';'")
	if err != nil {
		return nil, err
	}
	return &CreateTableStmt{
		NodeInfo: NodeInfo{Span: token.Span{Start: start, End: semi.End}},
		Name:     nameTok.Literal,
		Body:     body,
	}, nil
}

// parseExportStmt parses: EXPORT sql-fragment TO destination TYPE type [OPTIONS {...}] ';'
func (p *Parser) parseExportStmt() (Statement, error) {
	start := p.token.Pos
	p.nextToken() // EXPORT

	fragTok, err := p.expect(token.FRAGMENT, "SQL body")
	if err != nil {
		return nil, err
	}
	body, err := newFragment(fragTok)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.TO, "TO"); err != nil {
		return nil, err
	}
	dest, destSpan, err := p.parseDestination()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.TYPE, "TYPE"); err != nil {
		return nil, err
	}
	typeTok, err := p.expectIdent("connector type")
	if err != nil {
		return nil, err
	}

	stmt := &ExportStmt{
		Body:          body,
		Destination:   dest,
		DestSpan:      destSpan,
		ConnectorType: typeTok.Literal,
	}
	if p.token.Type == token.OPTIONS {
		p.nextToken()
		options, span, err := p.parseBlock("options block")
		if err != nil {
			return nil, err
		}
		stmt.Options = options
		stmt.OptionsSpan = span
	}

	semi, err := p.expect(token.SEMI, "';'")
	if err != nil {
		return nil, err
	}
	stmt.Span = token.Span{Start: start, End: semi.End}
	return stmt, nil
}

// parseDestination parses an export destination: a quoted path, a
// variable expression, or a dotted identifier chain whose segments may
// themselves be variables.
func (p *Parser) parseDestination() (string, token.Span, error) {
	startTok := p.token

	if p.token.Type == token.STRING {
		p.nextToken()
		dest, err := p.validTemplate(startTok.Literal, startTok)
		return dest, startTok.Span(), err
	}

	var parts []string
	end := startTok.End
	for {
		switch p.token.Type {
		case token.IDENT, token.VARIABLE:
			parts = append(parts, p.token.Literal)
			end = p.token.End
			p.nextToken()
		default:
			return "", token.Span{}, p.errExpected("destination")
		}
		if p.token.Type != token.DOT {
			break
		}
		p.nextToken()
	}
	span := token.Span{Start: startTok.Pos, End: end}
	dest, err := p.validTemplate(strings.Join(parts, "."), startTok)
	return dest, span, err
}

// validTemplate checks that any ${...} syntax in s is well formed and
// returns s unchanged.
func (p *Parser) validTemplate(s string, at token.Token) (string, error) {
	if _, err := subst.Scan(s, at.Pos); err != nil {
		if scanErr, ok := err.(*subst.ScanError); ok {
			return "", NewParseErrorf(token.Span{Start: scanErr.Pos, End: scanErr.Pos}, "%s", scanErr.Message)
		}
		return "", err
	}
	return s, nil
}

// parseBlock parses a {...} token into a params value tree and
// validates every string leaf's variable syntax, so malformed blocks
// fail here instead of at plan time.
func (p *Parser) parseBlock(expected string) (*value.Object, token.Span, error) {
	blockTok, err := p.expect(token.BLOCK, expected)
	if err != nil {
		return nil, token.Span{}, err
	}
	obj, err := value.Parse(blockTok.Literal, blockTok.Pos)
	if err != nil {
		if synErr, ok := err.(*value.SyntaxError); ok {
			span := token.Span{Start: synErr.Pos, End: synErr.Pos}
			return nil, token.Span{}, NewParseErrorf(span, "%s", synErr.Message)
		}
		return nil, token.Span{}, err
	}
	if err := p.validateLeaves(obj, blockTok.Span()); err != nil {
		return nil, token.Span{}, err
	}
	return obj, blockTok.Span(), nil
}

// validateLeaves scans every string leaf of a params tree for variable
// syntax errors.
func (p *Parser) validateLeaves(v value.Value, blockSpan token.Span) error {
	switch val := v.(type) {
	case value.String:
		if _, err := subst.Scan(string(val), blockSpan.Start); err != nil {
			if scanErr, ok := err.(*subst.ScanError); ok {
				return NewParseErrorf(blockSpan, "%s", scanErr.Message)
			}
			return err
		}
	case *value.Object:
		for _, f := range val.Fields {
			if err := p.validateLeaves(f.Value, blockSpan); err != nil {
				return err
			}
		}
	case value.Array:
		for _, elem := range val {
			if err := p.validateLeaves(elem, blockSpan); err != nil {
				return err
			}
		}
	}
	return nil
}

// ---------- Conditionals ----------

// parseConditional parses an IF / ELSEIF / ELSE / ENDIF block.
func (p *Parser) parseConditional() (Statement, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxConditionalDepth {
		return nil, NewParseErrorf(p.token.Span(), ErrNestingTooDeep, maxConditionalDepth)
	}

	start := p.token.Pos
	p.nextToken() // IF

	block := &ConditionalBlock{}
	branch, err := p.parseBranch(start)
	if err != nil {
		return nil, err
	}
	block.Branches = append(block.Branches, branch)

	for p.token.Type == token.ELSEIF {
		branchStart := p.token.Pos
		p.nextToken()
		branch, err := p.parseBranch(branchStart)
		if err != nil {
			return nil, err
		}
		block.Branches = append(block.Branches, branch)
	}

	if p.token.Type == token.ELSE {
		branchStart := p.token.Pos
		elseEnd := p.token.End
		p.nextToken()
		body, err := p.parseBranchBody()
		if err != nil {
			return nil, err
		}
		if len(body) > 0 {
			elseEnd = body[len(body)-1].GetSpan().End
		}
		block.Branches = append(block.Branches, Branch{
			Body: body,
			Span: token.Span{Start: branchStart, End: elseEnd},
		})
	}

	// Anything but ENDIF here is a structural mistake; name the two
	// common ones precisely.
	switch p.token.Type {
	case token.ELSEIF:
		return nil, NewParseErrorf(p.token.Span(), ErrElseNotLast)
	case token.ELSE:
		return nil, NewParseErrorf(p.token.Span(), ErrDuplicateElse)
	}
	endif, err := p.expect(token.ENDIF, "ENDIF")
	if err != nil {
		return nil, err
	}

	end := endif.End
	if p.token.Type == token.SEMI {
		end = p.token.End
		p.nextToken()
	}
	block.Span = token.Span{Start: start, End: end}
	return block, nil
}

// parseBranch parses one condition, its THEN, and the branch body.
func (p *Parser) parseBranch(branchStart token.Position) (Branch, error) {
	condition, err := p.parseCondition()
	if err != nil {
		return Branch{}, err
	}
	body, err := p.parseBranchBody()
	if err != nil {
		return Branch{}, err
	}
	end := condition.GetSpan().End
	if len(body) > 0 {
		end = body[len(body)-1].GetSpan().End
	}
	return Branch{
		Condition: condition,
		Body:      body,
		Span:      token.Span{Start: branchStart, End: end},
	}, nil
}

// parseCondition collects the tokens up to THEN and hands them to the
// cond package. A malformed condition surfaces as the cond package's
// EvalError, keeping condition diagnostics in one place.
func (p *Parser) parseCondition() (cond.Expr, error) {
	var toks []token.Token
	for p.token.Type != token.THEN && p.token.Type != token.EOF {
		toks = append(toks, p.token)
		p.nextToken()
	}
	if p.token.Type != token.THEN {
		return nil, p.errExpected("THEN")
	}
	if len(toks) == 0 {
		return nil, cond.NewEvalError(p.token.Span(), cond.ErrEmptyCondition)
	}
	expr, err := cond.Parse(toks)
	if err != nil {
		return nil, err
	}
	p.nextToken() // THEN
	return expr, nil
}

// parseBranchBody parses statements until a branch delimiter.
func (p *Parser) parseBranchBody() ([]Statement, error) {
	var stmts []Statement
	for {
		switch p.token.Type {
		case token.ELSEIF, token.ELSE, token.ENDIF:
			return stmts, nil
		case token.EOF:
			return nil, p.errExpected("ELSEIF, ELSE or ENDIF")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
}
