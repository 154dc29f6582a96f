package cond

import (
	"strconv"

	"github.com/leapstack-labs/leapflow/pkg/token"
)

// Parse builds a condition from the statement tokens between IF (or
// ELSEIF) and THEN. Precedence from loosest to tightest: OR, AND, NOT,
// comparison; parentheses group.
func Parse(toks []token.Token) (Expr, error) {
	if len(toks) == 0 {
		return nil, &EvalError{Message: ErrEmptyCondition}
	}
	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.toks) {
		tok := p.toks[p.pos]
		return nil, NewEvalErrorf(tok.Span(), ErrTrailingTokens, describe(tok))
	}
	return expr, nil
}

type parser struct {
	toks []token.Token
	pos  int
}

// cur returns the current token, or a synthetic EOF at the end of the
// last token once the slice is exhausted.
func (p *parser) cur() token.Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	last := p.toks[len(p.toks)-1]
	return token.Token{Type: token.EOF, Pos: last.End, End: last.End}
}

func (p *parser) next() token.Token {
	tok := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return tok
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == token.OR {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{
			NodeInfo: NodeInfo{Span: token.Span{Start: left.GetSpan().Start, End: right.GetSpan().End}},
			Left:     left,
			Right:    right,
		}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == token.AND {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &And{
			NodeInfo: NodeInfo{Span: token.Span{Start: left.GetSpan().Start, End: right.GetSpan().End}},
			Left:     left,
			Right:    right,
		}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.cur().Type == token.NOT {
		notTok := p.next()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Not{
			NodeInfo: NodeInfo{Span: token.Span{Start: notTok.Pos, End: inner.GetSpan().End}},
			Expr:     inner,
		}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	if p.cur().Type == token.LPAREN {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur().Type != token.RPAREN {
			return nil, NewEvalErrorf(p.cur().Span(), ErrExpectedRParen, describe(p.cur()))
		}
		p.next()
		return inner, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if !token.IsComparison(p.cur().Type) {
		// Bare operand: a boolean atom.
		return &Truth{NodeInfo: NodeInfo{Span: left.Span}, Operand: left}, nil
	}
	op := p.next()
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &Comparison{
		NodeInfo: NodeInfo{Span: token.Span{Start: left.Span.Start, End: right.Span.End}},
		Left:     left,
		Op:       op.Type,
		Right:    right,
	}, nil
}

func (p *parser) parseOperand() (Operand, error) {
	tok := p.cur()
	switch tok.Type {
	case token.STRING, token.NUMBER, token.IDENT, token.VARIABLE:
		p.next()
		return Operand{Text: tok.Literal, Span: tok.Span()}, nil
	case token.TRUE:
		p.next()
		return Operand{Text: "true", Span: tok.Span()}, nil
	case token.FALSE:
		p.next()
		return Operand{Text: "false", Span: tok.Span()}, nil
	case token.NULL:
		p.next()
		return Operand{Text: "null", Span: tok.Span()}, nil
	case token.MINUS:
		minus := p.next()
		num := p.cur()
		if num.Type != token.NUMBER {
			return Operand{}, NewEvalErrorf(num.Span(), ErrExpectedNumber, describe(num))
		}
		p.next()
		return Operand{Text: "-" + num.Literal, Span: token.Span{Start: minus.Pos, End: num.End}}, nil
	}
	// Non-structural keywords double as bare words, so `env = prod`
	// works even when prod happens to be a keyword.
	if token.IsKeyword(tok.Type) && tok.Type != token.AND && tok.Type != token.OR && tok.Type != token.NOT {
		p.next()
		return Operand{Text: tok.Literal, Span: tok.Span()}, nil
	}
	return Operand{}, NewEvalErrorf(tok.Span(), ErrExpectedOperand, describe(tok))
}

func describe(tok token.Token) string {
	switch {
	case tok.Type == token.EOF:
		return "end of condition"
	case tok.Literal != "":
		return strconv.Quote(tok.Literal)
	default:
		return tok.Type.String()
	}
}
