package parser

import (
	"strings"

	"github.com/leapstack-labs/leapflow/pkg/subst"
	"github.com/leapstack-labs/leapflow/pkg/token"
)

// Fragment is an opaque SQL body captured verbatim from the source.
// Raw is byte-exact and is what execution ultimately receives; Tokens
// and Exprs are derived views for reference scanning, re-serialization
// and variable resolution.
type Fragment struct {
	Raw    string
	Pos    token.Position
	Tokens []token.Token // fragment-mode tokens, no EOF
	Exprs  []subst.Expr  // variable expressions inside Raw
}

// newFragment validates and indexes a captured FRAGMENT token. The body
// is re-scanned in fragment mode and its variable expressions are
// collected, so malformed SQL strings or ${...} syntax fail at parse
// time rather than at plan time.
func newFragment(tok token.Token) (*Fragment, error) {
	toks, err := TokenizeFragment(tok.Literal, tok.Pos)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, NewParseErrorf(tok.Span(), ErrEmptySQLBody)
	}
	exprs, err := subst.Scan(tok.Literal, tok.Pos)
	if err != nil {
		if scanErr, ok := err.(*subst.ScanError); ok {
			return nil, NewParseErrorf(token.Span{Start: scanErr.Pos, End: scanErr.Pos}, "%s", scanErr.Message)
		}
		return nil, err
	}
	return &Fragment{Raw: tok.Literal, Pos: tok.Pos, Tokens: toks, Exprs: exprs}, nil
}

// Render re-serializes the fragment from its tokens under the join
// policy: a DOT joins to both neighbors without space, an identifier
// joins to a following '(' without space, parentheses hug their content,
// a comma hugs the token before it, and comparison operators and raw
// symbols join tight. Every other pair is separated by exactly one
// space. The policy depends only on token kinds, never on the original
// whitespace, so rendering is deterministic.
func (f *Fragment) Render() string {
	var b strings.Builder
	b.Grow(len(f.Raw))
	for i, tok := range f.Tokens {
		if i > 0 && joinWithSpace(f.Tokens[i-1], tok) {
			b.WriteByte(' ')
		}
		b.WriteString(tok.Literal)
	}
	return b.String()
}

// joinWithSpace decides whether a space separates prev and cur.
func joinWithSpace(prev, cur token.Token) bool {
	switch {
	case prev.Type == token.DOT || cur.Type == token.DOT:
		return false
	case prev.Type == token.SYMBOL || cur.Type == token.SYMBOL:
		return false
	case token.IsComparison(prev.Type) || token.IsComparison(cur.Type):
		return false
	case cur.Type == token.COMMA || cur.Type == token.SEMI:
		return false
	case cur.Type == token.LPAREN && prev.Type == token.IDENT:
		return false
	case prev.Type == token.LPAREN:
		return false
	case cur.Type == token.RPAREN:
		return false
	default:
		return true
	}
}

// References returns the table-name candidates the fragment mentions:
// lower-cased identifiers that are neither a column selector after a
// dot nor a function name before a '('. Candidates that match no
// declared step are simply never turned into edges, so SQL keywords and
// column names in the result are harmless.
func (f *Fragment) References() []string {
	seen := make(map[string]bool)
	var refs []string
	for i, tok := range f.Tokens {
		if tok.Type != token.IDENT {
			continue
		}
		if i > 0 && f.Tokens[i-1].Type == token.DOT {
			continue
		}
		if i+1 < len(f.Tokens) && f.Tokens[i+1].Type == token.LPAREN {
			continue
		}
		name := strings.ToLower(tok.Literal)
		if !seen[name] {
			seen[name] = true
			refs = append(refs, name)
		}
	}
	return refs
}
