package subst

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapflow/pkg/token"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

// Expr is one ${name} or ${name|default} expression found in a template.
type Expr struct {
	Name       string
	Default    string // raw default text, original quoting preserved
	HasDefault bool
	Span       token.Span // covers ${...} including delimiters
}

// DefaultValue types the raw default text.
func (e Expr) DefaultValue() value.Value {
	return Literal(e.Default)
}

// Literal types a raw literal the way variable defaults are typed: a
// quoted literal is a string with the outer quotes stripped; an
// unquoted one is typed by shape (number, true/false, null), falling
// back to string.
func Literal(raw string) value.Value {
	if len(raw) >= 2 {
		first, last := raw[0], raw[len(raw)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			inner := raw[1 : len(raw)-1]
			q := string(first)
			return value.String(strings.ReplaceAll(inner, q+q, q))
		}
	}
	switch raw {
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	case "null":
		return value.Null{}
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return value.Number(raw)
	}
	return value.String(raw)
}

// Scan finds every variable expression in template. Positions are
// reported relative to base, which should be the position of the first
// template byte in the enclosing source. The scan is quote-aware inside
// an expression, so a '}' within a quoted default does not close it.
func Scan(template string, base token.Position) ([]Expr, error) {
	var exprs []Expr

	line := base.Line
	col := base.Column
	for i := 0; i < len(template); i++ {
		ch := template[i]
		if ch == '\n' {
			line++
			col = 1
			continue
		}
		if ch == '$' && i+1 < len(template) && template[i+1] == '{' {
			start := token.Position{Line: line, Column: col, Offset: base.Offset + i}
			expr, width, err := scanExpr(template[i:], start)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, expr)
			// Reposition past the expression (defaults may span lines).
			for j := i; j < i+width; j++ {
				if template[j] == '\n' {
					line++
					col = 0
				} else {
					col++
				}
			}
			i += width - 1
			continue
		}
		col++
	}

	return exprs, nil
}

// scanExpr parses one ${...} expression at the start of rest. Returns
// the expression and the byte width consumed.
func scanExpr(rest string, start token.Position) (Expr, int, error) {
	// rest begins with "${"
	i := 2
	nameStart := i
	for i < len(rest) && isNameByte(rest[i]) {
		i++
	}
	name := rest[nameStart:i]
	if name == "" {
		return Expr{}, 0, &ScanError{Pos: start, Message: "empty variable name"}
	}

	expr := Expr{Name: name}

	switch {
	case i < len(rest) && rest[i] == '}':
		i++
	case i < len(rest) && rest[i] == '|':
		i++
		defStart := i
		for i < len(rest) && rest[i] != '}' {
			if rest[i] == '\'' || rest[i] == '"' {
				w, ok := quotedWidth(rest[i:], rest[i])
				if !ok {
					return Expr{}, 0, &ScanError{Pos: start, Message: "unterminated quote in default"}
				}
				i += w
				continue
			}
			i++
		}
		if i >= len(rest) {
			return Expr{}, 0, &ScanError{Pos: start, Message: "missing '}'"}
		}
		expr.Default = rest[defStart:i]
		expr.HasDefault = true
		i++
	default:
		if i >= len(rest) {
			return Expr{}, 0, &ScanError{Pos: start, Message: "missing '}'"}
		}
		return Expr{}, 0, &ScanError{Pos: start, Message: "invalid character in variable name: " + strconv.Quote(string(rest[i]))}
	}

	end := token.Position{
		Line:   start.Line,
		Column: start.Column + i,
		Offset: start.Offset + i,
	}
	if nl := strings.Count(rest[:i], "\n"); nl > 0 {
		end.Line = start.Line + nl
		end.Column = i - strings.LastIndexByte(rest[:i], '\n')
	}
	expr.Span = token.Span{Start: start, End: end}
	return expr, i, nil
}

// quotedWidth returns the byte width of a quoted run starting at s[0],
// honoring doubled-quote escapes, and whether it was terminated.
func quotedWidth(s string, quote byte) (int, bool) {
	i := 1
	for i < len(s) {
		if s[i] == quote {
			if i+1 < len(s) && s[i+1] == quote {
				i += 2
				continue
			}
			return i + 1, true
		}
		i++
	}
	return i, false
}

func isNameByte(ch byte) bool {
	return ch == '_' ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}
