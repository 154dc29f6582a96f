// Package subst resolves ${name} and ${name|default} variable
// expressions inside text templates and params values. Formatting of a
// substituted value depends on the syntactic context of the template:
// plain text, SQL, or a structured literal. All quoting rules live here
// so no caller re-implements them.
package subst

import (
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapflow/pkg/token"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

// Context selects the quoting rules applied to a substituted value.
type Context int

const (
	// ContextPlain stringifies values verbatim: no quoting, null
	// renders as "null". Used for conditional operands and
	// destinations.
	ContextPlain Context = iota

	// ContextSQL renders values for splicing into SQL text: strings
	// single-quoted with embedded quotes doubled, null as NULL,
	// booleans as TRUE/FALSE, numbers unquoted.
	ContextSQL

	// ContextLiteral renders values for splicing into structured
	// (JSON-like) text: strings double-quoted with standard escaping,
	// null as null.
	ContextLiteral
)

func (c Context) String() string {
	switch c {
	case ContextPlain:
		return "plain"
	case ContextSQL:
		return "sql"
	case ContextLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Vars is the variable mapping supplied by the caller. Values use the
// closed params value types.
type Vars map[string]value.Value

// Config holds tuning for an Engine.
type Config struct {
	// CacheSize bounds the number of cached resolutions. Zero selects
	// the default (256); negative disables caching.
	CacheSize int

	// MaxTemplateSize is the largest template, in bytes, that is
	// cached. Oversized templates are resolved but never inserted.
	// Zero selects the default (16 KiB).
	MaxTemplateSize int
}

const (
	defaultCacheSize       = 256
	defaultMaxTemplateSize = 16 * 1024

	// maxExpandDepth bounds variable-to-variable chasing through
	// structured values, so a mapping whose values reference each
	// other cannot loop the resolver.
	maxExpandDepth = 8
)

// Engine resolves variable expressions. An Engine owns its cache, so
// independent engines never interfere; one Engine is safe for
// concurrent use.
type Engine struct {
	mu    sync.Mutex
	cache *lruCache

	maxTemplateSize int
}

// New creates an Engine with the given configuration.
func New(cfg Config) *Engine {
	size := cfg.CacheSize
	if size == 0 {
		size = defaultCacheSize
	}
	maxTemplate := cfg.MaxTemplateSize
	if maxTemplate == 0 {
		maxTemplate = defaultMaxTemplateSize
	}
	e := &Engine{maxTemplateSize: maxTemplate}
	if size > 0 {
		e.cache = newLRUCache(size)
	}
	return e
}

// Resolve substitutes every variable expression in template. A template
// without the ${ marker is returned unchanged, which also makes
// resolution idempotent: resolving an already-resolved template is a
// no-op. Substituted text is not re-scanned; only structured values
// have their string leaves resolved before splicing.
func (e *Engine) Resolve(template string, vars Vars, ctx Context) (string, error) {
	if !strings.Contains(template, "${") {
		return template, nil
	}

	cacheable := e.cache != nil && len(template) <= e.maxTemplateSize
	var key string
	if cacheable {
		key = cacheKey(template, vars, ctx)
		e.mu.Lock()
		cached, ok := e.cache.get(key)
		e.mu.Unlock()
		if ok {
			return cached, nil
		}
	}

	resolved, err := e.resolveTemplate(template, token.Position{Line: 1, Column: 1}, vars, ctx, 0)
	if err != nil {
		return "", err
	}

	if cacheable {
		e.mu.Lock()
		e.cache.add(key, resolved)
		e.mu.Unlock()
	}
	return resolved, nil
}

// ResolveAt is Resolve with positions reported relative to base, for
// templates embedded in a larger source file. ResolveAt never consults
// the cache: span fidelity matters more than speed on the error path.
func (e *Engine) ResolveAt(template string, base token.Position, vars Vars, ctx Context) (string, error) {
	if !strings.Contains(template, "${") {
		return template, nil
	}
	return e.resolveTemplate(template, base, vars, ctx, 0)
}

// ResolveValue substitutes variable expressions inside a params value
// tree. A string leaf consisting of exactly one expression is replaced
// by the variable's typed value, so `"port": "${port}"` keeps numbers
// numeric. Any other string leaf is spliced textually with plain
// formatting. Object and array values are rebuilt; other kinds pass
// through unchanged.
func (e *Engine) ResolveValue(v value.Value, vars Vars) (value.Value, error) {
	return e.resolveValue(v, vars, 0)
}

// Clear drops every cached resolution.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache != nil {
		e.cache.clear()
	}
}

// CacheLen returns the number of cached resolutions.
func (e *Engine) CacheLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache == nil {
		return 0
	}
	return e.cache.len()
}

func (e *Engine) resolveTemplate(template string, base token.Position, vars Vars, ctx Context, depth int) (string, error) {
	exprs, err := Scan(template, base)
	if err != nil {
		return "", err
	}
	if len(exprs) == 0 {
		return template, nil
	}
	return e.resolveScanned(template, base.Offset, exprs, vars, ctx, depth)
}

// resolveScanned splices formatted values over the scanned expression
// spans. Offsets in exprs are relative to the base passed to Scan.
func (e *Engine) resolveScanned(template string, base int, exprs []Expr, vars Vars, ctx Context, depth int) (string, error) {
	var b strings.Builder
	b.Grow(len(template))
	last := 0
	for _, expr := range exprs {
		start := expr.Span.Start.Offset - base
		end := expr.Span.End.Offset - base
		b.WriteString(template[last:start])
		v, err := lookup(expr, vars)
		if err != nil {
			return "", err
		}
		v, err = e.expand(v, expr, vars, depth)
		if err != nil {
			return "", err
		}
		b.WriteString(Format(v, ctx))
		last = end
	}
	b.WriteString(template[last:])
	return b.String(), nil
}

// expand walks a structured value so its own string leaves resolve
// before the value is spliced. Scalar values pass through: substituted
// text is never re-scanned.
func (e *Engine) expand(v value.Value, expr Expr, vars Vars, depth int) (value.Value, error) {
	switch v.Kind() {
	case value.KindObject, value.KindArray:
	default:
		return v, nil
	}
	if depth >= maxExpandDepth {
		return nil, &ScanError{Pos: expr.Span.Start, Message: "variable expansion too deep"}
	}
	return e.resolveValue(v, vars, depth+1)
}

func (e *Engine) resolveValue(v value.Value, vars Vars, depth int) (value.Value, error) {
	switch val := v.(type) {
	case value.String:
		return e.resolveStringLeaf(string(val), vars, depth)
	case *value.Object:
		out := &value.Object{Fields: make([]value.Field, 0, len(val.Fields))}
		for _, f := range val.Fields {
			rv, err := e.resolveValue(f.Value, vars, depth)
			if err != nil {
				return nil, err
			}
			out.Fields = append(out.Fields, value.Field{Key: f.Key, Value: rv})
		}
		return out, nil
	case value.Array:
		out := make(value.Array, len(val))
		for i, elem := range val {
			rv, err := e.resolveValue(elem, vars, depth)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}

func (e *Engine) resolveStringLeaf(s string, vars Vars, depth int) (value.Value, error) {
	if !strings.Contains(s, "${") {
		return value.String(s), nil
	}
	exprs, err := Scan(s, token.Position{Line: 1, Column: 1})
	if err != nil {
		return nil, err
	}
	// Whole-leaf expression: substitute the typed value.
	if len(exprs) == 1 && exprs[0].Span.Start.Offset == 0 && exprs[0].Span.End.Offset == len(s) {
		v, err := lookup(exprs[0], vars)
		if err != nil {
			return nil, err
		}
		return e.expand(v, exprs[0], vars, depth)
	}
	resolved, err := e.resolveScanned(s, 0, exprs, vars, ContextPlain, depth)
	if err != nil {
		return nil, err
	}
	return value.String(resolved), nil
}

// lookup returns the binding for expr, falling back to its typed
// default, or failing with UnresolvedVariableError.
func lookup(expr Expr, vars Vars) (value.Value, error) {
	if v, ok := vars[expr.Name]; ok {
		return v, nil
	}
	if expr.HasDefault {
		return expr.DefaultValue(), nil
	}
	return nil, &UnresolvedVariableError{Name: expr.Name, Span: expr.Span}
}

// Format renders a value for splicing into a template under the given
// context.
func Format(v value.Value, ctx Context) string {
	switch ctx {
	case ContextSQL:
		return formatSQL(v)
	case ContextLiteral:
		return formatLiteral(v)
	default:
		return formatPlain(v)
	}
}

func formatPlain(v value.Value) string {
	switch val := v.(type) {
	case value.String:
		return string(val)
	case value.Number:
		return string(val)
	case value.Bool:
		if val {
			return "true"
		}
		return "false"
	case value.Null:
		return "null"
	default:
		return value.JSON(v)
	}
}

func formatSQL(v value.Value) string {
	switch val := v.(type) {
	case value.String:
		return QuoteSQL(string(val))
	case value.Number:
		return string(val)
	case value.Bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case value.Null:
		return "NULL"
	default:
		return QuoteSQL(value.JSON(v))
	}
}

func formatLiteral(v value.Value) string {
	switch val := v.(type) {
	case value.String:
		return value.QuoteJSON(string(val))
	case value.Number:
		return string(val)
	case value.Bool:
		if val {
			return "true"
		}
		return "false"
	case value.Null:
		return "null"
	default:
		return value.JSON(v)
	}
}

// QuoteSQL renders s as a single-quoted SQL string literal with
// embedded quotes doubled.
func QuoteSQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// cacheKey builds a deterministic key over the template, context, and a
// sorted snapshot of the variable mapping. Any mutation of the mapping
// changes the key, so stale entries are simply never hit again.
func cacheKey(template string, vars Vars, ctx Context) string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(ctx.String())
	b.WriteByte(0)
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(value.JSON(vars[name]))
		b.WriteByte(0)
	}
	b.WriteByte(0)
	b.WriteString(template)
	return b.String()
}
