package plan

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/dag"
	"github.com/leapstack-labs/leapflow/pkg/cond"
	"github.com/leapstack-labs/leapflow/pkg/parser"
	"github.com/leapstack-labs/leapflow/pkg/subst"
	"github.com/leapstack-labs/leapflow/pkg/token"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

// Planner turns parsed pipeline files into execution plans. It is safe
// to reuse one Planner across files and variable bindings; the shared
// substitution engine caches resolved templates per binding.
type Planner struct {
	engine *subst.Engine
}

// NewPlanner creates a Planner. A nil engine gets a default one.
func NewPlanner(engine *subst.Engine) *Planner {
	if engine == nil {
		engine = subst.New(subst.Config{})
	}
	return &Planner{engine: engine}
}

// Compile parses and plans source text in one call.
func Compile(src string, vars subst.Vars) (*Plan, error) {
	file, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	return NewPlanner(nil).Plan(file, vars)
}

// Plan compiles a file into an execution plan under the given variable
// bindings. Conditionals are flattened first, then each statement
// becomes a resolved step, then dependency edges are built and checked
// for cycles, and finally the steps are ordered dependency-first with
// ties broken by declaration order.
func (p *Planner) Plan(file *parser.File, vars subst.Vars) (*Plan, error) {
	flat, err := p.flatten(file.Statements, vars)
	if err != nil {
		return nil, err
	}

	b := &builder{
		engine:    p.engine,
		vars:      vars,
		byID:      make(map[string]*Step),
		producers: make(map[string]*Step),
		sources:   make(map[string]*Step),
		refs:      make(map[string][]string),
	}
	for _, stmt := range flat {
		if err := b.addStatement(stmt); err != nil {
			return nil, err
		}
	}

	graph, err := b.buildGraph()
	if err != nil {
		return nil, err
	}
	if hasCycle, path := graph.HasCycle(); hasCycle {
		span := token.Span{}
		if first, ok := b.byID[path[0]]; ok {
			span = first.Span
		}
		return nil, NewPlanErrorf(CyclicDependency, span, "%s", strings.Join(path, " -> "))
	}

	ordered, err := graph.TopologicalSort()
	if err != nil {
		return nil, NewPlanErrorf(CyclicDependency, token.Span{}, "%s", err.Error())
	}

	result := &Plan{Steps: make([]Step, 0, len(ordered))}
	for _, node := range ordered {
		step := node.Data.(*Step)
		deps := append([]string(nil), graph.Parents(step.ID)...)
		sort.Strings(deps)
		step.DependsOn = deps
		result.Steps = append(result.Steps, *step)
	}
	return result, nil
}

// flatten resolves every conditional block into the body of its single
// selected branch. Branch conditions are evaluated in declaration
// order; the first true one wins, the ELSE branch catches the rest, and
// a block with no match and no ELSE contributes nothing. Nested blocks
// are resolved recursively before splicing.
func (p *Planner) flatten(stmts []parser.Statement, vars subst.Vars) ([]parser.Statement, error) {
	var out []parser.Statement
	for _, stmt := range stmts {
		block, ok := stmt.(*parser.ConditionalBlock)
		if !ok {
			out = append(out, stmt)
			continue
		}
		body, err := p.selectBranch(block, vars)
		if err != nil {
			return nil, err
		}
		inner, err := p.flatten(body, vars)
		if err != nil {
			return nil, err
		}
		out = append(out, inner...)
	}
	return out, nil
}

func (p *Planner) selectBranch(block *parser.ConditionalBlock, vars subst.Vars) ([]parser.Statement, error) {
	for _, branch := range block.Branches {
		if branch.Condition == nil {
			return branch.Body, nil
		}
		selected, err := cond.Evaluate(branch.Condition, p.engine, vars)
		if err != nil {
			return nil, err
		}
		if selected {
			return branch.Body, nil
		}
	}
	return nil, nil
}

// builder accumulates steps and the index maps needed for edge
// building: step by ID, produced table name to producing step, and
// declared source name to source step. Table and source matching is
// case-insensitive, like the SQL identifiers they come from.
type builder struct {
	engine    *subst.Engine
	vars      subst.Vars
	steps     []*Step
	byID      map[string]*Step
	producers map[string]*Step
	sources   map[string]*Step
	refs      map[string][]string // step ID -> table-name candidates in its SQL
}

func (b *builder) addStatement(stmt parser.Statement) error {
	switch s := stmt.(type) {
	case *parser.SourceDecl:
		return b.addSource(s)
	case *parser.LoadStmt:
		return b.addLoad(s)
	case *parser.CreateTableStmt:
		return b.addTransform(s)
	case *parser.ExportStmt:
		return b.addExport(s)
	default:
		// Conditionals are gone after flattening.
		return nil
	}
}

func (b *builder) addSource(s *parser.SourceDecl) error {
	step := &Step{
		ID:   "source:" + strings.ToLower(s.Name),
		Type: StepSource,
		Name: s.Name,
		Span: s.Span,
	}
	if err := b.register(step); err != nil {
		return err
	}

	payload := &SourcePayload{ConnectorType: s.ConnectorType}
	if s.Params != nil {
		resolved, err := b.engine.ResolveValue(s.Params, b.vars)
		if err != nil {
			return respan(err, s.ParamsSpan)
		}
		payload.Params = resolved.(*value.Object)
	}
	step.Payload = payload

	b.sources[strings.ToLower(s.Name)] = step
	return nil
}

func (b *builder) addLoad(s *parser.LoadStmt) error {
	step := &Step{
		ID:   "load:" + strings.ToLower(s.TargetTable),
		Type: StepLoad,
		Name: s.TargetTable,
		Span: s.Span,
	}
	if err := b.register(step); err != nil {
		return err
	}
	if err := b.registerProducer(s.TargetTable, step); err != nil {
		return err
	}
	step.Payload = &LoadPayload{
		TargetTable: s.TargetTable,
		SourceName:  s.SourceName,
		Mode:        s.Mode,
	}
	return nil
}

func (b *builder) addTransform(s *parser.CreateTableStmt) error {
	step := &Step{
		ID:   "transform:" + strings.ToLower(s.Name),
		Type: StepTransform,
		Name: s.Name,
		Span: s.Span,
	}
	if err := b.register(step); err != nil {
		return err
	}
	if err := b.registerProducer(s.Name, step); err != nil {
		return err
	}

	sql, err := b.engine.ResolveAt(s.Body.Raw, s.Body.Pos, b.vars, subst.ContextSQL)
	if err != nil {
		return err
	}
	step.Payload = &TransformPayload{Table: s.Name, SQL: sql}
	b.refs[step.ID] = s.Body.References()
	return nil
}

func (b *builder) addExport(s *parser.ExportStmt) error {
	step := &Step{
		ID:   "export:" + s.Destination,
		Type: StepExport,
		Name: s.Destination,
		Span: s.Span,
	}
	if err := b.register(step); err != nil {
		return err
	}

	sql, err := b.engine.ResolveAt(s.Body.Raw, s.Body.Pos, b.vars, subst.ContextSQL)
	if err != nil {
		return err
	}
	dest, err := b.engine.ResolveAt(s.Destination, s.DestSpan.Start, b.vars, subst.ContextPlain)
	if err != nil {
		return err
	}
	payload := &ExportPayload{
		SQL:           sql,
		Destination:   dest,
		ConnectorType: s.ConnectorType,
	}
	if s.Options != nil {
		resolved, err := b.engine.ResolveValue(s.Options, b.vars)
		if err != nil {
			return respan(err, s.OptionsSpan)
		}
		payload.Options = resolved.(*value.Object)
	}
	step.Payload = payload
	b.refs[step.ID] = s.Body.References()
	return nil
}

// register records a step, rejecting duplicate identities.
func (b *builder) register(step *Step) error {
	if prev, exists := b.byID[step.ID]; exists {
		return NewPlanErrorf(DuplicateStepName, step.Span,
			"step %q is declared more than once (first declared at line %d)",
			step.ID, prev.Span.Start.Line)
	}
	b.byID[step.ID] = step
	b.steps = append(b.steps, step)
	return nil
}

// registerProducer records which step produces a table, rejecting two
// steps writing the same table name.
func (b *builder) registerProducer(table string, step *Step) error {
	key := strings.ToLower(table)
	if prev, exists := b.producers[key]; exists {
		return NewPlanErrorf(DuplicateStepName, step.Span,
			"table %q is produced by both %q and %q", table, prev.ID, step.ID)
	}
	b.producers[key] = step
	return nil
}

// buildGraph derives dependency edges: a load step depends on its
// declared source, and a SQL-bearing step depends on every step that
// produces a table its body references. Reference candidates that match
// no producer are ignored; only a load naming an undeclared source is a
// dangling reference.
func (b *builder) buildGraph() (*dag.Graph, error) {
	g := dag.NewGraph()
	for _, step := range b.steps {
		g.AddNode(step.ID, step)
	}

	for _, step := range b.steps {
		switch step.Type {
		case StepLoad:
			payload := step.Payload.(*LoadPayload)
			src, ok := b.sources[strings.ToLower(payload.SourceName)]
			if !ok {
				return nil, NewPlanErrorf(DanglingReference, step.Span,
					"load step %q references undeclared source %q", step.Name, payload.SourceName)
			}
			_ = g.AddEdge(src.ID, step.ID)
		case StepTransform, StepExport:
			for _, ref := range b.refs[step.ID] {
				if producer, ok := b.producers[ref]; ok {
					_ = g.AddEdge(producer.ID, step.ID)
				}
			}
		}
	}
	return g, nil
}

// respan pins a leaf-relative substitution error to the enclosing
// block's span so diagnostics point into the pipeline file rather than
// into a detached string.
func respan(err error, span token.Span) error {
	switch e := err.(type) {
	case *subst.UnresolvedVariableError:
		return &subst.UnresolvedVariableError{Name: e.Name, Span: span}
	case *subst.ScanError:
		return &subst.ScanError{Pos: span.Start, Message: e.Message}
	default:
		return err
	}
}
