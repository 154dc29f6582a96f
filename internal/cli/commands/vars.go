package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/cli/output"
	"github.com/leapstack-labs/leapflow/pkg/cond"
	"github.com/leapstack-labs/leapflow/pkg/parser"
	"github.com/leapstack-labs/leapflow/pkg/subst"
	"github.com/leapstack-labs/leapflow/pkg/token"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

// NewVarsCommand creates the vars command.
func NewVarsCommand() *cobra.Command {
	flags := &VarFlags{}

	cmd := &cobra.Command{
		Use:   "vars <file.flow>",
		Short: "List the variables a pipeline references",
		Long: `Scan a pipeline file for ${name} and ${name|default} expressions and
report whether each resolves against the active profile, --vars-file
and --var. A variable that stays unresolved and has no default would
fail compilation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVars(cmd, args[0], flags)
		},
	}

	addVarFlags(cmd, flags)

	return cmd
}

func runVars(cmd *cobra.Command, path string, flags *VarFlags) error {
	cc := NewCommandContext(cmd)

	profile, err := cc.Cfg.ActiveProfile()
	if err != nil {
		return err
	}
	vars, err := buildVars(profile, flags)
	if err != nil {
		return err
	}

	src, err := loadPipeline(path)
	if err != nil {
		return err
	}
	file, err := parser.Parse(src)
	if err != nil {
		if cc.Renderer.EffectiveMode() == output.ModeJSON {
			return err
		}
		renderDiagnostic(cc.Renderer, src, err)
		return fmt.Errorf("parsing failed")
	}

	exprs, err := collectExprs(file.Statements)
	if err != nil {
		if cc.Renderer.EffectiveMode() == output.ModeJSON {
			return err
		}
		renderDiagnostic(cc.Renderer, src, err)
		return fmt.Errorf("variable scan failed")
	}

	infos := foldVars(exprs, vars)

	switch cc.Renderer.EffectiveMode() {
	case output.ModeJSON:
		return cc.Renderer.JSON(output.VarsOutput{
			Pipeline:  path,
			Profile:   cc.Cfg.Profile,
			Variables: infos,
		})
	case output.ModeMarkdown:
		varsMarkdown(cc.Renderer, infos)
	default:
		varsText(cc.Renderer, infos, vars)
	}
	return nil
}

// collectExprs gathers every variable expression a compile would
// resolve: SQL bodies, params and options strings, export destinations
// and condition operands. Conditional branches are all walked, taken or
// not, since which branch runs may itself depend on a variable.
func collectExprs(stmts []parser.Statement) ([]subst.Expr, error) {
	var exprs []subst.Expr
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *parser.SourceDecl:
			found, err := scanObjectStrings(s.Params)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, found...)
		case *parser.CreateTableStmt:
			exprs = append(exprs, s.Body.Exprs...)
		case *parser.ExportStmt:
			exprs = append(exprs, s.Body.Exprs...)
			found, err := subst.Scan(s.Destination, s.DestSpan.Start)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, found...)
			found, err = scanObjectStrings(s.Options)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, found...)
		case *parser.ConditionalBlock:
			for _, br := range s.Branches {
				if br.Condition != nil {
					found, err := scanCondition(br.Condition)
					if err != nil {
						return nil, err
					}
					exprs = append(exprs, found...)
				}
				nested, err := collectExprs(br.Body)
				if err != nil {
					return nil, err
				}
				exprs = append(exprs, nested...)
			}
		}
	}
	return exprs, nil
}

// scanObjectStrings scans the string leaves of a params or options
// block. Leaf positions inside parsed objects are not tracked, so scan
// errors here carry no useful location.
func scanObjectStrings(obj *value.Object) ([]subst.Expr, error) {
	if obj == nil {
		return nil, nil
	}
	var exprs []subst.Expr
	var walk func(v value.Value) error
	walk = func(v value.Value) error {
		switch val := v.(type) {
		case value.String:
			found, err := subst.Scan(string(val), token.Position{})
			if err != nil {
				return err
			}
			exprs = append(exprs, found...)
		case *value.Object:
			for _, f := range val.Fields {
				if err := walk(f.Value); err != nil {
					return err
				}
			}
		case value.Array:
			for _, item := range val {
				if err := walk(item); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(obj); err != nil {
		return nil, err
	}
	return exprs, nil
}

func scanCondition(expr cond.Expr) ([]subst.Expr, error) {
	switch e := expr.(type) {
	case *cond.Comparison:
		left, err := subst.Scan(e.Left.Text, e.Left.Span.Start)
		if err != nil {
			return nil, err
		}
		right, err := subst.Scan(e.Right.Text, e.Right.Span.Start)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	case *cond.Truth:
		return subst.Scan(e.Operand.Text, e.Operand.Span.Start)
	case *cond.Not:
		return scanCondition(e.Expr)
	case *cond.And:
		left, err := scanCondition(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := scanCondition(e.Right)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	case *cond.Or:
		left, err := scanCondition(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := scanCondition(e.Right)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	default:
		return nil, nil
	}
}

// foldVars reduces expressions to one row per variable name, in first
// appearance order. A variable is resolved when the caller supplies a
// value or every occurrence carries a default.
func foldVars(exprs []subst.Expr, vars subst.Vars) []output.VarInfo {
	type usage struct {
		firstDefault string
		hasDefault   bool
		required     bool // some occurrence has no default
	}

	order := make([]string, 0, len(exprs))
	byName := make(map[string]*usage)
	for _, expr := range exprs {
		u, seen := byName[expr.Name]
		if !seen {
			u = &usage{}
			byName[expr.Name] = u
			order = append(order, expr.Name)
		}
		if expr.HasDefault {
			if !u.hasDefault {
				u.firstDefault = expr.Default
				u.hasDefault = true
			}
		} else {
			u.required = true
		}
	}

	infos := make([]output.VarInfo, 0, len(order))
	for _, name := range order {
		u := byName[name]
		info := output.VarInfo{
			Name:       name,
			Default:    u.firstDefault,
			HasDefault: u.hasDefault,
		}
		if v, ok := vars[name]; ok {
			info.Value = subst.Format(v, subst.ContextPlain)
			info.Resolved = true
		} else if !u.required {
			info.Value = subst.Format(subst.Literal(u.firstDefault), subst.ContextPlain)
			info.Resolved = true
		}
		infos = append(infos, info)
	}
	return infos
}

func varsText(r *output.Renderer, infos []output.VarInfo, vars subst.Vars) {
	if len(infos) == 0 {
		r.Muted("No variables referenced.")
		return
	}

	r.Header(1, "Variables")
	r.Println()
	unresolved := 0
	for _, info := range infos {
		switch {
		case info.Resolved:
			detail := "= " + info.Value
			if _, supplied := vars[info.Name]; !supplied {
				detail += " (default)"
			}
			r.StatusLine(info.Name, "success", detail)
		default:
			unresolved++
			r.StatusLine(info.Name, "failed", "unset, no default")
		}
	}
	r.Println()
	r.Muted(fmt.Sprintf("%d variables, %d unresolved", len(infos), unresolved))
}

func varsMarkdown(r *output.Renderer, infos []output.VarInfo) {
	r.Println(output.FormatHeader(1, "Variables"))
	r.Println()
	if len(infos) == 0 {
		r.Println("No variables referenced.")
		return
	}
	for _, info := range infos {
		switch {
		case info.Resolved:
			r.Println(fmt.Sprintf("- `%s`: %s", info.Name, info.Value))
		default:
			r.Println(fmt.Sprintf("- `%s`: unresolved", info.Name))
		}
	}
}
