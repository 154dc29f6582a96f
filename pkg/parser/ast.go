package parser

import (
	"github.com/leapstack-labs/leapflow/pkg/cond"
	"github.com/leapstack-labs/leapflow/pkg/token"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

// Statement is a top-level pipeline statement.
type Statement interface {
	stmtNode()
	GetSpan() token.Span
}

// NodeInfo provides common fields for AST nodes.
// Embed this in node types that need position tracking.
type NodeInfo struct {
	Span token.Span
}

// GetSpan returns the node's source span.
func (n *NodeInfo) GetSpan() token.Span {
	return n.Span
}

// File is a parsed pipeline definition.
type File struct {
	Statements []Statement
}

// SourceDecl declares an external data source:
//
//	SOURCE events TYPE postgres PARAMS {"dsn": "${events_dsn}"};
type SourceDecl struct {
	NodeInfo
	Name          string
	ConnectorType string
	Params        *value.Object // nil when no PARAMS block is given
	ParamsSpan    token.Span    // span of the {...} block
}

func (*SourceDecl) stmtNode() {}

// LoadStmt loads a declared source into a table:
//
//	LOAD raw_events FROM events;
//	LOAD raw_events FROM events MODE append;
type LoadStmt struct {
	NodeInfo
	TargetTable string
	SourceName  string
	Mode        string // empty when no MODE clause is given
}

func (*LoadStmt) stmtNode() {}

// CreateTableStmt materializes a SQL transform:
//
//	CREATE TABLE daily_totals AS SELECT ... ;
type CreateTableStmt struct {
	NodeInfo
	Name string
	Body *Fragment
}

func (*CreateTableStmt) stmtNode() {}

// ExportStmt sends query results to a destination:
//
//	EXPORT SELECT * FROM daily_totals TO 'out/daily.csv' TYPE csv OPTIONS {"header": true};
type ExportStmt struct {
	NodeInfo
	Body          *Fragment
	Destination   string     // raw destination text, may contain ${...}
	DestSpan      token.Span // span of the destination tokens
	ConnectorType string
	Options       *value.Object // nil when no OPTIONS block is given
	OptionsSpan   token.Span    // span of the {...} block
}

func (*ExportStmt) stmtNode() {}

// Branch is one arm of a conditional block. Condition is nil for the
// ELSE branch.
type Branch struct {
	Condition cond.Expr
	Body      []Statement
	Span      token.Span
}

// ConditionalBlock holds the branches of an IF / ELSEIF / ELSE / ENDIF
// chain. At most one ELSE branch exists and it is always last.
type ConditionalBlock struct {
	NodeInfo
	Branches []Branch
}

func (*ConditionalBlock) stmtNode() {}
