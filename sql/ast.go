package sql

import "github.com/nickyhof/MemDB/core"

type StatementType int

const (
	SelectStatementType StatementType = iota
	UnionStatementType
	InsertStatementType
	UpdateStatementType
	DeleteStatementType
	CreateTableStatementType
	DropTableStatementType
)

func (t StatementType) String() string {
	switch t {
	case SelectStatementType:
		return "select"
	case UnionStatementType:
		return "union"
	case InsertStatementType:
		return "insert"
	case UpdateStatementType:
		return "update"
	case DeleteStatementType:
		return "delete"
	case CreateTableStatementType:
		return "createtable"
	case DropTableStatementType:
		return "droptable"
	default:
		return "unknown"
	}
}

type Statement interface {
	Type() StatementType
}

// Query is a statement producing rows: a select or a union.
type Query interface {
	Statement
	query()
}

type SelectItem struct {
	Expr  Expr
	Alias string
}

// TableRef is one FROM entry: a named table, a nested query, or a cursor
// supplied programmatically.
type TableRef struct {
	Name     string
	Alias    string
	Subquery Query
	Cursor   core.Cursor
}

type OrderItem struct {
	Expr Expr
	Desc bool
}

type SelectStatement struct {
	Distinct bool
	Columns  []SelectItem
	From     []TableRef
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderItem
	Limit    Expr
	Offset   Expr
}

type UnionStatement struct {
	Left  Query
	Right Query
	All   bool
}

type ColumnDef struct {
	Name          string
	TypeName      string
	Primary       bool
	AutoIncrement bool
	Default       Expr
	Comment       string
}

type CreateTableStatement struct {
	Table       string
	IfNotExists bool
	Columns     []ColumnDef
}

type DropTableStatement struct {
	Table    string
	IfExists bool
}

type InsertStatement struct {
	Table   string
	Columns []string
	Rows    [][]Expr
	Select  Query
}

type Assignment struct {
	Column string
	Value  Expr
}

type UpdateStatement struct {
	Table string
	Set   []Assignment
	Where Expr
}

type DeleteStatement struct {
	Table string
	Where Expr
}

func (s *SelectStatement) Type() StatementType      { return SelectStatementType }
func (s *UnionStatement) Type() StatementType       { return UnionStatementType }
func (s *InsertStatement) Type() StatementType      { return InsertStatementType }
func (s *UpdateStatement) Type() StatementType      { return UpdateStatementType }
func (s *DeleteStatement) Type() StatementType      { return DeleteStatementType }
func (s *CreateTableStatement) Type() StatementType { return CreateTableStatementType }
func (s *DropTableStatement) Type() StatementType   { return DropTableStatementType }

func (s *SelectStatement) query() {}
func (s *UnionStatement) query()  {}

// Expr is a node of an expression tree.
type Expr interface {
	expr()
}

// Literal is a number (float64), a string, or NULL (nil).
type Literal struct {
	Value core.Value
}

// ColumnRef names a column, optionally qualified ("t.a").
type ColumnRef struct {
	Name string
}

// Star is "*" or "t.*" in a select list.
type Star struct {
	Table string
}

// Arith is a binary arithmetic operation: "+", "-", "*" or "/".
type Arith struct {
	Op          string
	Left, Right Expr
}

type Negate struct {
	Operand Expr
}

// Compare is "=", "<>", "<", "<=", ">", ">=" or "LIKE".
type Compare struct {
	Op          string
	Left, Right Expr
}

type BetweenExpr struct {
	Operand   Expr
	Low, High Expr
	Not       bool
}

type IsNull struct {
	Operand Expr
	Not     bool
}

// Logical is "AND" or "OR".
type Logical struct {
	Op          string
	Left, Right Expr
}

type NotExpr struct {
	Operand Expr
}

// Call is a function or aggregate call. Star marks COUNT(*).
type Call struct {
	Name string
	Args []Expr
	Star bool
}

// Param is a "?" placeholder. Index is assigned by AssignParams, starting at 1.
type Param struct {
	Index int
	Pos   int
}

// Subquery is a nested select used as a scalar value.
type Subquery struct {
	Query Query
}

func (*Literal) expr()     {}
func (*ColumnRef) expr()   {}
func (*Star) expr()        {}
func (*Arith) expr()       {}
func (*Negate) expr()      {}
func (*Compare) expr()     {}
func (*BetweenExpr) expr() {}
func (*IsNull) expr()      {}
func (*Logical) expr()     {}
func (*NotExpr) expr()     {}
func (*Call) expr()        {}
func (*Param) expr()       {}
func (*Subquery) expr()    {}
