package sql

import "sort"

// WalkExpr calls fn for expr and, while fn returns true, for each of its
// children in source order. Nested queries are descended into as well.
func WalkExpr(expr Expr, fn func(Expr) bool) {
	if expr == nil || !fn(expr) {
		return
	}
	switch e := expr.(type) {
	case *Arith:
		WalkExpr(e.Left, fn)
		WalkExpr(e.Right, fn)
	case *Negate:
		WalkExpr(e.Operand, fn)
	case *Compare:
		WalkExpr(e.Left, fn)
		WalkExpr(e.Right, fn)
	case *BetweenExpr:
		WalkExpr(e.Operand, fn)
		WalkExpr(e.Low, fn)
		WalkExpr(e.High, fn)
	case *IsNull:
		WalkExpr(e.Operand, fn)
	case *Logical:
		WalkExpr(e.Left, fn)
		WalkExpr(e.Right, fn)
	case *NotExpr:
		WalkExpr(e.Operand, fn)
	case *Call:
		for _, arg := range e.Args {
			WalkExpr(arg, fn)
		}
	case *Subquery:
		WalkStatement(e.Query, fn)
	}
}

// WalkStatement walks every expression of statement in source order.
func WalkStatement(statement Statement, fn func(Expr) bool) {
	switch s := statement.(type) {
	case *SelectStatement:
		for _, item := range s.Columns {
			WalkExpr(item.Expr, fn)
		}
		for _, ref := range s.From {
			if ref.Subquery != nil {
				WalkStatement(ref.Subquery, fn)
			}
		}
		WalkExpr(s.Where, fn)
		for _, expr := range s.GroupBy {
			WalkExpr(expr, fn)
		}
		WalkExpr(s.Having, fn)
		for _, item := range s.OrderBy {
			WalkExpr(item.Expr, fn)
		}
		WalkExpr(s.Limit, fn)
		WalkExpr(s.Offset, fn)
	case *UnionStatement:
		WalkStatement(s.Left, fn)
		WalkStatement(s.Right, fn)
	case *InsertStatement:
		for _, row := range s.Rows {
			for _, expr := range row {
				WalkExpr(expr, fn)
			}
		}
		if s.Select != nil {
			WalkStatement(s.Select, fn)
		}
	case *UpdateStatement:
		for _, assignment := range s.Set {
			WalkExpr(assignment.Value, fn)
		}
		WalkExpr(s.Where, fn)
	case *DeleteStatement:
		WalkExpr(s.Where, fn)
	case *CreateTableStatement:
		for _, column := range s.Columns {
			WalkExpr(column.Default, fn)
		}
	}
}

// AssignParams numbers the placeholders of statement from 1, left to right,
// and returns how many there are. Parsed placeholders are ordered by their
// position in the source text; placeholders built by hand keep walk order.
func AssignParams(statement Statement) int {
	var params []*Param
	WalkStatement(statement, func(expr Expr) bool {
		if param, ok := expr.(*Param); ok {
			params = append(params, param)
		}
		return true
	})
	sort.SliceStable(params, func(i, j int) bool {
		return params[i].Pos < params[j].Pos
	})
	for i, param := range params {
		param.Index = i + 1
	}
	return len(params)
}
