package db

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/op"
	"github.com/nickyhof/MemDB/sql"
)

// outerAlias qualifies the enclosing row's columns inside a correlated subquery.
const outerAlias = "_outer"

type evaluator func(core.Row) (core.Value, error)

// compiled is an expression ready to be evaluated against rows of one schema.
// id is the column id a bare column reference resolved to, empty otherwise.
type compiled struct {
	id   string
	typ  core.ColumnType
	eval evaluator
}

// Scope holds the arguments bound to a statement's placeholders.
type Scope struct {
	args []core.Value
}

func NewScope(args ...any) (*Scope, error) {
	scope := &Scope{args: make([]core.Value, len(args))}
	for i, arg := range args {
		v, err := core.Normalize(arg)
		if err != nil {
			return nil, err
		}
		scope.args[i] = v
	}
	return scope, nil
}

// Arg returns the argument for the 1-based placeholder index.
func (scope *Scope) Arg(index int) (core.Value, error) {
	if scope == nil || index < 1 || index > len(scope.args) {
		return nil, core.SchemaErrorf(core.ErrUnknownPlaceholder, "no argument bound to placeholder %d", index)
	}
	return scope.args[index-1], nil
}

// carried is a value computed from the pre-projection row and kept on the
// projected row so HAVING and ORDER BY can refer to it.
type carried struct {
	id   string
	eval evaluator
}

// split collects the accumulators of an aggregated select. Expressions it
// compiles are evaluated against the finalised group row.
type split struct {
	inner      *compiler
	aggregates []op.Aggregate
}

type compiler struct {
	engine *Engine
	scope  *Scope
	schema core.Schema

	split *split

	// fallback compiles references the schema cannot resolve against the
	// pre-projection row; the result is carried onto the projected row.
	fallback *compiler
	carries  *[]carried
}

func (engine *Engine) newCompiler(schema core.Schema, scope *Scope) *compiler {
	return &compiler{engine: engine, scope: scope, schema: schema}
}

func read(id string) evaluator {
	return func(row core.Row) (core.Value, error) {
		return row[id], nil
	}
}

func constant(v core.Value) evaluator {
	return func(core.Row) (core.Value, error) {
		return v, nil
	}
}

func boolean(b bool) core.Value {
	if b {
		return 1.0
	}
	return 0.0
}

// isCondition reports whether expr is a predicate node.
func isCondition(expr sql.Expr) bool {
	switch expr.(type) {
	case *sql.Compare, *sql.BetweenExpr, *sql.IsNull, *sql.Logical, *sql.NotExpr:
		return true
	}
	return false
}

func (c *compiler) compile(expr sql.Expr) (compiled, error) {
	if isCondition(expr) {
		predicate, err := c.condition(expr)
		if err != nil {
			return compiled{}, err
		}
		return compiled{typ: core.NumberType, eval: func(row core.Row) (core.Value, error) {
			ok, err := predicate(row)
			return boolean(ok), err
		}}, nil
	}

	switch e := expr.(type) {
	case *sql.Literal:
		return compiled{typ: core.TypeOf(e.Value), eval: constant(e.Value)}, nil

	case *sql.Param:
		v, err := c.scope.Arg(e.Index)
		if err != nil {
			return compiled{}, err
		}
		return compiled{typ: core.TypeOf(v), eval: constant(v)}, nil

	case *sql.ColumnRef:
		if c.split != nil {
			return c.split.first(e)
		}
		i, err := c.schema.Resolve(e.Name)
		if err != nil {
			if c.fallback != nil {
				return c.carry(e)
			}
			return compiled{}, err
		}
		field := c.schema[i]
		return compiled{id: field.ID, typ: field.Type, eval: read(field.ID)}, nil

	case *sql.Star:
		return compiled{}, core.SchemaErrorf(core.ErrUnknownIdentifier, "* is not allowed in an expression")

	case *sql.Arith:
		return c.arith(e)

	case *sql.Negate:
		operand, err := c.compile(e.Operand)
		if err != nil {
			return compiled{}, err
		}
		return compiled{typ: core.NumberType, eval: func(row core.Row) (core.Value, error) {
			v, err := operand.eval(row)
			if err != nil || v == nil {
				return nil, err
			}
			n, err := core.ToNumber(v)
			if err != nil {
				return nil, err
			}
			return -n, nil
		}}, nil

	case *sql.Call:
		if kind, ok := op.ParseAggregate(e.Name); ok {
			switch {
			case c.split != nil:
				return c.split.aggregate(kind, e)
			case c.fallback != nil:
				return c.carry(e)
			}
			return compiled{}, core.SchemaErrorf(core.ErrAggregateContext, "aggregate %s is not allowed here", e.Name)
		}
		return c.call(e)

	case *sql.Subquery:
		if c.split != nil {
			return c.split.firstOf(e)
		}
		return c.subquery(e)

	default:
		return compiled{}, core.SchemaErrorf(core.ErrUnsupportedOperator, "unsupported expression %T", expr)
	}
}

func (c *compiler) carry(expr sql.Expr) (compiled, error) {
	inner, err := c.fallback.compile(expr)
	if err != nil {
		return compiled{}, err
	}
	id := fmt.Sprintf("_carry%d", len(*c.carries)+1)
	*c.carries = append(*c.carries, carried{id: id, eval: inner.eval})
	return compiled{id: inner.id, typ: inner.typ, eval: read(id)}, nil
}

func (s *split) add(kind op.AggregateKind, inner compiled) compiled {
	id := fmt.Sprintf("_agg%d", len(s.aggregates)+1)
	s.aggregates = append(s.aggregates, op.Aggregate{ID: id, Type: inner.typ, Kind: kind, Eval: inner.eval})
	return compiled{id: inner.id, typ: kind.ResultType(inner.typ), eval: read(id)}
}

// first passes a column through the grouping as its first value in the group.
func (s *split) first(ref *sql.ColumnRef) (compiled, error) {
	inner, err := s.inner.compile(ref)
	if err != nil {
		return compiled{}, err
	}
	return s.add(op.First, inner), nil
}

func (s *split) firstOf(subquery *sql.Subquery) (compiled, error) {
	inner, err := s.inner.subquery(subquery)
	if err != nil {
		return compiled{}, err
	}
	return s.add(op.First, inner), nil
}

func (s *split) aggregate(kind op.AggregateKind, call *sql.Call) (compiled, error) {
	if call.Star {
		if kind != op.Count {
			return compiled{}, core.SchemaErrorf(core.ErrArity, "%s(*) is not supported", call.Name)
		}
		return s.add(kind, compiled{typ: core.NumberType, eval: constant(1.0)}), nil
	}
	if len(call.Args) != 1 {
		return compiled{}, core.SchemaErrorf(core.ErrArity, "%s expects 1 argument, got %d", call.Name, len(call.Args))
	}
	inner, err := s.inner.compile(call.Args[0])
	if err != nil {
		return compiled{}, err
	}
	result := s.add(kind, inner)
	result.id = ""
	return result, nil
}

func (c *compiler) arith(e *sql.Arith) (compiled, error) {
	left, err := c.compile(e.Left)
	if err != nil {
		return compiled{}, err
	}
	right, err := c.compile(e.Right)
	if err != nil {
		return compiled{}, err
	}

	var apply func(a, b float64) core.Value
	switch e.Op {
	case "+":
		apply = func(a, b float64) core.Value { return a + b }
	case "-":
		apply = func(a, b float64) core.Value { return a - b }
	case "*":
		apply = func(a, b float64) core.Value { return a * b }
	case "/":
		apply = func(a, b float64) core.Value {
			if b == 0 {
				return nil
			}
			return a / b
		}
	default:
		return compiled{}, core.SchemaErrorf(core.ErrUnsupportedOperator, "unsupported arithmetic operator %s", e.Op)
	}

	return compiled{typ: core.NumberType, eval: func(row core.Row) (core.Value, error) {
		l, err := left.eval(row)
		if err != nil {
			return nil, err
		}
		r, err := right.eval(row)
		if err != nil {
			return nil, err
		}
		if l == nil || r == nil {
			return nil, nil
		}
		a, err := core.ToNumber(l)
		if err != nil {
			return nil, err
		}
		b, err := core.ToNumber(r)
		if err != nil {
			return nil, err
		}
		return apply(a, b), nil
	}}, nil
}

// condition compiles expr into a predicate. Comparisons involving NULL are false.
func (c *compiler) condition(expr sql.Expr) (op.Predicate, error) {
	switch e := expr.(type) {
	case *sql.Logical:
		left, err := c.condition(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.condition(e.Right)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case "AND":
			return func(row core.Row) (bool, error) {
				ok, err := left(row)
				if err != nil || !ok {
					return false, err
				}
				return right(row)
			}, nil
		case "OR":
			return func(row core.Row) (bool, error) {
				ok, err := left(row)
				if err != nil || ok {
					return ok, err
				}
				return right(row)
			}, nil
		}
		return nil, core.SchemaErrorf(core.ErrUnsupportedOperator, "unsupported logical operator %s", e.Op)

	case *sql.NotExpr:
		operand, err := c.condition(e.Operand)
		if err != nil {
			return nil, err
		}
		return func(row core.Row) (bool, error) {
			ok, err := operand(row)
			return !ok, err
		}, nil

	case *sql.IsNull:
		operand, err := c.compile(e.Operand)
		if err != nil {
			return nil, err
		}
		return func(row core.Row) (bool, error) {
			v, err := operand.eval(row)
			return (v == nil) != e.Not, err
		}, nil

	case *sql.BetweenExpr:
		operands, err := c.compileAll(e.Operand, e.Low, e.High)
		if err != nil {
			return nil, err
		}
		return func(row core.Row) (bool, error) {
			values, err := evalAll(row, operands)
			if err != nil {
				return false, err
			}
			low, ok := core.Compare(values[0], values[1])
			if !ok {
				return false, nil
			}
			high, ok := core.Compare(values[0], values[2])
			if !ok {
				return false, nil
			}
			return (low >= 0 && high <= 0) != e.Not, nil
		}, nil

	case *sql.Compare:
		return c.compare(e)

	default:
		value, err := c.compile(expr)
		if err != nil {
			return nil, err
		}
		return func(row core.Row) (bool, error) {
			v, err := value.eval(row)
			return core.Truthy(v), err
		}, nil
	}
}

func (c *compiler) compare(e *sql.Compare) (op.Predicate, error) {
	var test func(a, b core.Value) bool
	switch e.Op {
	case "=":
		test = ordered(func(c int) bool { return c == 0 })
	case "<>":
		test = ordered(func(c int) bool { return c != 0 })
	case "<":
		test = ordered(func(c int) bool { return c < 0 })
	case "<=":
		test = ordered(func(c int) bool { return c <= 0 })
	case ">":
		test = ordered(func(c int) bool { return c > 0 })
	case ">=":
		test = ordered(func(c int) bool { return c >= 0 })
	case "LIKE":
		test = func(a, b core.Value) bool {
			return a != nil && b != nil && matchLike(core.ToText(a), core.ToText(b))
		}
	default:
		return nil, core.SchemaErrorf(core.ErrUnsupportedOperator, "unsupported comparison operator %s", e.Op)
	}

	operands, err := c.compileAll(e.Left, e.Right)
	if err != nil {
		return nil, err
	}
	return func(row core.Row) (bool, error) {
		values, err := evalAll(row, operands)
		if err != nil {
			return false, err
		}
		return test(values[0], values[1]), nil
	}, nil
}

func ordered(accept func(int) bool) func(a, b core.Value) bool {
	return func(a, b core.Value) bool {
		c, ok := core.Compare(a, b)
		return ok && accept(c)
	}
}

func (c *compiler) compileAll(exprs ...sql.Expr) ([]compiled, error) {
	out := make([]compiled, len(exprs))
	for i, expr := range exprs {
		var err error
		if out[i], err = c.compile(expr); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func evalAll(row core.Row, exprs []compiled) ([]core.Value, error) {
	values := make([]core.Value, len(exprs))
	for i, expr := range exprs {
		var err error
		if values[i], err = expr.eval(row); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func (c *compiler) call(e *sql.Call) (compiled, error) {
	fn, ok := functions[strings.ToUpper(e.Name)]
	if !ok {
		return compiled{}, core.SchemaErrorf(core.ErrUnknownFunction, "unknown function %s", e.Name)
	}
	if e.Star || !fn.accepts(len(e.Args)) {
		return compiled{}, core.SchemaErrorf(core.ErrArity, "wrong number of arguments for %s: %d", e.Name, len(e.Args))
	}

	args, err := c.compileAll(e.Args...)
	if err != nil {
		return compiled{}, err
	}
	types := make([]core.ColumnType, len(args))
	for i, arg := range args {
		types[i] = arg.typ
	}
	return compiled{typ: fn.result(types), eval: func(row core.Row) (core.Value, error) {
		values, err := evalAll(row, args)
		if err != nil {
			return nil, err
		}
		return fn.call(values)
	}}, nil
}

// subquery compiles a scalar subquery. The row it is evaluated against is
// offered to the inner select as an extra FROM source named _outer; the
// inner plan is rebuilt for every row so materialising operators see it.
func (c *compiler) subquery(e *sql.Subquery) (compiled, error) {
	outer := c.schema
	build := func(row core.Row) (core.Cursor, error) {
		bound := op.NewSingleRow(outer)
		bound.Bind(row)
		return c.engine.buildQuery(correlate(e.Query, bound), c.scope)
	}

	probe, err := build(core.Row{})
	if err != nil {
		return compiled{}, err
	}
	schema := probe.Schema()
	if err := probe.Close(); err != nil {
		return compiled{}, err
	}
	if len(schema) != 1 {
		return compiled{}, core.SchemaErrorf(core.ErrSubqueryColumns, "subquery must return exactly one column, got %d", len(schema))
	}
	id := schema[0].ID

	return compiled{typ: schema[0].Type, eval: func(row core.Row) (core.Value, error) {
		cursor, err := build(row)
		if err != nil {
			return nil, err
		}
		defer cursor.Close()

		first, ok, err := cursor.Fetch()
		if err != nil || !ok {
			return nil, err
		}
		if _, err := core.Drain(cursor); err != nil {
			return nil, err
		}
		return first[id], nil
	}}, nil
}

// correlate returns a copy of query whose selects also read from bound.
func correlate(query sql.Query, bound core.Cursor) sql.Query {
	switch q := query.(type) {
	case *sql.SelectStatement:
		copied := *q
		copied.From = append(slices.Clip(q.From), sql.TableRef{Cursor: bound, Alias: outerAlias})
		return &copied
	case *sql.UnionStatement:
		return &sql.UnionStatement{Left: correlate(q.Left, bound), Right: correlate(q.Right, bound), All: q.All}
	}
	return query
}

// containsAggregate reports whether expr calls an aggregate outside of any subquery.
func containsAggregate(expr sql.Expr) bool {
	found := false
	sql.WalkExpr(expr, func(e sql.Expr) bool {
		switch n := e.(type) {
		case *sql.Subquery:
			return false
		case *sql.Call:
			if _, ok := op.ParseAggregate(n.Name); ok {
				found = true
			}
		}
		return !found
	})
	return found
}

// matchLike matches value against a SQL LIKE pattern case-insensitively.
// % matches any run of characters and _ matches exactly one.
func matchLike(value, pattern string) bool {
	v := []rune(strings.ToLower(value))
	p := []rune(strings.ToLower(pattern))

	// match[j] reports whether p[:i] matches v[:j]
	match := make([]bool, len(v)+1)
	match[0] = true
	for i := range p {
		next := make([]bool, len(v)+1)
		switch p[i] {
		case '%':
			seen := false
			for j := range next {
				seen = seen || match[j]
				next[j] = seen
			}
		default:
			for j := 1; j <= len(v); j++ {
				next[j] = match[j-1] && (p[i] == '_' || p[i] == v[j-1])
			}
		}
		match = next
	}
	return match[len(v)]
}
