package db

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/op"
	"github.com/nickyhof/MemDB/sql"
)

func (engine *Engine) buildQuery(query sql.Query, scope *Scope) (core.Cursor, error) {
	switch q := query.(type) {
	case *sql.SelectStatement:
		return engine.buildSelect(q, scope)
	case *sql.UnionStatement:
		left, err := engine.buildQuery(q.Left, scope)
		if err != nil {
			return nil, err
		}
		right, err := engine.buildQuery(q.Right, scope)
		if err != nil {
			return nil, errors.Join(err, left.Close())
		}
		union, err := op.NewUnion(left, right)
		if err != nil {
			return nil, errors.Join(err, left.Close(), right.Close())
		}
		return union, nil
	default:
		return nil, core.SchemaErrorf(core.ErrUnsupportedOperator, "unsupported query %T", query)
	}
}

// buildFrom resolves and cross joins the FROM sources. Without sources a
// select reads one implicit row.
func (engine *Engine) buildFrom(refs []sql.TableRef, scope *Scope) (core.Cursor, error) {
	if len(refs) == 0 {
		return op.NewSingleValue("VALUE", 1.0), nil
	}

	var source core.Cursor
	for _, ref := range refs {
		cursor, err := engine.resolveRef(ref, scope)
		if err != nil {
			if source != nil {
				err = errors.Join(err, source.Close())
			}
			return nil, err
		}
		if source == nil {
			source = cursor
		} else {
			source = op.NewCrossJoin(source, cursor)
		}
	}
	return source, nil
}

func (engine *Engine) resolveRef(ref sql.TableRef, scope *Scope) (core.Cursor, error) {
	var cursor core.Cursor
	name := ref.Alias

	switch {
	case ref.Cursor != nil:
		cursor = ref.Cursor
	case ref.Subquery != nil:
		var err error
		if cursor, err = engine.buildQuery(ref.Subquery, scope); err != nil {
			return nil, err
		}
	case engine.catalog.Has(ref.Name):
		table, err := engine.catalog.Get(ref.Name)
		if err != nil {
			return nil, err
		}
		cursor = op.NewTableScan(table)
		if name == "" {
			name = table.ID()
		}
	case op.IsCatalogName(ref.Name):
		rows, err := op.NewCatalogScan(engine.catalog, ref.Name)
		if err != nil {
			return nil, err
		}
		cursor = rows
		if name == "" {
			name = strings.ToUpper(ref.Name)
		}
	default:
		return nil, core.CatalogErrorf(core.ErrTableNotFound, "table %s does not exist", ref.Name)
	}

	if name != "" {
		cursor = op.NewRename(cursor, name)
	}
	return cursor, nil
}

// expandStars replaces * and t.* with references to the matching columns.
// Columns of an enclosing row are never expanded.
func expandStars(items []sql.SelectItem, schema core.Schema) ([]sql.SelectItem, error) {
	var out []sql.SelectItem
	for _, item := range items {
		star, ok := item.Expr.(*sql.Star)
		if !ok {
			out = append(out, item)
			continue
		}
		prefix := strings.ToLower(star.Table) + "."
		matched := false
		for _, field := range schema {
			id := strings.ToLower(field.ID)
			if strings.HasPrefix(id, outerAlias+".") {
				continue
			}
			if star.Table != "" && !strings.HasPrefix(id, prefix) {
				continue
			}
			out = append(out, sql.SelectItem{Expr: &sql.ColumnRef{Name: field.ID}})
			matched = true
		}
		if star.Table != "" && !matched {
			return nil, core.SchemaErrorf(core.ErrUnknownIdentifier, "unknown table %s in %s.*", star.Table, star.Table)
		}
	}
	return out, nil
}

// isGrouped reports whether a select aggregates its rows.
func isGrouped(s *sql.SelectStatement) bool {
	if len(s.GroupBy) > 0 || containsAggregate(s.Having) {
		return true
	}
	for _, item := range s.Columns {
		if containsAggregate(item.Expr) {
			return true
		}
	}
	return false
}

func outputName(item sql.SelectItem, expr compiled, position int) string {
	switch {
	case item.Alias != "":
		return item.Alias
	case expr.id != "":
		return expr.id
	default:
		return fmt.Sprintf("col%d", position)
	}
}

func (engine *Engine) buildSelect(s *sql.SelectStatement, scope *Scope) (cursor core.Cursor, err error) {
	source, err := engine.buildFrom(s.From, scope)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil && source != nil {
			err = errors.Join(err, source.Close())
		}
	}()

	schema := source.Schema()
	items, err := expandStars(s.Columns, schema)
	if err != nil {
		return nil, err
	}

	base := engine.newCompiler(schema, scope)
	if s.Where != nil {
		predicate, err := base.condition(s.Where)
		if err != nil {
			return nil, err
		}
		source = op.NewFilter(source, predicate)
	}

	// pre compiles against the rows entering the projection: source rows,
	// or finalised group rows when the select aggregates.
	grouped := isGrouped(s)
	pre := base
	var groups *split
	if grouped {
		groups = &split{inner: base}
		pre = &compiler{engine: engine, scope: scope, split: groups}
	}

	outputs := make([]compiled, len(items))
	visible := make(core.Schema, len(items))
	for i, item := range items {
		if outputs[i], err = pre.compile(item.Expr); err != nil {
			return nil, err
		}
		visible[i] = core.Field{ID: outputName(item, outputs[i], i+1), Type: outputs[i].typ}
	}

	// HAVING and ORDER BY see the projected columns first and fall back to
	// values carried over from the pre-projection row.
	var carries []carried
	post := &compiler{engine: engine, scope: scope, schema: visible, carries: &carries}
	if grouped || !s.Distinct {
		post.fallback = pre
	}

	var having op.Predicate
	if s.Having != nil {
		if having, err = post.condition(s.Having); err != nil {
			return nil, err
		}
	}

	keys := make([]op.SortKey, len(s.OrderBy))
	for i, item := range s.OrderBy {
		var key compiled
		if position, ok := ordinal(item.Expr, len(visible)); ok {
			key = compiled{typ: visible[position].Type, eval: read(visible[position].ID)}
		} else if key, err = post.compile(item.Expr); err != nil {
			return nil, err
		}
		keys[i] = op.SortKey{Eval: key.eval, Desc: item.Desc}
	}

	if grouped {
		var key op.KeyFunc
		if len(s.GroupBy) > 0 {
			exprs, err := base.compileAll(s.GroupBy...)
			if err != nil {
				return nil, err
			}
			key = func(row core.Row) (string, error) {
				values, err := evalAll(row, exprs)
				if err != nil {
					return "", err
				}
				return core.Key(values...), nil
			}
		}
		source = op.NewGroup(source, key, groups.aggregates)
	}

	source = op.NewProject(source, visible, func(row core.Row) (core.Row, error) {
		out := make(core.Row, len(outputs)+len(carries))
		for i, output := range outputs {
			v, err := output.eval(row)
			if err != nil {
				return nil, err
			}
			out[visible[i].ID] = v
		}
		for _, c := range carries {
			v, err := c.eval(row)
			if err != nil {
				return nil, err
			}
			out[c.id] = v
		}
		return out, nil
	})

	if s.Distinct {
		source = op.NewDistinct(source)
	}
	if having != nil {
		source = op.NewFilter(source, having)
	}
	if len(keys) > 0 {
		sorted, err := op.NewSort(source, keys)
		if err != nil {
			source = nil
			return nil, err
		}
		source = sorted
	}

	if s.Offset != nil {
		n, err := engine.count(s.Offset, scope, 0)
		if err != nil {
			return nil, err
		}
		skipped, err := op.NewSkip(source, n)
		if err != nil {
			return nil, err
		}
		source = skipped
	}
	if s.Limit != nil {
		n, err := engine.count(s.Limit, scope, math.MaxInt)
		if err != nil {
			return nil, err
		}
		source = op.NewLimit(source, n)
	}

	if len(carries) > 0 {
		source = op.NewProject(source, visible, func(row core.Row) (core.Row, error) {
			out := make(core.Row, len(visible))
			for _, f := range visible {
				out[f.ID] = row[f.ID]
			}
			return out, nil
		})
	}
	return source, nil
}

// ordinal recognises ORDER BY <n>, a 1-based reference to a selected column.
func ordinal(expr sql.Expr, columns int) (int, bool) {
	literal, ok := expr.(*sql.Literal)
	if !ok {
		return 0, false
	}
	n, ok := literal.Value.(float64)
	if !ok || n != math.Trunc(n) || n < 1 || int(n) > columns {
		return 0, false
	}
	return int(n) - 1, true
}

// count evaluates a LIMIT or OFFSET expression. Negative counts are zero
// and NULL means unset.
func (engine *Engine) count(expr sql.Expr, scope *Scope, unset int) (int, error) {
	c, err := engine.newCompiler(nil, scope).compile(expr)
	if err != nil {
		return 0, err
	}
	v, err := c.eval(core.Row{})
	if err != nil {
		return 0, err
	}
	if v == nil {
		return unset, nil
	}
	n, err := core.ToNumber(v)
	if err != nil {
		return 0, err
	}
	switch {
	case n < 0:
		return 0, nil
	case n >= math.MaxInt32:
		return math.MaxInt32, nil
	}
	return int(n), nil
}
