package db

import (
	"errors"

	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/op"
	"github.com/nickyhof/MemDB/ps"
	"github.com/nickyhof/MemDB/sql"
)

// Mutation is the cursor returned by statements that change the catalog or
// a table. It yields a single row: the table id for CREATE TABLE, insert_id
// for INSERT and num_rows otherwise.
type Mutation struct {
	*op.Rows
	InsertID core.Value
	NumRows  int
}

const (
	InsertIDColumn = "insert_id"
	NumRowsColumn  = "num_rows"
)

func affected(n int) *Mutation {
	return &Mutation{Rows: op.NewSingleValue(NumRowsColumn, float64(n)), NumRows: n}
}

// constant evaluates an expression that may only use literals and placeholders.
func (engine *Engine) constant(expr sql.Expr, scope *Scope) (core.Value, error) {
	c, err := engine.newCompiler(nil, scope).compile(expr)
	if err != nil {
		return nil, err
	}
	return c.eval(core.Row{})
}

func (engine *Engine) createTable(s *sql.CreateTableStatement, scope *Scope) (*Mutation, error) {
	if engine.catalog.Has(s.Table) {
		if !s.IfNotExists {
			return nil, core.CatalogErrorf(core.ErrTableExists, "table %s already exists", s.Table)
		}
		table, err := engine.catalog.Get(s.Table)
		if err != nil {
			return nil, err
		}
		return &Mutation{Rows: op.NewSingleValue("VALUE", table.ID())}, nil
	}

	def := core.TableDef{ID: s.Table, Columns: make([]core.Column, len(s.Columns))}
	for i, column := range s.Columns {
		typ, err := core.ParseColumnType(column.TypeName)
		if err != nil {
			return nil, err
		}
		def.Columns[i] = core.Column{ID: column.Name, Type: typ, Primary: column.Primary, Comment: column.Comment}
		if column.AutoIncrement {
			def.Columns[i].AutoIncrement = core.Counter(1)
		}
		if column.Default != nil {
			v, err := engine.constant(column.Default, scope)
			if err != nil {
				return nil, err
			}
			if !core.Compatible(core.TypeOf(v), typ) {
				return nil, core.SchemaErrorf(core.ErrIncompatibleType, "Incompatible data type for default value of %s", column.Name)
			}
			if def.Columns[i].Default, err = core.Coerce(v, typ); err != nil {
				return nil, err
			}
		}
	}

	table, err := engine.catalog.Create(def)
	if err != nil {
		return nil, err
	}
	return &Mutation{Rows: op.NewSingleValue("VALUE", table.ID()), NumRows: 1}, nil
}

func (engine *Engine) dropTable(s *sql.DropTableStatement) (*Mutation, error) {
	if !engine.catalog.Has(s.Table) {
		if s.IfExists {
			return affected(0), nil
		}
		return nil, core.CatalogErrorf(core.ErrTableNotFound, "table %s does not exist", s.Table)
	}
	if err := engine.catalog.Drop(s.Table); err != nil {
		return nil, err
	}
	return affected(1), nil
}

// insertColumns resolves the target column ids; no list means every column in order.
func insertColumns(def core.TableDef, names []string) ([]string, error) {
	if len(names) == 0 {
		ids := make([]string, len(def.Columns))
		for i, column := range def.Columns {
			ids[i] = column.ID
		}
		return ids, nil
	}
	ids := make([]string, len(names))
	for i, name := range names {
		c, err := def.Column(name)
		if err != nil {
			return nil, err
		}
		ids[i] = def.Columns[c].ID
	}
	return ids, nil
}

func (engine *Engine) insert(s *sql.InsertStatement, scope *Scope) (*Mutation, error) {
	table, err := engine.catalog.Get(s.Table)
	if err != nil {
		return nil, err
	}
	columns, err := insertColumns(table.Def(), s.Columns)
	if err != nil {
		return nil, err
	}

	result := &Mutation{}
	appendRow := func(row core.Row) error {
		id, err := table.Append(row)
		if err != nil {
			return err
		}
		result.InsertID = id
		result.NumRows++
		return nil
	}

	// rows appended before a failing row stay appended
	if s.Select != nil {
		rows, err := engine.selectForInsert(s.Select, scope, columns)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if err := appendRow(row); err != nil {
				return nil, err
			}
		}
	} else {
		for _, exprs := range s.Rows {
			if len(exprs) != len(columns) {
				return nil, core.SchemaErrorf(core.ErrColumnCount, "INSERT row has wrong number of elements: expected %d, got %d", len(columns), len(exprs))
			}
			row := make(core.Row, len(columns))
			for i, expr := range exprs {
				if row[columns[i]], err = engine.constant(expr, scope); err != nil {
					return nil, err
				}
			}
			if err := appendRow(row); err != nil {
				return nil, err
			}
		}
	}
	result.Rows = op.NewSingleValue(InsertIDColumn, result.InsertID)
	return result, nil
}

// selectForInsert runs the select to completion before anything is inserted,
// so INSERT INTO t SELECT ... FROM t terminates.
func (engine *Engine) selectForInsert(query sql.Query, scope *Scope, columns []string) ([]core.Row, error) {
	cursor, err := engine.buildQuery(query, scope)
	if err != nil {
		return nil, err
	}
	schema := cursor.Schema()
	if len(schema) != len(columns) {
		return nil, errors.Join(
			core.SchemaErrorf(core.ErrColumnCount, "INSERT ... SELECT has %d columns, expected %d", len(schema), len(columns)),
			cursor.Close(),
		)
	}

	selected, err := core.Drain(cursor)
	if err = errors.Join(err, cursor.Close()); err != nil {
		return nil, err
	}
	rows := make([]core.Row, len(selected))
	for i, row := range selected {
		rows[i] = make(core.Row, len(columns))
		for j, field := range schema {
			rows[i][columns[j]] = row[field.ID]
		}
	}
	return rows, nil
}

// scan opens a live scan of a table filtered by where. Rows are keyed by the
// table id as in a select.
func (engine *Engine) scan(table *ps.Table, where sql.Expr, scope *Scope) (*op.TableScan, core.Cursor, *compiler, error) {
	scan := op.NewTableScan(table)
	var cursor core.Cursor = op.NewRename(scan, table.ID())
	c := engine.newCompiler(cursor.Schema(), scope)
	if where != nil {
		predicate, err := c.condition(where)
		if err != nil {
			return nil, nil, nil, err
		}
		cursor = op.NewFilter(cursor, predicate)
	}
	return scan, cursor, c, nil
}

type assignment struct {
	column string
	value  compiled
}

func (engine *Engine) update(s *sql.UpdateStatement, scope *Scope) (*Mutation, error) {
	table, err := engine.catalog.Get(s.Table)
	if err != nil {
		return nil, err
	}
	scan, cursor, c, err := engine.scan(table, s.Where, scope)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	def := table.Def()
	assignments := make([]assignment, len(s.Set))
	for i, set := range s.Set {
		index, err := def.Column(set.Column)
		if err != nil {
			return nil, err
		}
		column := def.Columns[index]
		value, err := c.compile(set.Value)
		if err != nil {
			return nil, err
		}
		if !core.Compatible(value.typ, column.Type) {
			return nil, core.SchemaErrorf(core.ErrIncompatibleType, "Column %s has incompatible type", column.ID)
		}
		assignments[i] = assignment{column: column.ID, value: value}
	}

	n := 0
	for {
		row, ok, err := cursor.Fetch()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		// every SET expression reads the row as it was before the update
		values := make(core.Row, len(assignments))
		for _, a := range assignments {
			if values[a.column], err = a.value.eval(row); err != nil {
				return nil, err
			}
		}
		if err := table.Update(scan.Current(), values); err != nil {
			return nil, err
		}
		n++
	}
	return affected(n), nil
}

func (engine *Engine) delete(s *sql.DeleteStatement, scope *Scope) (*Mutation, error) {
	table, err := engine.catalog.Get(s.Table)
	if err != nil {
		return nil, err
	}
	scan, cursor, _, err := engine.scan(table, s.Where, scope)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	n := 0
	for {
		_, ok, err := cursor.Fetch()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		table.Remove(scan.Current())
		n++
	}
	return affected(n), nil
}
