package ps

import (
	"slices"

	"github.com/nickyhof/MemDB/core"
)

// Observer is notified synchronously when a table's row positions change.
type Observer interface {
	RowRemoved(index int)
	RowInserted(length int)
}

// Table is an ordered, mutable row store. Insertion order is physical order.
type Table struct {
	def       core.TableDef
	rows      []core.Row
	observers []Observer
	lastID    core.Value
}

func newTable(def core.TableDef) *Table {
	columns := slices.Clone(def.Columns)
	for i, column := range columns {
		if column.AutoIncrement != nil {
			columns[i].AutoIncrement = core.Counter(*column.AutoIncrement)
		}
	}
	return &Table{def: core.TableDef{ID: def.ID, Columns: columns}}
}

func (t *Table) ID() string {
	return t.def.ID
}

// Def returns a copy of the table definition, including current auto-increment counters.
func (t *Table) Def() core.TableDef {
	return newTable(t.def).def
}

func (t *Table) Schema() core.Schema {
	return t.def.Schema()
}

func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of the row at index.
func (t *Table) Row(index int) core.Row {
	return t.rows[index].Clone()
}

// LastInsertID is the primary value of the most recently appended row.
func (t *Table) LastInsertID() core.Value {
	return t.lastID
}

func (t *Table) Subscribe(o Observer) {
	if slices.Contains(t.observers, o) {
		return
	}
	t.observers = append(t.observers, o)
}

func (t *Table) Unsubscribe(o Observer) {
	if i := slices.Index(t.observers, o); i >= 0 {
		t.observers = slices.Delete(t.observers, i, i+1)
	}
}

func (t *Table) Observers() int {
	return len(t.observers)
}

// Append stores a row. Missing columns get the auto-increment counter, the
// column default or the zero value of the column type, in that order.
// It returns the row's primary value, or nil when the table has no primary column.
func (t *Table) Append(values core.Row) (core.Value, error) {
	row := make(core.Row, len(t.def.Columns))
	for i := range t.def.Columns {
		column := &t.def.Columns[i]
		v, present := lookup(values, column.ID)
		if present {
			coerced, err := core.Coerce(v, column.Type)
			if err != nil {
				return nil, err
			}
			v = coerced
			if n, ok := v.(float64); ok && column.AutoIncrement != nil && int64(n) >= *column.AutoIncrement {
				*column.AutoIncrement = int64(n) + 1
			}
		} else {
			switch {
			case column.AutoIncrement != nil:
				v = float64(*column.AutoIncrement)
				*column.AutoIncrement++
			case column.Default != nil:
				v = column.Default
			default:
				v = zero(column.Type)
			}
		}
		row[column.ID] = v
	}

	t.rows = append(t.rows, row)
	var id core.Value
	if p := t.def.Primary(); p >= 0 {
		id = row[t.def.Columns[p].ID]
		t.lastID = id
	}
	for _, o := range slices.Clone(t.observers) {
		o.RowInserted(len(t.rows))
	}
	return id, nil
}

// Update overwrites fields of the row at index. Keys are matched case-insensitively.
func (t *Table) Update(index int, values core.Row) error {
	row := t.rows[index]
	for key, v := range values {
		i, err := t.def.Column(key)
		if err != nil {
			return err
		}
		column := t.def.Columns[i]
		coerced, err := core.Coerce(v, column.Type)
		if err != nil {
			return core.SchemaErrorf(core.ErrIncompatibleType, "Column %s has incompatible type", column.ID)
		}
		row[column.ID] = coerced
	}
	return nil
}

// Remove deletes the row at index and notifies every observer.
func (t *Table) Remove(index int) {
	t.rows = slices.Delete(t.rows, index, index+1)
	for _, o := range slices.Clone(t.observers) {
		o.RowRemoved(index)
	}
}

func lookup(values core.Row, id string) (core.Value, bool) {
	if v, ok := values[id]; ok {
		return v, true
	}
	for k, v := range values {
		if equalFold(k, id) {
			return v, true
		}
	}
	return nil, false
}

func zero(t core.ColumnType) core.Value {
	if t == core.NumberType {
		return 0.0
	}
	return ""
}
