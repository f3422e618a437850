package op

import "github.com/nickyhof/MemDB/core"

// Rows yields a fixed sequence of rows.
type Rows struct {
	schema core.Schema
	rows   []core.Row
	pos    int
}

func NewRows(schema core.Schema, rows []core.Row) *Rows {
	return &Rows{schema: schema, rows: rows}
}

// NewSingleValue yields one row holding v under id.
func NewSingleValue(id string, v core.Value) *Rows {
	return NewRows(core.Schema{{ID: id, Type: core.TypeOf(v)}}, []core.Row{{id: v}})
}

func (r *Rows) Schema() core.Schema {
	return r.schema
}

func (r *Rows) Reset() error {
	r.pos = 0
	return nil
}

func (r *Rows) Fetch() (core.Row, bool, error) {
	if r.pos >= len(r.rows) {
		return nil, false, nil
	}
	row := r.rows[r.pos].Clone()
	r.pos++
	return row, true, nil
}

func (r *Rows) Close() error {
	r.pos = len(r.rows)
	return nil
}

// SingleRow yields exactly one row which can be rebound between walks.
// It feeds the enclosing row into correlated subqueries.
type SingleRow struct {
	schema core.Schema
	row    core.Row
	done   bool
}

func NewSingleRow(schema core.Schema) *SingleRow {
	return &SingleRow{schema: schema, row: core.Row{}}
}

// Bind replaces the row and rewinds.
func (s *SingleRow) Bind(row core.Row) {
	s.row = row
	s.done = false
}

func (s *SingleRow) Schema() core.Schema {
	return s.schema
}

func (s *SingleRow) Reset() error {
	s.done = false
	return nil
}

func (s *SingleRow) Fetch() (core.Row, bool, error) {
	if s.done {
		return nil, false, nil
	}
	s.done = true
	out := make(core.Row, len(s.schema))
	for _, f := range s.schema {
		out[f.ID] = s.row[f.ID]
	}
	return out, true, nil
}

func (s *SingleRow) Close() error {
	s.done = true
	return nil
}
