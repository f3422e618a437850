package op

import (
	"errors"

	"github.com/nickyhof/MemDB/core"
)

// Rename qualifies every column of its source with "<alias>.".
type Rename struct {
	source core.Cursor
	alias  string
	schema core.Schema
}

func NewRename(source core.Cursor, alias string) *Rename {
	return &Rename{source: source, alias: alias, schema: source.Schema().Prefixed(alias)}
}

func (r *Rename) Schema() core.Schema { return r.schema }
func (r *Rename) Reset() error        { return r.source.Reset() }
func (r *Rename) Close() error        { return r.source.Close() }

func (r *Rename) Fetch() (core.Row, bool, error) {
	row, ok, err := r.source.Fetch()
	if err != nil || !ok {
		return nil, false, err
	}
	out := make(core.Row, len(r.schema))
	for i, f := range r.source.Schema() {
		out[r.schema[i].ID] = row[f.ID]
	}
	return out, true, nil
}

// CrossJoin is the nested-loop product of two cursors. The right side is
// reset for every left row; an empty right side ends the join at once.
type CrossJoin struct {
	left, right core.Cursor
	schema      core.Schema
	leftRow     core.Row
	fresh       bool
	done        bool
}

func NewCrossJoin(left, right core.Cursor) *CrossJoin {
	schema := append(append(core.Schema{}, left.Schema()...), right.Schema()...)
	return &CrossJoin{left: left, right: right, schema: schema}
}

func (j *CrossJoin) Schema() core.Schema { return j.schema }

func (j *CrossJoin) Reset() error {
	j.leftRow = nil
	j.done = false
	return j.left.Reset()
}

func (j *CrossJoin) Fetch() (core.Row, bool, error) {
	for !j.done {
		if j.leftRow == nil {
			row, ok, err := j.left.Fetch()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				j.done = true
				break
			}
			if err := j.right.Reset(); err != nil {
				return nil, false, err
			}
			j.leftRow = row
			j.fresh = true
		}

		row, ok, err := j.right.Fetch()
		if err != nil {
			return nil, false, err
		}
		if ok {
			j.fresh = false
			out := j.leftRow.Clone()
			for k, v := range row {
				out[k] = v
			}
			return out, true, nil
		}
		if j.fresh {
			j.done = true
			break
		}
		j.leftRow = nil
	}
	return nil, false, nil
}

func (j *CrossJoin) Close() error {
	j.done = true
	return errors.Join(j.left.Close(), j.right.Close())
}

// Union yields every row of a, then every row of b.
type Union struct {
	a, b   core.Cursor
	second bool
}

func NewUnion(a, b core.Cursor) (*Union, error) {
	sa, sb := a.Schema(), b.Schema()
	if len(sa) != len(sb) {
		return nil, core.SchemaErrorf(core.ErrUnionShape, "Incompatible count of columns for UNION: %d and %d", len(sa), len(sb))
	}
	for i := range sa {
		if !core.Compatible(sa[i].Type, sb[i].Type) {
			return nil, core.SchemaErrorf(core.ErrUnionShape, "Incompatible types for UNION column %d: %s and %s", i+1, sa[i].Type, sb[i].Type)
		}
	}
	return &Union{a: a, b: b}, nil
}

func (u *Union) Schema() core.Schema { return u.a.Schema() }

func (u *Union) Reset() error {
	u.second = false
	return errors.Join(u.a.Reset(), u.b.Reset())
}

func (u *Union) Fetch() (core.Row, bool, error) {
	if !u.second {
		row, ok, err := u.a.Fetch()
		if err != nil || ok {
			return row, ok, err
		}
		u.second = true
	}
	row, ok, err := u.b.Fetch()
	if err != nil || !ok {
		return nil, false, err
	}
	// rows of b are re-keyed to the column ids of a
	out := make(core.Row, len(row))
	sa := u.a.Schema()
	for i, f := range u.b.Schema() {
		out[sa[i].ID] = row[f.ID]
	}
	return out, true, nil
}

func (u *Union) Close() error {
	return errors.Join(u.a.Close(), u.b.Close())
}

type Predicate func(core.Row) (bool, error)

// Filter passes through the rows of its source that satisfy the predicate.
type Filter struct {
	source    core.Cursor
	predicate Predicate
}

func NewFilter(source core.Cursor, predicate Predicate) *Filter {
	return &Filter{source: source, predicate: predicate}
}

func (f *Filter) Schema() core.Schema { return f.source.Schema() }
func (f *Filter) Reset() error        { return f.source.Reset() }
func (f *Filter) Close() error        { return f.source.Close() }

func (f *Filter) Fetch() (core.Row, bool, error) {
	for {
		row, ok, err := f.source.Fetch()
		if err != nil || !ok {
			return nil, false, err
		}
		keep, err := f.predicate(row)
		if err != nil {
			return nil, false, err
		}
		if keep {
			return row, true, nil
		}
	}
}

type Projector func(core.Row) (core.Row, error)

// Project maps every source row through a projector with a fixed output schema.
type Project struct {
	source    core.Cursor
	schema    core.Schema
	projector Projector
}

func NewProject(source core.Cursor, schema core.Schema, projector Projector) *Project {
	return &Project{source: source, schema: schema, projector: projector}
}

func (p *Project) Schema() core.Schema { return p.schema }
func (p *Project) Reset() error        { return p.source.Reset() }
func (p *Project) Close() error        { return p.source.Close() }

func (p *Project) Fetch() (core.Row, bool, error) {
	row, ok, err := p.source.Fetch()
	if err != nil || !ok {
		return nil, false, err
	}
	out, err := p.projector(row)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Distinct drops rows equal to one already yielded in the current walk.
type Distinct struct {
	source core.Cursor
	seen   map[string]struct{}
}

func NewDistinct(source core.Cursor) *Distinct {
	return &Distinct{source: source, seen: make(map[string]struct{})}
}

func (d *Distinct) Schema() core.Schema { return d.source.Schema() }
func (d *Distinct) Close() error        { return d.source.Close() }

func (d *Distinct) Reset() error {
	clear(d.seen)
	return d.source.Reset()
}

func (d *Distinct) Fetch() (core.Row, bool, error) {
	schema := d.source.Schema()
	values := make([]core.Value, len(schema))
	for {
		row, ok, err := d.source.Fetch()
		if err != nil || !ok {
			return nil, false, err
		}
		for i, f := range schema {
			values[i] = row[f.ID]
		}
		key := core.Key(values...)
		if _, dup := d.seen[key]; dup {
			continue
		}
		d.seen[key] = struct{}{}
		return row, true, nil
	}
}
