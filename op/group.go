package op

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/nickyhof/MemDB/core"
)

// Aggregate is one output column of a Group: the value fed to its accumulator
// is computed from each source row by Eval.
type Aggregate struct {
	ID   string
	Type core.ColumnType
	Kind AggregateKind
	Eval func(core.Row) (core.Value, error)
}

// KeyFunc computes the grouping key of a row. A nil KeyFunc puts every row in one group.
type KeyFunc func(core.Row) (string, error)

// Group aggregates its source. It drains the source on Reset (or on the
// first Fetch when never reset) and serves one finalised row per group in
// the order groups were first seen. No source rows means no groups.
type Group struct {
	source       core.Cursor
	key          KeyFunc
	aggregates   []Aggregate
	schema       core.Schema
	rows         []core.Row
	pos          int
	materialized bool
}

func NewGroup(source core.Cursor, key KeyFunc, aggregates []Aggregate) *Group {
	schema := make(core.Schema, len(aggregates))
	for i, a := range aggregates {
		schema[i] = core.Field{ID: a.ID, Type: a.Kind.ResultType(a.Type)}
	}
	return &Group{source: source, key: key, aggregates: aggregates, schema: schema}
}

func (g *Group) Schema() core.Schema { return g.schema }

func (g *Group) Reset() error {
	return g.materialize()
}

func (g *Group) Fetch() (core.Row, bool, error) {
	if !g.materialized {
		if err := g.materialize(); err != nil {
			return nil, false, err
		}
	}
	if g.pos >= len(g.rows) {
		return nil, false, nil
	}
	row := g.rows[g.pos].Clone()
	g.pos++
	return row, true, nil
}

func (g *Group) Close() error {
	g.pos = len(g.rows)
	return g.source.Close()
}

func (g *Group) materialize() error {
	g.rows, g.pos, g.materialized = nil, 0, true
	if err := g.source.Reset(); err != nil {
		return err
	}

	groups := linkedhashmap.New()
	values := make([]core.Value, len(g.aggregates))
	for {
		row, ok, err := g.source.Fetch()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		key := ""
		if g.key != nil {
			if key, err = g.key(row); err != nil {
				return err
			}
		}
		for i, a := range g.aggregates {
			if values[i], err = a.Eval(row); err != nil {
				return err
			}
		}

		if existing, found := groups.Get(key); found {
			for i, acc := range existing.([]Accumulator) {
				if err := acc.Add(values[i]); err != nil {
					return err
				}
			}
			continue
		}
		accs := make([]Accumulator, len(g.aggregates))
		for i, a := range g.aggregates {
			if accs[i], err = NewAccumulator(a.Kind, values[i]); err != nil {
				return err
			}
		}
		groups.Put(key, accs)
	}

	it := groups.Iterator()
	for it.Next() {
		row := make(core.Row, len(g.aggregates))
		for i, acc := range it.Value().([]Accumulator) {
			row[g.aggregates[i].ID] = acc.Result()
		}
		g.rows = append(g.rows, row)
	}
	return nil
}
