package op

import (
	"errors"
	"sort"

	"github.com/nickyhof/MemDB/core"
)

type SortKey struct {
	Eval func(core.Row) (core.Value, error)
	Desc bool
}

// Sort materialises and stably orders its source once, at construction.
// Reset rewinds over that result without reading the source again.
type Sort struct {
	source core.Cursor
	rows   []core.Row
	pos    int
}

func NewSort(source core.Cursor, keys []SortKey) (*Sort, error) {
	type keyed struct {
		row    core.Row
		values []core.Value
	}
	var items []keyed
	for {
		row, ok, err := source.Fetch()
		if err != nil {
			return nil, errors.Join(err, source.Close())
		}
		if !ok {
			break
		}
		values := make([]core.Value, len(keys))
		for i, k := range keys {
			if values[i], err = k.Eval(row); err != nil {
				return nil, errors.Join(err, source.Close())
			}
		}
		items = append(items, keyed{row: row, values: values})
	}

	sort.SliceStable(items, func(a, b int) bool {
		for i, k := range keys {
			c := core.Order(items[a].values[i], items[b].values[i])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	rows := make([]core.Row, len(items))
	for i, item := range items {
		rows[i] = item.row
	}
	if err := source.Close(); err != nil {
		return nil, err
	}
	return &Sort{source: source, rows: rows}, nil
}

func (s *Sort) Schema() core.Schema { return s.source.Schema() }

func (s *Sort) Reset() error {
	s.pos = 0
	return nil
}

func (s *Sort) Fetch() (core.Row, bool, error) {
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.pos].Clone()
	s.pos++
	return row, true, nil
}

func (s *Sort) Close() error {
	s.pos = len(s.rows)
	return nil
}

// Skip discards the first n rows of its source at construction and on every Reset.
type Skip struct {
	source core.Cursor
	n      int
}

func NewSkip(source core.Cursor, n int) (*Skip, error) {
	s := &Skip{source: source, n: n}
	if err := s.skip(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Skip) skip() error {
	for i := 0; i < s.n; i++ {
		_, ok, err := s.source.Fetch()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return nil
}

func (s *Skip) Schema() core.Schema { return s.source.Schema() }
func (s *Skip) Close() error        { return s.source.Close() }

func (s *Skip) Reset() error {
	if err := s.source.Reset(); err != nil {
		return err
	}
	return s.skip()
}

func (s *Skip) Fetch() (core.Row, bool, error) {
	return s.source.Fetch()
}

// Limit yields at most n rows and closes its source as soon as the n-th row
// has been served. Reset starts a new walk over a reset source.
type Limit struct {
	source core.Cursor
	n      int
	served int
	closed bool
}

func NewLimit(source core.Cursor, n int) *Limit {
	return &Limit{source: source, n: n}
}

func (l *Limit) Schema() core.Schema { return l.source.Schema() }

func (l *Limit) Reset() error {
	l.served = 0
	l.closed = false
	return l.source.Reset()
}

func (l *Limit) Fetch() (core.Row, bool, error) {
	if l.served >= l.n {
		return nil, false, l.closeSource()
	}
	row, ok, err := l.source.Fetch()
	if err != nil || !ok {
		return nil, false, err
	}
	l.served++
	if l.served >= l.n {
		if err := l.closeSource(); err != nil {
			return nil, false, err
		}
	}
	return row, true, nil
}

func (l *Limit) closeSource() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return l.source.Close()
}

func (l *Limit) Close() error {
	return l.closeSource()
}
