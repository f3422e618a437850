package op

import (
	"strings"

	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/ps"
)

// TableScan walks a table's rows in physical order. While it is between its
// first fetch and exhaustion it observes the table, so deleting rows at or
// before its position neither skips nor repeats a row.
type TableScan struct {
	table  *ps.Table
	schema core.Schema
	pos    int
	active bool
	done   bool
}

func NewTableScan(table *ps.Table) *TableScan {
	return &TableScan{table: table, schema: table.Schema()}
}

func (s *TableScan) Schema() core.Schema {
	return s.schema
}

func (s *TableScan) Reset() error {
	s.deactivate()
	s.pos = 0
	s.done = false
	return nil
}

func (s *TableScan) Fetch() (core.Row, bool, error) {
	if s.done {
		return nil, false, nil
	}
	if !s.active {
		s.table.Subscribe(s)
		s.active = true
	}
	if s.pos >= s.table.Len() {
		s.deactivate()
		s.done = true
		return nil, false, nil
	}
	row := s.table.Row(s.pos)
	s.pos++
	return row, true, nil
}

// Current is the physical index of the row returned by the last Fetch.
func (s *TableScan) Current() int {
	return s.pos - 1
}

func (s *TableScan) Close() error {
	s.deactivate()
	s.done = true
	return nil
}

func (s *TableScan) RowRemoved(index int) {
	if index < s.pos {
		s.pos--
	}
}

func (s *TableScan) RowInserted(int) {}

func (s *TableScan) deactivate() {
	if s.active {
		s.table.Unsubscribe(s)
		s.active = false
	}
}

const (
	CatalogTables  = "TABLES"
	CatalogColumns = "COLUMNS"
)

func IsCatalogName(name string) bool {
	return strings.EqualFold(name, CatalogTables) || strings.EqualFold(name, CatalogColumns)
}

var (
	tablesSchema = core.Schema{
		{ID: "IDENTIFIER", Type: core.TextType},
	}
	columnsSchema = core.Schema{
		{ID: "TABLE_NAME", Type: core.TextType},
		{ID: "COLUMN_NAME", Type: core.TextType},
		{ID: "ORDINAL_POSITION", Type: core.NumberType},
		{ID: "DATA_TYPE", Type: core.TextType},
		{ID: "COMMENT", Type: core.TextType},
	}
)

// NewCatalogScan materialises the TABLES or COLUMNS view of the catalog.
func NewCatalogScan(catalog *ps.Catalog, name string) (*Rows, error) {
	var rows []core.Row
	switch strings.ToUpper(name) {
	case CatalogTables:
		for _, t := range catalog.Tables() {
			rows = append(rows, core.Row{"IDENTIFIER": t.ID()})
		}
		return NewRows(tablesSchema, rows), nil
	case CatalogColumns:
		for _, t := range catalog.Tables() {
			for i, column := range t.Def().Columns {
				rows = append(rows, core.Row{
					"TABLE_NAME":       t.ID(),
					"COLUMN_NAME":      column.ID,
					"ORDINAL_POSITION": float64(i + 1),
					"DATA_TYPE":        string(column.Type),
					"COMMENT":          column.Comment,
				})
			}
		}
		return NewRows(columnsSchema, rows), nil
	default:
		return nil, core.CatalogErrorf(core.ErrTableNotFound, "table %s does not exist", name)
	}
}
