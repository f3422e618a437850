package ps

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/nickyhof/MemDB/core"
)

// TableSnapshot is the exported form of one table: its column
// definitions (with auto-increment counters) and its rows in order.
type TableSnapshot struct {
	ID     string        `json:"id"`
	Schema []core.Column `json:"schema"`
	Data   []core.Row    `json:"data"`
}

// Snapshot is a portable document holding every table of a catalog.
type Snapshot struct {
	Tables []TableSnapshot `json:"tables"`
}

func (c *Catalog) Export() Snapshot {
	snapshot := Snapshot{Tables: []TableSnapshot{}}
	for _, t := range c.Tables() {
		snapshot.Tables = append(snapshot.Tables, t.Snapshot())
	}
	return snapshot
}

func (t *Table) Snapshot() TableSnapshot {
	data := make([]core.Row, len(t.rows))
	for i := range t.rows {
		data[i] = t.Row(i)
	}
	return TableSnapshot{ID: t.def.ID, Schema: t.Def().Columns, Data: data}
}

// Import rehydrates the tables of a snapshot, replacing tables with the same identifier.
func (c *Catalog) Import(snapshot Snapshot) error {
	tables := make([]*Table, 0, len(snapshot.Tables))
	for _, ts := range snapshot.Tables {
		t, err := restoreTable(ts)
		if err != nil {
			return err
		}
		tables = append(tables, t)
	}
	for _, t := range tables {
		c.Put(t)
	}
	return nil
}

func restoreTable(ts TableSnapshot) (*Table, error) {
	def := core.TableDef{ID: ts.ID, Columns: ts.Schema}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	t := newTable(def)
	for _, data := range ts.Data {
		row := make(core.Row, len(def.Columns))
		for _, column := range def.Columns {
			v, _ := lookup(data, column.ID)
			coerced, err := core.Coerce(v, column.Type)
			if err != nil {
				return nil, err
			}
			row[column.ID] = coerced
		}
		t.rows = append(t.rows, row)
	}
	if p := def.Primary(); p >= 0 && len(t.rows) > 0 {
		t.lastID = t.rows[len(t.rows)-1][def.Columns[p].ID]
	}
	return t, nil
}

func EncodeSnapshot(w io.Writer, snapshot Snapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snapshot)
}

func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var snapshot Snapshot
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}
