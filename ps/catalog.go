package ps

import (
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/logging"
)

// Catalog owns every table of an engine. Identifiers are case-insensitive and
// tables enumerate in creation order.
type Catalog struct {
	tables *linkedhashmap.Map
}

func NewCatalog() *Catalog {
	return &Catalog{tables: linkedhashmap.New()}
}

func key(id string) string {
	return strings.ToLower(id)
}

func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

func (c *Catalog) Has(id string) bool {
	_, found := c.tables.Get(key(id))
	return found
}

func (c *Catalog) Get(id string) (*Table, error) {
	t, found := c.tables.Get(key(id))
	if !found {
		return nil, core.CatalogErrorf(core.ErrTableNotFound, "table %s does not exist", id)
	}
	return t.(*Table), nil
}

// Create registers a new table after validating its definition.
func (c *Catalog) Create(def core.TableDef) (*Table, error) {
	if c.Has(def.ID) {
		return nil, core.CatalogErrorf(core.ErrTableExists, "table %s already exists", def.ID)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	t := newTable(def)
	c.tables.Put(key(def.ID), t)
	logging.WithTable(def.ID).Info("table created", "columns", len(def.Columns))
	return t, nil
}

// Drop forgets the table. Cursors still holding it keep reading its rows.
func (c *Catalog) Drop(id string) error {
	if !c.Has(id) {
		return core.CatalogErrorf(core.ErrTableNotFound, "table %s does not exist", id)
	}
	c.tables.Remove(key(id))
	logging.WithTable(id).Info("table dropped")
	return nil
}

// Put installs t, replacing any table with the same identifier in place.
func (c *Catalog) Put(t *Table) {
	c.tables.Put(key(t.ID()), t)
}

func (c *Catalog) Tables() []*Table {
	values := c.tables.Values()
	tables := make([]*Table, len(values))
	for i, v := range values {
		tables[i] = v.(*Table)
	}
	return tables
}

func (c *Catalog) Clear() {
	c.tables.Clear()
}
