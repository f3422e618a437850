// Package op implements the physical operators MemDB composes into query plans.
//
// Every operator is a core.Cursor. Sources read storage or literal rows:
//
//	scan := op.NewTableScan(table)        // live scan, stable under deletes
//	tables, _ := op.NewCatalogScan(catalog, "TABLES")
//	one := op.NewSingleValue("VALUE", 1.0)
//
// Relational operators wrap other cursors:
//
//	renamed := op.NewRename(scan, "person")
//	filtered := op.NewFilter(renamed, predicate)
//	sorted, err := op.NewSort(filtered, []op.SortKey{{Eval: age, Desc: true}})
//	page, err := op.NewSkip(sorted, 10)
//	limited := op.NewLimit(page, 5)
//
// Sort and Skip do their work at construction; Group materialises on
// Reset and on its first Fetch. Close releases table observers and
// closes every child.
package op
