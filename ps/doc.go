// Package ps provides table storage and snapshot persistence for MemDB.
//
// # Catalog and Tables
//
// A Catalog owns every table of an engine. Tables keep their rows in
// insertion order and notify registered Observers when a row is removed
// or appended, which is how open scans keep their position stable:
//
//	catalog := ps.NewCatalog()
//	table, err := catalog.Create(def)
//	id, err := table.Append(core.Row{"Name": "Hans"})
//
// # Snapshots
//
// Export and Import move the whole catalog in and out of a Snapshot
// document, which EncodeSnapshot and DecodeSnapshot serialise as JSON.
//
// # Checkpoints
//
// Persistence stores snapshots as git commits using go-git, so every
// checkpoint can be listed, tagged, restored and pushed to a remote:
//
//	persistence, err := ps.NewFilePersistence("/path/to/data", nil)
//	txn, err := persistence.SaveSnapshot(catalog.Export(), identity, "nightly")
//	snapshot, err := persistence.LoadSnapshot(txn.Id)
//
// Branch and Checkout keep separate lines of checkpoints. Checkout only
// moves HEAD; the caller loads the branch's snapshot.
package ps
