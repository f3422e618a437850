// Package db provides the SQL execution engine for MemDB.
//
// The Engine compiles parsed statements into trees of cursors from the op
// package and runs them against a ps.Catalog.
//
// # Engine Usage
//
//	engine := db.NewMemoryEngine()
//	_, err := engine.Execute("CREATE TABLE person (id INTEGER PRIMARY KEY AUTO_INCREMENT, name TEXT)")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cursor, err := engine.Query("SELECT name FROM person WHERE id = ?", 1)
//
// Query returns a lazily evaluated core.Cursor; Execute drains it into a Result.
//
// # Result Types
//
// There are two result types:
//   - QueryResult: returned by SELECT and UNION
//   - MutationResult: returned by CREATE TABLE, DROP TABLE, INSERT, UPDATE and DELETE
//
// # Prepared Statements
//
// Prepare parses a statement once and numbers its placeholders from 1 in
// the order they appear. Prepared statements are cached by SQL text.
//
//	stmt, _ := engine.Prepare("UPDATE person SET name = ? WHERE id = ?")
//	_, err = stmt.Query("Anton", 2)
package db
