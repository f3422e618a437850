// Package sql provides SQL lexing and parsing for MemDB.
//
// The lexer tokenizes SQL text and the parser turns it into a statement
// tree of expressions that the db package compiles into cursors.
//
// # Parser Usage
//
//	statement, err := sql.Parse("SELECT name FROM person WHERE age > ?")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	count := sql.AssignParams(statement) // 1
//
// # Supported Statements
//
//   - SELECT [DISTINCT] ... FROM ... WHERE ... GROUP BY ... HAVING ... ORDER BY ... LIMIT ... OFFSET
//   - SELECT ... UNION [ALL] SELECT ...
//   - CREATE TABLE [IF NOT EXISTS] / DROP TABLE [IF EXISTS]
//   - INSERT INTO ... VALUES / INSERT INTO ... SELECT
//   - UPDATE ... SET ... WHERE / DELETE FROM ... WHERE
//   - SHOW TABLES / DESCRIBE table
//
// Placeholders ("?") are numbered from 1 in the order they appear in the
// text, including those inside subqueries.
package sql
