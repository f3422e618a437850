// Package MemDB provides an embeddable in-memory SQL query engine.
//
// Tables live in memory and queries are planned as trees of pull-based
// cursors. A git repository can optionally keep checkpoints of the whole
// catalog, so a database can be restored to any earlier state.
//
// # Quick Start
//
// Create an in-memory database:
//
//	instance := MemDB.Open(nil)
//	engine := instance.Engine(core.Identity{Name: "App", Email: "app@example.com"})
//
//	engine.Execute("CREATE TABLE users (id INT PRIMARY KEY AUTO_INCREMENT, name STRING)")
//	engine.Execute("INSERT INTO users (name) VALUES (?)", "Alice")
//
//	result, _ := engine.Execute("SELECT * FROM users WHERE name LIKE 'a%'")
//	result.Display(os.Stdout)
//
// Keep checkpoints in a repository on disk:
//
//	persistence, _ := ps.NewFilePersistence("/var/lib/memdb", nil)
//	engine := MemDB.Open(persistence).Engine(identity)
//	engine.Checkpoint("nightly")
//
// # Supported SQL
//
// MemDB supports a subset of SQL including:
//   - CREATE/DROP TABLE, SHOW TABLES, DESCRIBE
//   - INSERT ... VALUES and INSERT ... SELECT, UPDATE, DELETE
//   - SELECT with DISTINCT, cross joins and derived tables
//   - WHERE with comparisons, BETWEEN, LIKE and IS NULL
//   - GROUP BY, HAVING, ORDER BY, LIMIT, OFFSET
//   - Aggregate functions: SUM, AVG, MIN, MAX, COUNT, FIRST, LAST
//   - Scalar and correlated subqueries, UNION
//   - Placeholders (?) bound in order by prepared statements
package MemDB
