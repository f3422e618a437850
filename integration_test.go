package MemDB

import (
	"errors"
	"testing"

	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/db"
	"github.com/nickyhof/MemDB/ps"
)

// TestFunc is the signature for test functions that work with any persistence
type TestFunc func(t *testing.T, engine *db.Engine)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

// runWithBothPersistence runs a test function against a memory and a file repository
func runWithBothPersistence(t *testing.T, testFunc TestFunc) {
	t.Run("Memory", func(t *testing.T) {
		persistence, err := ps.NewMemoryPersistence()
		if err != nil {
			t.Fatalf("Failed to initialize memory persistence: %v", err)
		}
		testFunc(t, Open(persistence).Engine(testIdentity))
	})

	t.Run("File", func(t *testing.T) {
		persistence, err := ps.NewFilePersistence(t.TempDir(), nil)
		if err != nil {
			t.Fatalf("Failed to initialize file persistence: %v", err)
		}
		testFunc(t, Open(persistence).Engine(testIdentity))
	})
}

func execute(t *testing.T, engine *db.Engine, sql string, args ...any) db.Result {
	t.Helper()
	result, err := engine.Execute(sql, args...)
	if err != nil {
		t.Fatalf("Failed to execute %q: %v", sql, err)
	}
	return result
}

func query(t *testing.T, engine *db.Engine, sql string, args ...any) db.QueryResult {
	t.Helper()
	return execute(t, engine, sql, args...).(db.QueryResult)
}

func setupCompany(t *testing.T, engine *db.Engine) {
	execute(t, engine, "CREATE TABLE employees (id INT PRIMARY KEY, name STRING, department STRING, salary INT)")
	execute(t, engine, "CREATE TABLE departments (id INT PRIMARY KEY AUTO_INCREMENT, name STRING, budget NUMBER DEFAULT 100000)")

	employees := []string{
		"INSERT INTO employees (id, name, department, salary) VALUES (1, 'Alice', 'Engineering', 80000)",
		"INSERT INTO employees (id, name, department, salary) VALUES (2, 'Bob', 'Engineering', 75000)",
		"INSERT INTO employees (id, name, department, salary) VALUES (3, 'Charlie', 'Sales', 60000)",
		"INSERT INTO employees (id, name, department, salary) VALUES (4, 'Diana', 'Marketing', 65000)",
		"INSERT INTO employees (id, name, department, salary) VALUES (5, 'Eve', 'Engineering', 90000)",
	}
	for _, sql := range employees {
		execute(t, engine, sql)
	}
	execute(t, engine, "INSERT INTO departments (name) VALUES ('Engineering'), ('Sales'), ('Marketing')")
}

// TestIntegrationWorkflow tests a complete database workflow
func TestIntegrationWorkflow(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, engine *db.Engine) {
		setupCompany(t, engine)

		qr := query(t, engine, "SELECT name, salary FROM employees WHERE department = 'Engineering' ORDER BY salary DESC")
		if qr.RecordsRead != 3 {
			t.Fatalf("Expected 3 engineers, got %d", qr.RecordsRead)
		}
		if qr.Rows[0]["employees.name"] != "Eve" {
			t.Errorf("Expected Eve first, got %v", qr.Rows[0]["employees.name"])
		}

		// cross join with a join condition
		qr = query(t, engine, "SELECT e.name, d.budget FROM employees e, departments d WHERE e.department = d.name AND d.id = 2")
		if qr.RecordsRead != 1 || qr.Rows[0]["e.name"] != "Charlie" || qr.Rows[0]["d.budget"] != 100000.0 {
			t.Errorf("Expected Charlie in Sales, got %v", qr.Rows)
		}

		mr := execute(t, engine, "UPDATE employees SET salary = salary + 5000 WHERE department = 'Sales'").(db.MutationResult)
		if mr.NumRows != 1 {
			t.Errorf("Expected 1 updated row, got %d", mr.NumRows)
		}
		if v := query(t, engine, "SELECT salary FROM employees WHERE id = 3").Value(); v != 65000.0 {
			t.Errorf("Expected raised salary, got %v", v)
		}

		mr = execute(t, engine, "DELETE FROM employees WHERE salary <= 65000").(db.MutationResult)
		if mr.NumRows != 2 {
			t.Errorf("Expected 2 deleted rows, got %d", mr.NumRows)
		}
		if n := query(t, engine, "SELECT * FROM employees").RecordsRead; n != 3 {
			t.Errorf("Expected 3 remaining employees, got %d", n)
		}
	})
}

// TestIntegrationAggregates tests aggregate functions with GROUP BY and HAVING
func TestIntegrationAggregates(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, engine *db.Engine) {
		setupCompany(t, engine)

		qr := query(t, engine, "SELECT COUNT(*) AS n, SUM(salary) AS total, AVG(salary) AS average, MIN(salary) AS low, MAX(salary) AS high FROM employees")
		row := qr.Rows[0]
		if row["n"] != 5.0 || row["total"] != 370000.0 || row["average"] != 74000.0 || row["low"] != 60000.0 || row["high"] != 90000.0 {
			t.Errorf("Unexpected aggregates: %v", row)
		}

		qr = query(t, engine, "SELECT department, COUNT(*) AS n FROM employees GROUP BY department HAVING COUNT(*) > 1")
		if qr.RecordsRead != 1 || qr.Rows[0]["employees.department"] != "Engineering" || qr.Rows[0]["n"] != 3.0 {
			t.Errorf("Expected Engineering with 3 employees, got %v", qr.Rows)
		}

		qr = query(t, engine, "SELECT department FROM employees GROUP BY department ORDER BY MAX(salary)")
		expected := []string{"Sales", "Marketing", "Engineering"}
		for i, name := range expected {
			if qr.Rows[i]["employees.department"] != name {
				t.Errorf("Expected %s at %d, got %v", name, i, qr.Rows[i])
			}
		}
	})
}

// TestIntegrationDescribe tests SHOW TABLES and DESCRIBE
func TestIntegrationDescribe(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, engine *db.Engine) {
		setupCompany(t, engine)

		qr := query(t, engine, "SHOW TABLES")
		if qr.RecordsRead != 2 || qr.Rows[0]["TABLES.IDENTIFIER"] != "employees" {
			t.Errorf("Expected employees and departments, got %v", qr.Rows)
		}

		qr = query(t, engine, "DESCRIBE departments")
		if qr.RecordsRead != 3 {
			t.Fatalf("Expected 3 columns, got %d", qr.RecordsRead)
		}
		if qr.Rows[0]["COLUMNS.COLUMN_NAME"] != "id" || qr.Rows[2]["COLUMNS.DATA_TYPE"] != "NUMBER" {
			t.Errorf("Unexpected column description: %v", qr.Rows)
		}
	})
}

// TestIntegrationSubqueries tests derived tables and scalar subqueries
func TestIntegrationSubqueries(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, engine *db.Engine) {
		setupCompany(t, engine)

		qr := query(t, engine, "SELECT name FROM employees WHERE salary > (SELECT AVG(salary) FROM employees) ORDER BY name")
		if qr.RecordsRead != 3 || qr.Rows[0]["employees.name"] != "Alice" || qr.Rows[2]["employees.name"] != "Eve" {
			t.Errorf("Expected Alice, Bob and Eve, got %v", qr.Rows)
		}

		qr = query(t, engine, "SELECT d.name, (SELECT COUNT(*) FROM employees e WHERE e.department = d.name) AS n FROM departments d")
		counts := map[core.Value]core.Value{}
		for _, row := range qr.Rows {
			counts[row["d.name"]] = row["n"]
		}
		if counts["Engineering"] != 3.0 || counts["Sales"] != 1.0 || counts["Marketing"] != 1.0 {
			t.Errorf("Unexpected department counts: %v", counts)
		}

		qr = query(t, engine, "SELECT t.top FROM (SELECT MAX(salary) AS top FROM employees) t")
		if qr.Value() != 90000.0 {
			t.Errorf("Expected 90000, got %v", qr.Value())
		}
	})
}

// TestIntegrationOffsetLimit tests pagination with placeholders
func TestIntegrationOffsetLimit(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, engine *db.Engine) {
		setupCompany(t, engine)

		stmt, err := engine.Prepare("SELECT id FROM employees ORDER BY id LIMIT ? OFFSET ?")
		if err != nil {
			t.Fatalf("Failed to prepare: %v", err)
		}
		for page := 0; page < 3; page++ {
			result, err := stmt.Execute(2, page*2)
			if err != nil {
				t.Fatalf("Failed to read page %d: %v", page, err)
			}
			qr := result.(db.QueryResult)
			if qr.RecordsRead == 0 || qr.Rows[0]["employees.id"] != float64(page*2+1) {
				t.Errorf("Unexpected page %d: %v", page, qr.Rows)
			}
		}
	})
}

// TestIntegrationErrorHandling tests error categories surfaced by the engine
func TestIntegrationErrorHandling(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, engine *db.Engine) {
		execute(t, engine, "CREATE TABLE users (id INT PRIMARY KEY, name STRING)")

		tests := []struct {
			sql      string
			kind     error
			category core.Category
		}{
			{"SELECT * FROM nonexistent", core.ErrTableNotFound, core.CatalogError},
			{"SELEKT * FROM users", core.ErrSyntax, core.ParseError},
			{"SELECT nope FROM users", core.ErrUnknownIdentifier, core.SchemaError},
			{"CREATE TABLE users (id INT)", core.ErrTableExists, core.CatalogError},
			{"SELECT 'a' * 2", core.ErrNotNumeric, core.EvalError},
		}
		for _, test := range tests {
			_, err := engine.Execute(test.sql)
			if !errors.Is(err, test.kind) {
				t.Errorf("%s: expected %v, got %v", test.sql, test.kind, err)
				continue
			}
			if category, _ := core.CategoryOf(err); category != test.category {
				t.Errorf("%s: expected category %v, got %v", test.sql, test.category, category)
			}
		}
	})
}

// TestCheckpointReopen tests that checkpointed data survives reopening the repository
func TestCheckpointReopen(t *testing.T) {
	dir := t.TempDir()

	persistence1, err := ps.NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to open persistence: %v", err)
	}
	engine1 := Open(persistence1).Engine(testIdentity)
	execute(t, engine1, "CREATE TABLE data (id INT PRIMARY KEY AUTO_INCREMENT, val STRING)")
	execute(t, engine1, "INSERT INTO data (val) VALUES ('hello'), ('world')")
	if _, err := engine1.Checkpoint("two rows"); err != nil {
		t.Fatalf("Failed to checkpoint: %v", err)
	}
	// not checkpointed
	execute(t, engine1, "INSERT INTO data (val) VALUES ('lost')")

	persistence2, err := ps.NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to reopen persistence: %v", err)
	}
	engine2 := Open(persistence2).Engine(testIdentity)

	qr := query(t, engine2, "SELECT val FROM data ORDER BY id")
	if qr.RecordsRead != 2 || qr.Rows[1]["data.val"] != "world" {
		t.Errorf("Expected the checkpointed rows, got %v", qr.Rows)
	}
	mr := execute(t, engine2, "INSERT INTO data (val) VALUES ('again')").(db.MutationResult)
	if mr.InsertID != 3.0 {
		t.Errorf("Expected insert_id 3, got %v", mr.InsertID)
	}
}

// TestOpenWithoutPersistence tests a purely in-memory instance
func TestOpenWithoutPersistence(t *testing.T) {
	engine := Open(nil).Engine(testIdentity)
	execute(t, engine, "CREATE TABLE t (x NUMBER)")
	execute(t, engine, "INSERT INTO t VALUES (1)")

	if v := query(t, engine, "SELECT x FROM t").Value(); v != 1.0 {
		t.Errorf("Expected 1, got %v", v)
	}
	if _, err := engine.Checkpoint("x"); !errors.Is(err, ps.ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}
