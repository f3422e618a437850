package sql

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nickyhof/MemDB/core"
)

func col(name string) Expr { return &ColumnRef{Name: name} }

func num(v float64) Expr { return &Literal{Value: v} }

func str(v string) Expr { return &Literal{Value: v} }

func TestParser(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected Statement
	}{
		{
			"select wildcard",
			"SELECT * FROM test",
			&SelectStatement{
				Columns: []SelectItem{{Expr: &Star{}}},
				From:    []TableRef{{Name: "test"}},
			},
		},
		{
			"select qualified wildcard and alias",
			"SELECT t.*, a AS x, b y FROM test t",
			&SelectStatement{
				Columns: []SelectItem{{Expr: &Star{Table: "t"}}, {Expr: col("a"), Alias: "x"}, {Expr: col("b"), Alias: "y"}},
				From:    []TableRef{{Name: "test", Alias: "t"}},
			},
		},
		{
			"select without from",
			"SELECT 1 + 2 * 3",
			&SelectStatement{
				Columns: []SelectItem{{Expr: &Arith{Op: "+", Left: num(1), Right: &Arith{Op: "*", Left: num(2), Right: num(3)}}}},
			},
		},
		{
			"select where precedence",
			"SELECT a FROM t WHERE a = 1 OR NOT b > 2 AND c <> 'x'",
			&SelectStatement{
				Columns: []SelectItem{{Expr: col("a")}},
				From:    []TableRef{{Name: "t"}},
				Where: &Logical{
					Op:   "OR",
					Left: &Compare{Op: "=", Left: col("a"), Right: num(1)},
					Right: &Logical{
						Op:    "AND",
						Left:  &NotExpr{Operand: &Compare{Op: ">", Left: col("b"), Right: num(2)}},
						Right: &Compare{Op: "<>", Left: col("c"), Right: str("x")},
					},
				},
			},
		},
		{
			"select between like is null",
			"SELECT a FROM t WHERE a BETWEEN 1 AND 2 AND b NOT LIKE 'x%' AND c IS NOT NULL",
			&SelectStatement{
				Columns: []SelectItem{{Expr: col("a")}},
				From:    []TableRef{{Name: "t"}},
				Where: &Logical{
					Op: "AND",
					Left: &Logical{
						Op:    "AND",
						Left:  &BetweenExpr{Operand: col("a"), Low: num(1), High: num(2)},
						Right: &NotExpr{Operand: &Compare{Op: "LIKE", Left: col("b"), Right: str("x%")}},
					},
					Right: &IsNull{Operand: col("c"), Not: true},
				},
			},
		},
		{
			"select group having order limit",
			"SELECT name, COUNT(*) FROM t GROUP BY name HAVING COUNT(*) > 1 ORDER BY name DESC, 2 LIMIT 10 OFFSET 5",
			&SelectStatement{
				Columns: []SelectItem{{Expr: col("name")}, {Expr: &Call{Name: "COUNT", Star: true}}},
				From:    []TableRef{{Name: "t"}},
				GroupBy: []Expr{col("name")},
				Having:  &Compare{Op: ">", Left: &Call{Name: "COUNT", Star: true}, Right: num(1)},
				OrderBy: []OrderItem{{Expr: col("name"), Desc: true}, {Expr: num(2)}},
				Limit:   num(10),
				Offset:  num(5),
			},
		},
		{
			"select limit offset comma",
			"SELECT a FROM t LIMIT 5, 10",
			&SelectStatement{
				Columns: []SelectItem{{Expr: col("a")}},
				From:    []TableRef{{Name: "t"}},
				Limit:   num(10),
				Offset:  num(5),
			},
		},
		{
			"select distinct with cross join and subquery",
			"SELECT DISTINCT a.x FROM a, (SELECT y FROM b) AS s",
			&SelectStatement{
				Distinct: true,
				Columns:  []SelectItem{{Expr: col("a.x")}},
				From: []TableRef{
					{Name: "a"},
					{Subquery: &SelectStatement{Columns: []SelectItem{{Expr: col("y")}}, From: []TableRef{{Name: "b"}}}, Alias: "s"},
				},
			},
		},
		{
			"select scalar subquery and unary minus",
			"SELECT -a, (SELECT MAX(b) FROM u) FROM t",
			&SelectStatement{
				Columns: []SelectItem{
					{Expr: &Negate{Operand: col("a")}},
					{Expr: &Subquery{Query: &SelectStatement{
						Columns: []SelectItem{{Expr: &Call{Name: "MAX", Args: []Expr{col("b")}}}},
						From:    []TableRef{{Name: "u"}},
					}}},
				},
				From: []TableRef{{Name: "t"}},
			},
		},
		{
			"union all",
			"SELECT a FROM t UNION ALL SELECT b FROM u",
			&UnionStatement{
				Left:  &SelectStatement{Columns: []SelectItem{{Expr: col("a")}}, From: []TableRef{{Name: "t"}}},
				Right: &SelectStatement{Columns: []SelectItem{{Expr: col("b")}}, From: []TableRef{{Name: "u"}}},
				All:   true,
			},
		},
		{
			"create table",
			"CREATE TABLE IF NOT EXISTS person (id INTEGER PRIMARY KEY AUTO_INCREMENT, name VARCHAR(40) DEFAULT 'x' COMMENT 'full name', age NUMBER DEFAULT -1)",
			&CreateTableStatement{
				Table:       "person",
				IfNotExists: true,
				Columns: []ColumnDef{
					{Name: "id", TypeName: "INTEGER", Primary: true, AutoIncrement: true},
					{Name: "name", TypeName: "VARCHAR", Default: str("x"), Comment: "full name"},
					{Name: "age", TypeName: "NUMBER", Default: &Negate{Operand: num(1)}},
				},
			},
		},
		{
			"create table with primary key constraint",
			"CREATE TABLE t (a TEXT, b TEXT, PRIMARY KEY (b))",
			&CreateTableStatement{
				Table:   "t",
				Columns: []ColumnDef{{Name: "a", TypeName: "TEXT"}, {Name: "b", TypeName: "TEXT", Primary: true}},
			},
		},
		{
			"drop table",
			"DROP TABLE IF EXISTS t;",
			&DropTableStatement{Table: "t", IfExists: true},
		},
		{
			"insert values",
			"INSERT INTO t (a, b) VALUES (1, 'x'), (2, NULL)",
			&InsertStatement{
				Table:   "t",
				Columns: []string{"a", "b"},
				Rows:    [][]Expr{{num(1), str("x")}, {num(2), &Literal{}}},
			},
		},
		{
			"insert select",
			"INSERT INTO t SELECT * FROM u",
			&InsertStatement{
				Table:  "t",
				Select: &SelectStatement{Columns: []SelectItem{{Expr: &Star{}}}, From: []TableRef{{Name: "u"}}},
			},
		},
		{
			"update",
			"UPDATE t SET a = a + 1, b = 'y' WHERE id = 3",
			&UpdateStatement{
				Table: "t",
				Set: []Assignment{
					{Column: "a", Value: &Arith{Op: "+", Left: col("a"), Right: num(1)}},
					{Column: "b", Value: str("y")},
				},
				Where: &Compare{Op: "=", Left: col("id"), Right: num(3)},
			},
		},
		{
			"delete",
			"DELETE FROM t WHERE `select` = 'it''s'",
			&DeleteStatement{Table: "t", Where: &Compare{Op: "=", Left: col("select"), Right: str("it's")}},
		},
		{
			"show tables",
			"SHOW TABLES",
			&SelectStatement{Columns: []SelectItem{{Expr: &Star{}}}, From: []TableRef{{Name: "TABLES"}}},
		},
		{
			"describe",
			"DESCRIBE Person",
			&SelectStatement{
				Columns: []SelectItem{{Expr: &Star{}}},
				From:    []TableRef{{Name: "COLUMNS"}},
				Where: &Compare{
					Op:    "=",
					Left:  &Call{Name: "LOWER", Args: []Expr{col("TABLE_NAME")}},
					Right: str("person"),
				},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual, err := Parse(test.sql)

			if err != nil {
				t.Errorf("Test Failed: Unexpected error: %v", err)
				return
			}

			if !reflect.DeepEqual(actual, test.expected) {
				t.Errorf("Test Failed: Expected %+v, got %+v", test.expected, actual)
			}
		})
	}
}

func TestParserErrors(t *testing.T) {
	tests := []string{
		"",
		"SELECT",
		"SELECT a FROM",
		"SELECT a FROM t WHERE",
		"SELECT (a FROM t",
		"SELECT a b c FROM t",
		"INSERT t VALUES (1)",
		"CREATE TABLE t (a)",
		"DROP t",
		"UPDATE t a = 1",
		"SELECT 'unterminated",
		"SELECT a FROM t; SELECT b FROM t",
	}

	for _, sql := range tests {
		t.Run(sql, func(t *testing.T) {
			_, err := Parse(sql)
			if err == nil {
				t.Fatalf("Test Failed: Expected error for %q", sql)
			}
			if category, _ := core.CategoryOf(err); category != core.ParseError {
				t.Errorf("Test Failed: Expected parse error, got %v", err)
			}
			if !errors.Is(err, core.ErrSyntax) {
				t.Errorf("Test Failed: Expected ErrSyntax, got %v", err)
			}
		})
	}
}

func TestAssignParams(t *testing.T) {
	tests := []struct {
		sql   string
		count int
	}{
		{"SELECT a FROM t", 0},
		{"SELECT ? FROM t WHERE a = ? AND b = ?", 3},
		{"SELECT a FROM t WHERE a = (SELECT ? FROM u WHERE b = ?) AND c = ?", 3},
		{"INSERT INTO t VALUES (?, ?), (?, ?)", 4},
		{"UPDATE t SET a = ? WHERE b = ?", 2},
		{"SELECT a FROM t LIMIT ?, ?", 2},
	}

	for _, test := range tests {
		t.Run(test.sql, func(t *testing.T) {
			statement, err := Parse(test.sql)
			if err != nil {
				t.Fatalf("Test Failed: Unexpected error: %v", err)
			}
			if count := AssignParams(statement); count != test.count {
				t.Errorf("Test Failed: Expected %d params, got %d", test.count, count)
			}
		})
	}
}

func TestAssignParamsOrder(t *testing.T) {
	statement, err := Parse("SELECT a FROM t WHERE a = (SELECT ? FROM u) AND b = ? LIMIT ?, ?")
	if err != nil {
		t.Fatalf("Test Failed: Unexpected error: %v", err)
	}
	AssignParams(statement)

	selectStatement := statement.(*SelectStatement)
	where := selectStatement.Where.(*Logical)
	inner := where.Left.(*Compare).Right.(*Subquery).Query.(*SelectStatement)
	if index := inner.Columns[0].Expr.(*Param).Index; index != 1 {
		t.Errorf("Test Failed: Expected subquery param 1, got %d", index)
	}
	if index := where.Right.(*Compare).Right.(*Param).Index; index != 2 {
		t.Errorf("Test Failed: Expected where param 2, got %d", index)
	}
	if index := selectStatement.Offset.(*Param).Index; index != 3 {
		t.Errorf("Test Failed: Expected offset param 3, got %d", index)
	}
	if index := selectStatement.Limit.(*Param).Index; index != 4 {
		t.Errorf("Test Failed: Expected limit param 4, got %d", index)
	}
}

func TestLexer(t *testing.T) {
	tokens := Tokenize("SELECT t.*, `order`, 'it''s', 1.5 -- trailing\nFROM t WHERE a <= ? AND b != 2")
	expected := []TokenType{
		Select, Wildcard, Comma, Identifier, Comma, String, Comma, Number,
		From, Identifier, Where, Identifier, LessThanOrEqual, Placeholder, And, Identifier, NotEquals, Number, EOF,
	}

	if len(tokens) != len(expected) {
		t.Fatalf("Test Failed: Expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i, token := range tokens {
		if token.Type != expected[i] {
			t.Errorf("Test Failed: Token %d expected %v, got %v", i, expected[i], token)
		}
	}
	if tokens[1].Value != "t.*" || tokens[3].Value != "order" || tokens[5].Value != "it's" {
		t.Errorf("Test Failed: Unexpected token values %v", tokens)
	}
}
