// Package core provides the types shared by every MemDB layer.
//
// The package defines values, column types, schemas, rows, table
// definitions, the Cursor protocol implemented by storage scans and
// relational operators, and the categorised errors raised while
// compiling and executing statements.
//
// # Values
//
// A Value is a float64 (NUMBER), a string (TEXT or DATE) or nil (NULL).
// Rows map column ids to values:
//
//	row := core.Row{"person.Name": "Hans", "person.Age": 15.0}
//
// # Column Types
//
// Declared type names are normalised by ParseColumnType:
//   - NUMBER: INTEGER, INT, NUMBER, FLOAT, DOUBLE, REAL
//   - TEXT: TEXT, STRING, VARCHAR
//   - DATE: DATE, TIMESTAMP
//
// # Table Definition
//
//	def := core.TableDef{
//	    ID: "person",
//	    Columns: []core.Column{
//	        {ID: "ID", Type: core.NumberType, Primary: true, AutoIncrement: core.Counter(1)},
//	        {ID: "Name", Type: core.TextType},
//	        {ID: "Age", Type: core.NumberType, Default: 18.0},
//	    },
//	}
//
// # Cursors
//
// Every data source implements Cursor. Fetch returns ok == false once the
// cursor is exhausted:
//
//	for {
//	    row, ok, err := cursor.Fetch()
//	    if err != nil || !ok {
//	        break
//	    }
//	    fmt.Println(row)
//	}
//	cursor.Close()
package core
