package core

// Cursor is a resettable, closable, pull-based sequence of rows with a fixed schema.
//
// Fetch returns ok == false once exhausted and keeps doing so until Reset.
// After Close only Reset and Schema are valid.
type Cursor interface {
	Reset() error
	Fetch() (row Row, ok bool, err error)
	Close() error
	Schema() Schema
}

// Drain fetches every remaining row of c. It does not close c.
func Drain(c Cursor) ([]Row, error) {
	var rows []Row
	for {
		row, ok, err := c.Fetch()
		if err != nil {
			return rows, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}
