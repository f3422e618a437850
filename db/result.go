package db

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nickyhof/MemDB/core"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	MutationResultType
)

type Result interface {
	Type() ResultType
	Display(w io.Writer)
}

// QueryResult holds the drained rows of a query.
type QueryResult struct {
	Columns          []string
	Rows             []core.Row
	RecordsRead      int
	ExecutionTimeSec float64
}

// MutationResult reports what a statement changed. Value is the table id
// returned by CREATE TABLE.
type MutationResult struct {
	Value            core.Value
	InsertID         core.Value
	NumRows          int
	ExecutionTimeSec float64
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result MutationResult) Type() ResultType {
	return MutationResultType
}

// collect drains and closes cursor.
func collect(cursor core.Cursor, start time.Time) (Result, error) {
	if mutation, ok := cursor.(*Mutation); ok {
		row, _, err := mutation.Fetch()
		if err = errors.Join(err, mutation.Close()); err != nil {
			return nil, err
		}
		result := MutationResult{
			InsertID:         mutation.InsertID,
			NumRows:          mutation.NumRows,
			ExecutionTimeSec: time.Since(start).Seconds(),
		}
		if v, ok := row["VALUE"]; ok {
			result.Value = v
		}
		return result, nil
	}

	rows, err := core.Drain(cursor)
	if err = errors.Join(err, cursor.Close()); err != nil {
		return nil, err
	}
	return QueryResult{
		Columns:          cursor.Schema().IDs(),
		Rows:             rows,
		RecordsRead:      len(rows),
		ExecutionTimeSec: time.Since(start).Seconds(),
	}, nil
}

// Data renders every row as text, NULL as "NULL".
func (result QueryResult) Data() [][]string {
	data := make([][]string, len(result.Rows))
	for i, row := range result.Rows {
		data[i] = make([]string, len(result.Columns))
		for j, column := range result.Columns {
			if v := row[column]; v != nil {
				data[i][j] = core.ToText(v)
			} else {
				data[i][j] = "NULL"
			}
		}
	}
	return data
}

// Value returns the first column of the first row, or nil.
func (result QueryResult) Value() core.Value {
	if len(result.Rows) == 0 || len(result.Columns) == 0 {
		return nil
	}
	return result.Rows[0][result.Columns[0]]
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	switch {
	case secs < 0.001:
		return "<1ms"
	case secs < 0.01:
		return fmt.Sprintf("%.1fms", secs*1000)
	case secs < 1:
		return fmt.Sprintf("%dms", int(secs*1000))
	case secs < 10:
		return fmt.Sprintf("%.1fs", secs)
	case secs < 60:
		return fmt.Sprintf("%ds", int(secs))
	}
	mins, rest := int(secs/60), int(secs)%60
	if rest == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, rest)
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result MutationResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result QueryResult) Display(w io.Writer) {
	if len(result.Columns) > 0 {
		table := NewTable(w)
		table.Header(result.Columns)
		table.Bulk(result.Data())
		table.Render()
	}
	fmt.Fprintf(w, "%d rows (%s)\n", result.RecordsRead, result.ExecutionTime())
}

func (result MutationResult) Display(w io.Writer) {
	switch {
	case result.Value != nil:
		fmt.Fprintf(w, "OK, %s (%s)\n", core.ToText(result.Value), result.ExecutionTime())
	case result.InsertID != nil:
		fmt.Fprintf(w, "%d row(s) affected, insert_id %s (%s)\n", result.NumRows, core.ToText(result.InsertID), result.ExecutionTime())
	default:
		fmt.Fprintf(w, "%d row(s) affected (%s)\n", result.NumRows, result.ExecutionTime())
	}
}
