package db

import (
	"time"

	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/sql"
)

// PreparedStatement is a parsed statement with numbered placeholders. It
// can be run any number of times with different arguments.
type PreparedStatement struct {
	engine    *Engine
	SQL       string
	Statement sql.Statement
	Params    int
}

// Prepare parses sql once; repeated calls with the same text are served
// from the engine's statement cache.
func (engine *Engine) Prepare(text string) (*PreparedStatement, error) {
	engine.mu.Lock()
	if cached, ok := engine.statements.Get(text); ok {
		engine.mu.Unlock()
		return cached.(*PreparedStatement), nil
	}
	engine.mu.Unlock()

	statement, err := sql.Parse(text)
	if err != nil {
		return nil, err
	}
	prepared := engine.PrepareStatement(statement)
	prepared.SQL = text

	engine.mu.Lock()
	engine.statements.Add(text, prepared)
	engine.mu.Unlock()
	return prepared, nil
}

// PrepareStatement numbers the placeholders of an already parsed statement.
func (engine *Engine) PrepareStatement(statement sql.Statement) *PreparedStatement {
	return &PreparedStatement{
		engine:    engine,
		Statement: statement,
		Params:    sql.AssignParams(statement),
	}
}

// Query binds args to the placeholders in order and runs the statement.
// Mutations return a *Mutation cursor.
func (prepared *PreparedStatement) Query(args ...any) (core.Cursor, error) {
	scope, err := NewScope(args...)
	if err != nil {
		return nil, err
	}
	return prepared.engine.dispatch(prepared.Statement, scope)
}

// Execute runs the statement and drains the result.
func (prepared *PreparedStatement) Execute(args ...any) (Result, error) {
	start := time.Now()
	cursor, err := prepared.Query(args...)
	if err != nil {
		return nil, err
	}
	return collect(cursor, start)
}
