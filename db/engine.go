package db

import (
	"log/slog"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/logging"
	"github.com/nickyhof/MemDB/ps"
	"github.com/nickyhof/MemDB/sql"
)

// DefaultCacheSize is the number of prepared statements an engine keeps by SQL text.
const DefaultCacheSize = 128

// Engine executes SQL against a catalog. Execution is single threaded:
// statements must not run concurrently on one engine.
type Engine struct {
	catalog     *ps.Catalog
	persistence *ps.Persistence
	identity    core.Identity
	logger      *slog.Logger

	mu         sync.Mutex
	statements *lru.Cache
}

// NewEngine returns an engine over catalog. persistence may be nil, in
// which case checkpoints are unavailable.
func NewEngine(catalog *ps.Catalog, persistence *ps.Persistence, identity core.Identity) *Engine {
	return &Engine{
		catalog:     catalog,
		persistence: persistence,
		identity:    identity,
		logger:      logging.WithComponent("engine"),
		statements:  lru.New(DefaultCacheSize),
	}
}

// NewMemoryEngine returns an engine over a fresh catalog without persistence.
func NewMemoryEngine() *Engine {
	return NewEngine(ps.NewCatalog(), nil, core.Identity{})
}

func (engine *Engine) Catalog() *ps.Catalog {
	return engine.catalog
}

func (engine *Engine) Identity() core.Identity {
	return engine.identity
}

// SetCacheSize bounds the prepared statement cache. Zero disables the bound.
func (engine *Engine) SetCacheSize(n int) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.statements.MaxEntries = n
	for n > 0 && engine.statements.Len() > n {
		engine.statements.RemoveOldest()
	}
}

// Query prepares text, consulting the statement cache, and runs it with args.
func (engine *Engine) Query(text string, args ...any) (core.Cursor, error) {
	prepared, err := engine.Prepare(text)
	if err != nil {
		return nil, err
	}
	return prepared.Query(args...)
}

// Execute runs text and drains its cursor into a Result.
func (engine *Engine) Execute(text string, args ...any) (Result, error) {
	prepared, err := engine.Prepare(text)
	if err != nil {
		return nil, err
	}
	return prepared.Execute(args...)
}

// dispatch runs a statement whose placeholders have been numbered.
func (engine *Engine) dispatch(statement sql.Statement, scope *Scope) (core.Cursor, error) {
	start := time.Now()
	cursor, err := engine.run(statement, scope)
	if err != nil {
		engine.logger.Debug("statement failed", "type", statement.Type().String(), "error", err)
		return nil, err
	}
	engine.logger.Debug("statement planned", "type", statement.Type().String(), "elapsed", time.Since(start))
	return cursor, nil
}

func (engine *Engine) run(statement sql.Statement, scope *Scope) (core.Cursor, error) {
	switch s := statement.(type) {
	case sql.Query:
		return engine.buildQuery(s, scope)
	case *sql.CreateTableStatement:
		return engine.createTable(s, scope)
	case *sql.DropTableStatement:
		return engine.dropTable(s)
	case *sql.InsertStatement:
		return engine.insert(s, scope)
	case *sql.UpdateStatement:
		return engine.update(s, scope)
	case *sql.DeleteStatement:
		return engine.delete(s, scope)
	default:
		return nil, core.SchemaErrorf(core.ErrUnsupportedOperator, "unsupported statement %T", statement)
	}
}
