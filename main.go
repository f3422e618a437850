package MemDB

import (
	"errors"

	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/db"
	"github.com/nickyhof/MemDB/logging"
	"github.com/nickyhof/MemDB/ps"
)

// Instance is one database: a catalog and the optional git repository
// holding its checkpoints.
type Instance struct {
	Catalog     *ps.Catalog
	Persistence *ps.Persistence
}

// Open returns an instance over persistence, which may be nil for a purely
// in-memory database.
func Open(persistence *ps.Persistence) *Instance {
	return &Instance{
		Catalog:     ps.NewCatalog(),
		Persistence: persistence,
	}
}

// Engine returns an engine over the instance's catalog. When the catalog is
// empty and the repository holds a checkpoint, the latest one is restored.
func (instance *Instance) Engine(identity core.Identity) *db.Engine {
	engine := db.NewEngine(instance.Catalog, instance.Persistence, identity)
	if !instance.Persistence.IsInitialized() || len(instance.Catalog.Tables()) > 0 {
		return engine
	}
	if _, err := engine.Restore(""); err != nil && !errors.Is(err, ps.ErrNoCheckpoint) {
		logging.WithError(err).Warn("failed to restore latest checkpoint", "component", "instance")
	}
	return engine
}
