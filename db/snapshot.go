package db

import (
	"time"

	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/ps"
)

// ExportSnapshot captures the schema and rows of every table in catalog order.
func (engine *Engine) ExportSnapshot() ps.Snapshot {
	return engine.catalog.Export()
}

// ImportSnapshot loads the tables of snapshot, replacing tables with the
// same name. Nothing is replaced if any table in it is invalid.
func (engine *Engine) ImportSnapshot(snapshot ps.Snapshot) error {
	if err := engine.catalog.Import(snapshot); err != nil {
		return err
	}
	engine.logger.Info("snapshot imported", "tables", len(snapshot.Tables))
	return nil
}

// Checkpoint commits the current catalog to the engine's repository.
func (engine *Engine) Checkpoint(message string) (ps.Transaction, error) {
	return engine.CheckpointAs(engine.identity, message)
}

// CheckpointAs commits the current catalog authored by identity.
func (engine *Engine) CheckpointAs(identity core.Identity, message string) (ps.Transaction, error) {
	if !engine.persistence.IsInitialized() {
		return ps.Transaction{}, ps.ErrNotInitialized
	}
	txn, err := engine.persistence.SaveSnapshot(engine.ExportSnapshot(), identity, message)
	if err != nil {
		return ps.Transaction{}, err
	}
	engine.logger.Info("checkpoint saved", "id", txn.Id, "message", message)
	return txn, nil
}

// Restore replaces the whole catalog with the checkpoint id. An empty id
// restores the latest checkpoint; tags are accepted too.
func (engine *Engine) Restore(id string) (ps.Transaction, error) {
	if !engine.persistence.IsInitialized() {
		return ps.Transaction{}, ps.ErrNotInitialized
	}
	txn, err := engine.persistence.Resolve(id)
	if err != nil {
		return ps.Transaction{}, err
	}
	snapshot, err := engine.persistence.LoadSnapshot(txn.Id)
	if err != nil {
		return ps.Transaction{}, err
	}

	// validate before the current tables are discarded
	if err := ps.NewCatalog().Import(snapshot); err != nil {
		return ps.Transaction{}, err
	}
	engine.catalog.Clear()
	if err := engine.catalog.Import(snapshot); err != nil {
		return ps.Transaction{}, err
	}
	engine.logger.Info("checkpoint restored", "id", txn.Id)
	return txn, nil
}

// History lists checkpoints newest first.
func (engine *Engine) History() ([]ps.Transaction, error) {
	if !engine.persistence.IsInitialized() {
		return nil, ps.ErrNotInitialized
	}
	return engine.persistence.TransactionsSince(time.Time{})
}

// Tag names the latest checkpoint.
func (engine *Engine) Tag(name string) error {
	if !engine.persistence.IsInitialized() {
		return ps.ErrNotInitialized
	}
	return engine.persistence.Tag(name, nil)
}

// Branch starts a checkpoint branch at the latest checkpoint.
func (engine *Engine) Branch(name string) error {
	if !engine.persistence.IsInitialized() {
		return ps.ErrNotInitialized
	}
	return engine.persistence.Branch(name, nil)
}

// Checkout switches to a checkpoint branch and restores its latest
// checkpoint. Later checkpoints extend that branch.
func (engine *Engine) Checkout(name string) (ps.Transaction, error) {
	if !engine.persistence.IsInitialized() {
		return ps.Transaction{}, ps.ErrNotInitialized
	}
	previous, err := engine.persistence.CurrentBranch()
	if err != nil {
		return ps.Transaction{}, err
	}
	if _, err := engine.persistence.Checkout(name); err != nil {
		return ps.Transaction{}, err
	}
	txn, err := engine.Restore("")
	if err != nil {
		// leave HEAD where the catalog came from
		engine.persistence.Checkout(previous)
		return ps.Transaction{}, err
	}
	engine.logger.Info("branch checked out", "branch", name)
	return txn, nil
}

// Branches lists the checkpoint branches and the current one.
func (engine *Engine) Branches() ([]string, string, error) {
	if !engine.persistence.IsInitialized() {
		return nil, "", ps.ErrNotInitialized
	}
	branches, err := engine.persistence.ListBranches()
	if err != nil {
		return nil, "", err
	}
	current, err := engine.persistence.CurrentBranch()
	return branches, current, err
}

// Push publishes the current branch's checkpoints to a git remote.
func (engine *Engine) Push(remote string, auth *ps.RemoteAuth) error {
	if !engine.persistence.IsInitialized() {
		return ps.ErrNotInitialized
	}
	if err := engine.persistence.Push(remote, auth); err != nil {
		return err
	}
	engine.logger.Info("checkpoints pushed", "remote", remote)
	return nil
}

// AddRemote registers a git remote for Push.
func (engine *Engine) AddRemote(name, url string) error {
	if !engine.persistence.IsInitialized() {
		return ps.ErrNotInitialized
	}
	return engine.persistence.AddRemote(name, url)
}

// Remotes lists the configured git remotes.
func (engine *Engine) Remotes() ([]ps.Remote, error) {
	if !engine.persistence.IsInitialized() {
		return nil, ps.ErrNotInitialized
	}
	return engine.persistence.ListRemotes()
}
