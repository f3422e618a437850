package ps

import (
	"fmt"
	"path"

	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/goccy/go-json"
	"github.com/nickyhof/MemDB/core"
)

const (
	catalogFile = "catalog.json"
	schemaFile  = "schema.json"
	rowsFile    = "rows.json"
)

type tableHeader struct {
	ID     string        `json:"id"`
	Schema []core.Column `json:"schema"`
}

// SaveSnapshot commits the snapshot. Each table lives in its own directory
// holding schema.json and rows.json; catalog.json keeps the table order.
// Directories of tables missing from the snapshot are removed.
func (p *Persistence) SaveSnapshot(snapshot Snapshot, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	currentTree, err := p.headTree()
	if err != nil {
		return Transaction{}, err
	}
	existing, err := p.treeEntries(currentTree)
	if err != nil {
		return Transaction{}, err
	}

	dirs := make([]string, 0, len(snapshot.Tables))
	changes := make([]TreeChange, 0, 2*len(snapshot.Tables)+1)
	for _, ts := range snapshot.Tables {
		dir := key(ts.ID)
		dirs = append(dirs, dir)
		delete(existing, dir)

		header, err := json.Marshal(tableHeader{ID: ts.ID, Schema: ts.Schema})
		if err != nil {
			return Transaction{}, err
		}
		data := ts.Data
		if data == nil {
			data = []core.Row{}
		}
		rows, err := json.Marshal(data)
		if err != nil {
			return Transaction{}, err
		}
		for file, content := range map[string][]byte{schemaFile: header, rowsFile: rows} {
			blob, err := p.writeBlob(content)
			if err != nil {
				return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", ts.ID, err)
			}
			changes = append(changes, TreeChange{Path: path.Join(dir, file), Blob: blob})
		}
	}
	for name := range existing {
		if name != catalogFile {
			changes = append(changes, TreeChange{Path: name, Delete: true})
		}
	}

	manifest, err := json.Marshal(dirs)
	if err != nil {
		return Transaction{}, err
	}
	blob, err := p.writeBlob(manifest)
	if err != nil {
		return Transaction{}, err
	}
	changes = append(changes, TreeChange{Path: catalogFile, Blob: blob})

	newTree, err := p.applyChanges(currentTree, changes)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}
	return p.commitTree(newTree, identity, message)
}

// LoadSnapshot reads the snapshot stored by a checkpoint. id may be a
// transaction id, a tag, or empty for the latest checkpoint.
func (p *Persistence) LoadSnapshot(id string) (Snapshot, error) {
	if err := p.ensureInitialized(); err != nil {
		return Snapshot{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	commit, err := p.commitAt(id)
	if err != nil {
		return Snapshot{}, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return Snapshot{}, err
	}

	var dirs []string
	if err := readJSON(tree, catalogFile, &dirs); err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{Tables: make([]TableSnapshot, 0, len(dirs))}
	for _, dir := range dirs {
		var header tableHeader
		if err := readJSON(tree, path.Join(dir, schemaFile), &header); err != nil {
			return Snapshot{}, err
		}
		var rows []core.Row
		if err := readJSON(tree, path.Join(dir, rowsFile), &rows); err != nil {
			return Snapshot{}, err
		}
		snapshot.Tables = append(snapshot.Tables, TableSnapshot{ID: header.ID, Schema: header.Schema, Data: rows})
	}
	return snapshot, nil
}

func readJSON(tree *object.Tree, name string, v any) error {
	file, err := tree.File(name)
	if err != nil {
		return fmt.Errorf("checkpoint is missing %s: %w", name, err)
	}
	content, err := file.Contents()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(content), v)
}
