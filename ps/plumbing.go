package ps

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/MemDB/core"
)

// Checkpoints are written straight into the object store. The worktree is
// never checked out, so saving costs one blob per file and one tree per
// touched directory.

// encoder is implemented by *object.Tree and *object.Commit.
type encoder interface {
	Encode(plumbing.EncodedObject) error
}

func (p *Persistence) storeObject(kind string, value encoder) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	if err := value.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store %s: %w", kind, err)
	}
	return hash, nil
}

func (p *Persistence) writeBlob(data []byte) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create blob writer: %w", err)
	}
	_, err = writer.Write(data)
	if closeErr := writer.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob: %w", err)
	}

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}
	return hash, nil
}

// writeTree stores entries in git order: directories sort as if their name
// ended in a slash.
func (p *Persistence) writeTree(entries []object.TreeEntry) (plumbing.Hash, error) {
	sortName := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	slices.SortFunc(entries, func(a, b object.TreeEntry) int {
		return strings.Compare(sortName(a), sortName(b))
	})
	return p.storeObject("tree", &object.Tree{Entries: entries})
}

// headTree returns the tree of HEAD, or ZeroHash before the first checkpoint.
func (p *Persistence) headTree() (plumbing.Hash, error) {
	headRef, err := p.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, nil
	}
	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get head commit: %w", err)
	}
	return commit.TreeHash, nil
}

// treeEntries indexes the entries of a tree by name. ZeroHash is the empty tree.
func (p *Persistence) treeEntries(treeHash plumbing.Hash) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)
	if treeHash == plumbing.ZeroHash {
		return entries, nil
	}
	tree, err := object.GetTree(p.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	for _, entry := range tree.Entries {
		entries[entry.Name] = entry
	}
	return entries, nil
}

// TreeChange writes Blob at Path, or removes Path when Delete is set.
type TreeChange struct {
	Path   string
	Blob   plumbing.Hash
	Delete bool
}

// applyChanges rewrites root with every change, visiting each touched
// directory once. Directories left empty are dropped and an empty root
// yields ZeroHash.
func (p *Persistence) applyChanges(root plumbing.Hash, changes []TreeChange) (plumbing.Hash, error) {
	if len(changes) == 0 {
		return root, nil
	}
	entries, err := p.treeEntries(root)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	nested := make(map[string][]TreeChange)
	for _, change := range changes {
		if dir, rest, ok := strings.Cut(change.Path, "/"); ok {
			nested[dir] = append(nested[dir], TreeChange{Path: rest, Blob: change.Blob, Delete: change.Delete})
		} else if change.Delete {
			delete(entries, change.Path)
		} else {
			entries[change.Path] = object.TreeEntry{Name: change.Path, Mode: filemode.Regular, Hash: change.Blob}
		}
	}

	for dir, sub := range nested {
		subtree := plumbing.ZeroHash
		if existing, ok := entries[dir]; ok && existing.Mode == filemode.Dir {
			subtree = existing.Hash
		}
		subtree, err := p.applyChanges(subtree, sub)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if subtree == plumbing.ZeroHash {
			delete(entries, dir)
		} else {
			entries[dir] = object.TreeEntry{Name: dir, Mode: filemode.Dir, Hash: subtree}
		}
	}

	if len(entries) == 0 {
		return plumbing.ZeroHash, nil
	}
	list := make([]object.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		list = append(list, entry)
	}
	return p.writeTree(list)
}

// headBranch is the branch the next checkpoint extends: the target of a
// symbolic HEAD, even when that branch has no commits yet.
func (p *Persistence) headBranch() plumbing.ReferenceName {
	if head, err := p.repo.Storer.Reference(plumbing.HEAD); err == nil {
		if head.Type() == plumbing.SymbolicReference {
			return head.Target()
		}
	}
	return plumbing.Master
}

// commitTree records tree as a checkpoint on top of HEAD and advances the
// current branch.
func (p *Persistence) commitTree(tree plumbing.Hash, identity core.Identity, message string) (Transaction, error) {
	if tree == plumbing.ZeroHash {
		var err error
		if tree, err = p.writeTree(nil); err != nil {
			return Transaction{}, err
		}
	}

	sig := object.Signature{Name: identity.Name, Email: identity.Email, When: time.Now()}
	commit := &object.Commit{
		Author:    sig,
		Committer: sig,
		Message:   message,
		TreeHash:  tree,
	}
	if headRef, err := p.repo.Head(); err == nil {
		commit.ParentHashes = []plumbing.Hash{headRef.Hash()}
	}

	hash, err := p.storeObject("commit", commit)
	if err != nil {
		return Transaction{}, err
	}
	if err := p.repo.Storer.SetReference(plumbing.NewHashReference(p.headBranch(), hash)); err != nil {
		return Transaction{}, fmt.Errorf("failed to update HEAD: %w", err)
	}

	return Transaction{
		Id:      hash.String(),
		When:    sig.When,
		Author:  author(sig),
		Message: message,
	}, nil
}

// commitAt resolves a transaction id, a tag name or "" (HEAD) to a commit.
func (p *Persistence) commitAt(id string) (*object.Commit, error) {
	if id == "" {
		headRef, err := p.repo.Head()
		if err != nil {
			return nil, ErrNoCheckpoint
		}
		return p.repo.CommitObject(headRef.Hash())
	}
	if ref, err := p.repo.Tag(id); err == nil {
		return p.repo.CommitObject(ref.Hash())
	}
	commit, err := p.repo.CommitObject(plumbing.NewHash(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCheckpoint, id)
	}
	return commit, nil
}
