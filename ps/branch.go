package ps

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v6/plumbing"
)

var ErrBranchNotFound = errors.New("branch not found")

// Branch starts a checkpoint line named name at from, or at the latest
// checkpoint when from is nil.
func (p *Persistence) Branch(name string, from *Transaction) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var hash plumbing.Hash
	if from != nil {
		hash = plumbing.NewHash(from.Id)
	} else {
		headRef, err := p.repo.Head()
		if err != nil {
			return ErrNoCheckpoint
		}
		hash = headRef.Hash()
	}

	branchRef := plumbing.NewBranchReferenceName(name)
	if _, err := p.repo.Reference(branchRef, false); err == nil {
		return fmt.Errorf("branch '%s' already exists", name)
	}
	return p.repo.Storer.SetReference(plumbing.NewHashReference(branchRef, hash))
}

// Checkout points HEAD at an existing branch. Later checkpoints extend it.
// The worktree is never touched; callers restore the catalog themselves.
func (p *Persistence) Checkout(name string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	branchRef := plumbing.NewBranchReferenceName(name)
	ref, err := p.repo.Reference(branchRef, true)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %s", ErrBranchNotFound, name)
	}
	if err := p.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branchRef)); err != nil {
		return Transaction{}, fmt.Errorf("failed to move HEAD: %w", err)
	}

	commit, err := p.repo.CommitObject(ref.Hash())
	if err != nil {
		return Transaction{}, err
	}
	return fromCommit(commit), nil
}

// ListBranches returns all branch names
func (p *Persistence) ListBranches() ([]string, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	refs, err := p.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	defer refs.Close()

	branches := []string{}
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		branches = append(branches, ref.Name().Short())
		return nil
	})
	return branches, err
}

// CurrentBranch returns the branch HEAD points at, even before its first
// checkpoint.
func (p *Persistence) CurrentBranch() (string, error) {
	if err := p.ensureInitialized(); err != nil {
		return "", err
	}

	headRef, err := p.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if headRef.Type() == plumbing.SymbolicReference {
		return headRef.Target().Short(), nil
	}
	return "", fmt.Errorf("HEAD is detached at %s", headRef.Hash().String()[:7])
}

// DeleteBranch deletes a branch other than the current one.
func (p *Persistence) DeleteBranch(name string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}

	if current, err := p.CurrentBranch(); err == nil && current == name {
		return fmt.Errorf("cannot delete the currently checked out branch '%s'", name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	branchRef := plumbing.NewBranchReferenceName(name)
	if _, err := p.repo.Reference(branchRef, false); err != nil {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, name)
	}
	return p.repo.Storer.RemoveReference(branchRef)
}
