package ps

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
)

var (
	ErrNotInitialized = errors.New("persistence layer not initialized")
	ErrNoCheckpoint   = errors.New("no checkpoint found")
)

// Persistence stores catalog snapshots as commits of a git repository.
// A nil *Persistence is valid and reports ErrNotInitialized.
type Persistence struct {
	repo *git.Repository
	mu   sync.RWMutex
}

// IsInitialized returns true if the persistence layer has a valid repository
func (p *Persistence) IsInitialized() bool {
	return p != nil && p.repo != nil
}

func (p *Persistence) ensureInitialized() error {
	if !p.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// NewMemoryPersistence keeps the repository in memory. Checkpoints last as
// long as the process.
func NewMemoryPersistence() (*Persistence, error) {
	repo, err := git.Init(memory.NewStorage(), git.WithWorkTree(memfs.New()))
	if err != nil {
		return nil, fmt.Errorf("failed to init repository: %w", err)
	}
	return &Persistence{repo: repo}, nil
}

// NewFilePersistence opens the repository under baseDir. When none exists
// yet it clones gitUrl if given, otherwise it initialises an empty one.
func NewFilePersistence(baseDir string, gitUrl *string) (*Persistence, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}

	worktree := osfs.New(baseDir)
	dotGit, err := worktree.Chroot(".git")
	if err != nil {
		return nil, err
	}
	storer := filesystem.NewStorageWithOptions(dotGit, cache.NewObjectLRUDefault(), filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository
	switch _, statErr := os.Stat(dotGit.Root()); {
	case statErr == nil:
		repo, err = git.Open(storer, worktree)
	case gitUrl != nil:
		repo, err = git.Clone(storer, worktree, &git.CloneOptions{URL: *gitUrl})
	default:
		repo, err = git.Init(storer, git.WithWorkTree(worktree))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository in %s: %w", baseDir, err)
	}
	return &Persistence{repo: repo}, nil
}
