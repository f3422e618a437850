package ps

import (
	"github.com/go-git/go-git/v6/plumbing"
)

// Tag names a checkpoint. A nil asof tags the latest one.
func (persistence *Persistence) Tag(name string, asof *Transaction) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	var hash plumbing.Hash
	if asof != nil {
		hash = plumbing.NewHash(asof.Id)
	} else {
		headRef, err := persistence.repo.Head()
		if err != nil {
			return ErrNoCheckpoint
		}
		hash = headRef.Hash()
	}

	_, err := persistence.repo.CreateTag(name, hash, nil)
	return err
}
